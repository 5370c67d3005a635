package message_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/engine"
	"skep/internal/services/message"
	"skep/internal/store"
)

const passphrase = "Str0ng-Passphrase!"

// fakeRelay is an in-memory relay with the same queue-and-ack semantics as
// cmd/relay.
type fakeRelay struct {
	mu      sync.Mutex
	bundles map[domain.UserID]domain.PublicBundle
	queues  map[domain.UserID][]domain.Envelope
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{
		bundles: make(map[domain.UserID]domain.PublicBundle),
		queues:  make(map[domain.UserID][]domain.Envelope),
	}
}

func (r *fakeRelay) Register(_ context.Context, b domain.PublicBundle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles[b.UserID] = b
	return nil
}

func (r *fakeRelay) PublicKeyBundle(_ context.Context, user domain.UserID) (domain.PublicBundle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bundles[user]
	if !ok {
		return domain.PublicBundle{}, fmt.Errorf("no bundle for %q", user)
	}
	return b, nil
}

func (r *fakeRelay) SendEnvelope(_ context.Context, env domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queues[env.To] = append(r.queues[env.To], env)
	return nil
}

func (r *fakeRelay) FetchEnvelopes(_ context.Context, user domain.UserID, limit int) ([]domain.Envelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	return append([]domain.Envelope(nil), q...), nil
}

func (r *fakeRelay) AckEnvelopes(_ context.Context, user domain.UserID, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.queues[user]
	if count > len(q) {
		count = len(q)
	}
	r.queues[user] = q[count:]
	return nil
}

func (r *fakeRelay) queued(user domain.UserID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues[user])
}

var _ domain.RelayClient = (*fakeRelay)(nil)

type fixture struct {
	relay    *fakeRelay
	aliceSvc *message.Service
	bobSvc   *message.Service
	aliceFS  *store.FileStore
	bobFS    *store.FileStore
	aliceEng *engine.Engine
}

// newFixture builds two users with persisted identities, a confirmed session
// between them saved on both sides, and a live engine for alice to mint
// envelopes with.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	suite := crypto.P256()
	now := time.Now()
	relay := newFakeRelay()

	aliceFS := store.NewFileStore(t.TempDir(), suite)
	bobFS := store.NewFileStore(t.TempDir(), suite)

	aliceID, err := crypto.GenerateIdentity(suite, "alice")
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	bobID, err := crypto.GenerateIdentity(suite, "bob")
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if err := aliceFS.SaveIdentity(passphrase, aliceID); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}
	if err := bobFS.SaveIdentity(passphrase, bobID); err != nil {
		t.Fatalf("SaveIdentity: %v", err)
	}

	bobBundle, err := crypto.PublicBundle(bobID)
	if err != nil {
		t.Fatalf("PublicBundle: %v", err)
	}
	aliceBundle, err := crypto.PublicBundle(aliceID)
	if err != nil {
		t.Fatalf("PublicBundle: %v", err)
	}

	aliceEng := engine.New(suite, aliceID, nil)
	bobEng := engine.New(suite, bobID, nil)
	aliceEng.AddPeer(domain.PeerRecord{PeerID: "bob", AgreementKey: bobBundle.AgreementKey, SigningKey: bobBundle.SigningKey, AddedAt: now})
	bobEng.AddPeer(domain.PeerRecord{PeerID: "alice", AgreementKey: aliceBundle.AgreementKey, SigningKey: aliceBundle.SigningKey, AddedAt: now})

	// Drive the handshake directly between the two engines.
	hello, err := aliceEng.StartHandshake(context.Background(), "bob", now)
	if err != nil {
		t.Fatalf("StartHandshake: %v", err)
	}
	pending := []domain.Envelope{hello}
	for len(pending) > 0 {
		env := pending[0]
		pending = pending[1:]
		target := bobEng
		if env.To == "alice" {
			target = aliceEng
		}
		replies, err := target.Handle(env, now)
		if err != nil {
			t.Fatalf("handshake step %s: %v", env.Type, err)
		}
		pending = append(pending, replies...)
	}
	if !aliceEng.Confirmed("bob") || !bobEng.Confirmed("alice") {
		t.Fatal("handshake did not confirm")
	}

	// Persist the confirmed session and peer records on both sides.
	aliceState, err := aliceEng.ExportState("bob")
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	bobState, err := bobEng.ExportState("alice")
	if err != nil {
		t.Fatalf("ExportState: %v", err)
	}
	if err := aliceFS.SaveSessionState("bob", aliceState); err != nil {
		t.Fatalf("SaveSessionState: %v", err)
	}
	if err := bobFS.SaveSessionState("alice", bobState); err != nil {
		t.Fatalf("SaveSessionState: %v", err)
	}
	if rec, ok := aliceEng.Peer("bob"); ok {
		if err := aliceFS.SavePeer(rec); err != nil {
			t.Fatalf("SavePeer: %v", err)
		}
	}
	if rec, ok := bobEng.Peer("alice"); ok {
		if err := bobFS.SavePeer(rec); err != nil {
			t.Fatalf("SavePeer: %v", err)
		}
	}

	return &fixture{
		relay:    relay,
		aliceSvc: message.New(suite, aliceFS, aliceFS, aliceFS, relay),
		bobSvc:   message.New(suite, bobFS, bobFS, bobFS, relay),
		aliceFS:  aliceFS,
		bobFS:    bobFS,
		aliceEng: aliceEng,
	}
}

func TestReceive_ReplayedEnvelopeDoesNotJamQueue(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	first, err := fx.aliceEng.Seal("bob", []byte("first"), now)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	second, err := fx.aliceEng.Seal("bob", []byte("second"), now)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// Queue the first message twice: the duplicate must be dropped and the
	// message behind it still delivered.
	for _, env := range []domain.Envelope{first, first, second} {
		if err := fx.relay.SendEnvelope(ctx, env); err != nil {
			t.Fatalf("SendEnvelope: %v", err)
		}
	}

	msgs, rejected, err := fx.bobSvc.Receive(ctx, passphrase, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 2 || string(msgs[0].Plaintext) != "first" || string(msgs[1].Plaintext) != "second" {
		t.Fatalf("delivered = %+v, want first and second", msgs)
	}
	if len(rejected) != 1 || rejected[0].From != "alice" {
		t.Fatalf("rejected = %+v, want one dropped duplicate", rejected)
	}
	if n := fx.relay.queued("bob"); n != 0 {
		t.Fatalf("%d envelopes still queued, want 0", n)
	}
}

func TestReceive_TamperedEnvelopeReported(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	env, err := fx.aliceEng.Seal("bob", []byte("payload"), time.Now())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	enc := *env.Encrypted
	enc.Ciphertext = append([]byte(nil), enc.Ciphertext...)
	enc.Ciphertext[0] ^= 0x01
	env.Encrypted = &enc
	if err := fx.relay.SendEnvelope(ctx, env); err != nil {
		t.Fatalf("SendEnvelope: %v", err)
	}

	msgs, rejected, err := fx.bobSvc.Receive(ctx, passphrase, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("tampered envelope delivered: %+v", msgs)
	}
	if len(rejected) != 1 {
		t.Fatalf("rejected = %+v, want one", rejected)
	}
	if n := fx.relay.queued("bob"); n != 0 {
		t.Fatalf("tampered envelope still queued after Receive")
	}
}

func TestSend_ExpiredSessionPurged(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	st, ok, err := fx.aliceFS.LoadSessionState("bob")
	if err != nil || !ok {
		t.Fatalf("LoadSessionState: ok=%v err=%v", ok, err)
	}
	st.ConfirmedAt = time.Now().Add(-48 * time.Hour).UnixMilli()
	if err := fx.aliceFS.SaveSessionState("bob", st); err != nil {
		t.Fatalf("SaveSessionState: %v", err)
	}

	err = fx.aliceSvc.Send(ctx, passphrase, "bob", []byte("too late"))
	if !errors.Is(err, message.ErrNoSession) {
		t.Fatalf("want ErrNoSession for expired session, got %v", err)
	}
	if _, ok, _ := fx.aliceFS.LoadSessionState("bob"); ok {
		t.Fatal("expired session state not purged")
	}
	if n := fx.relay.queued("bob"); n != 0 {
		t.Fatal("message sent under expired session")
	}
}

func TestSendReceive_EndToEnd(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if err := fx.aliceSvc.Send(ctx, passphrase, "bob", []byte("hello bob")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs, rejected, err := fx.bobSvc.Receive(ctx, passphrase, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(msgs) != 1 || string(msgs[0].Plaintext) != "hello bob" {
		t.Fatalf("Receive = %+v, want hello bob", msgs)
	}
}
