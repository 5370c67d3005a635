package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/protocol/confirm"
	"skep/internal/protocol/handshake"
	"skep/internal/protocol/keyring"
	"skep/internal/protocol/transport"
	"skep/internal/session"
	"skep/internal/util/memzero"
)

var (
	// ErrUnknownPeer means we hold no public keys for the peer and no
	// directory lookup is available.
	ErrUnknownPeer = errors.New("unknown peer")

	// ErrNoSession means no session exists with the peer.
	ErrNoSession = errors.New("no session with peer")

	// ErrUnknownSession means a handshake message referenced a session we do
	// not track.
	ErrUnknownSession = errors.New("unknown session")

	// ErrNotConfirmed means application traffic was attempted before the
	// session reached confirmed.
	ErrNotConfirmed = errors.New("session not confirmed")

	// ErrSaltMismatch means the initiator echoed a different salt than the
	// one this side generated; the handshake is aborted.
	ErrSaltMismatch = errors.New("handshake salt mismatch")

	// ErrUnhandledType means the envelope carried an unrecognised type tag.
	ErrUnhandledType = errors.New("unhandled message type")

	// ErrSessionExpired means persisted session state is past the hard
	// session lifetime and must not be used; the peers need a new handshake.
	ErrSessionExpired = errors.New("session expired")
)

// Engine drives the key-exchange protocol for one local identity.
type Engine struct {
	suite    crypto.Suite
	id       domain.IdentityKeyPair
	dir      domain.Directory
	sessions *session.Manager

	mu     sync.Mutex
	peers  map[domain.UserID]domain.PeerRecord
	replay map[domain.UserID]*transport.ReplayState
	locks  map[domain.UserID]*sync.Mutex
}

// New returns an engine for the identity. dir may be nil when every peer is
// introduced by a hello or preloaded with AddPeer.
func New(suite crypto.Suite, id domain.IdentityKeyPair, dir domain.Directory) *Engine {
	return &Engine{
		suite:    suite,
		id:       id,
		dir:      dir,
		sessions: session.NewManager(),
		peers:    make(map[domain.UserID]domain.PeerRecord),
		replay:   make(map[domain.UserID]*transport.ReplayState),
		locks:    make(map[domain.UserID]*sync.Mutex),
	}
}

// AddPeer preloads a peer's public keys, e.g. from the contact store.
func (e *Engine) AddPeer(rec domain.PeerRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.peers[rec.PeerID] = rec
}

// Peer returns the record held for a peer.
func (e *Engine) Peer(peer domain.UserID) (domain.PeerRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.peers[peer]
	return rec, ok
}

// Sessions exposes the session manager, mainly so callers can drive Cleanup
// and logout.
func (e *Engine) Sessions() *session.Manager { return e.sessions }

// StartHandshake opens a new session with the peer and returns the hello to
// send. Any prior session with the peer is discarded; a retry never resumes
// partial state.
func (e *Engine) StartHandshake(ctx context.Context, peer domain.UserID, now time.Time) (domain.Envelope, error) {
	lock := e.peerLock(peer)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := e.Peer(peer); !ok {
		if e.dir == nil {
			return domain.Envelope{}, fmt.Errorf("%w: %s", ErrUnknownPeer, peer)
		}
		bundle, err := e.dir.PublicKeyBundle(ctx, peer)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("directory lookup for %s: %w", peer, err)
		}
		e.AddPeer(domain.PeerRecord{
			PeerID:       peer,
			AgreementKey: bundle.AgreementKey,
			SigningKey:   bundle.SigningKey,
			AddedAt:      now,
		})
	}

	hello, err := handshake.NewHello(e.id, peer, now)
	if err != nil {
		return domain.Envelope{}, err
	}

	id, err := crypto.RandomBytes(8)
	if err != nil {
		return domain.Envelope{}, err
	}
	sess := handshake.NewSession(domain.SessionID(hex.EncodeToString(id)), peer, true, now)
	e.sessions.Delete(peer)
	e.sessions.Store(peer, sess)

	return domain.Envelope{
		From:      e.id.UserID,
		To:        peer,
		Type:      domain.TypeHello,
		Hello:     &hello,
		Timestamp: now.UnixMilli(),
	}, nil
}

// Handle processes one inbound envelope and returns the envelopes to send in
// reply, if any. Failures that indicate tampering or key mismatch abort the
// session; per-message validation failures leave it intact.
func (e *Engine) Handle(env domain.Envelope, now time.Time) ([]domain.Envelope, error) {
	lock := e.peerLock(env.From)
	lock.Lock()
	defer lock.Unlock()

	switch env.Type {
	case domain.TypeHello:
		if env.Hello == nil {
			return nil, handshake.ErrMalformedMessage
		}
		return e.handleHello(*env.Hello, now)
	case domain.TypeEphemeral:
		if env.Ephemeral == nil {
			return nil, handshake.ErrMalformedMessage
		}
		return e.handleEphemeral(env.From, *env.Ephemeral, now)
	case domain.TypeChallenge:
		if env.Challenge == nil {
			return nil, confirm.ErrMalformedMessage
		}
		return e.handleChallenge(env.From, *env.Challenge, now)
	case domain.TypeResponse:
		if env.Response == nil {
			return nil, confirm.ErrMalformedMessage
		}
		return e.handleResponse(env.From, *env.Response, now)
	case domain.TypeSessionReady:
		if env.Ready == nil {
			return nil, handshake.ErrMalformedMessage
		}
		return nil, e.handleReady(env.From, *env.Ready, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnhandledType, env.Type)
	}
}

// handleHello runs the responder's opening: record the peer, create a
// session with a fresh salt and reply with our signed ephemeral.
func (e *Engine) handleHello(msg domain.HelloMessage, now time.Time) ([]domain.Envelope, error) {
	if err := handshake.ValidateHello(msg, now); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if _, known := e.peers[msg.UserID]; !known {
		e.peers[msg.UserID] = domain.PeerRecord{
			PeerID:       msg.UserID,
			AgreementKey: msg.AgreementKey,
			SigningKey:   msg.SigningKey,
			AddedAt:      now,
		}
	}
	e.mu.Unlock()

	id, err := crypto.RandomBytes(8)
	if err != nil {
		return nil, err
	}
	sess := handshake.NewSession(domain.SessionID(hex.EncodeToString(id)), msg.UserID, false, now)

	salt, err := keyring.GenerateSalt()
	if err != nil {
		return nil, err
	}
	eph, err := handshake.CreateEphemeralExchange(e.suite, e.id, sess, salt, now)
	if err != nil {
		return nil, err
	}

	e.sessions.Delete(msg.UserID)
	e.sessions.Store(msg.UserID, sess)

	return []domain.Envelope{{
		From:      e.id.UserID,
		To:        msg.UserID,
		Type:      domain.TypeEphemeral,
		Ephemeral: &eph,
		Timestamp: now.UnixMilli(),
	}}, nil
}

// handleEphemeral advances either side of the exchange. The initiator adopts
// the responder's session ID and salt, sends its own signed ephemeral and
// opens confirmation; the responder completes the derivation and waits for
// the challenge.
func (e *Engine) handleEphemeral(from domain.UserID, msg domain.EphemeralMessage, now time.Time) ([]domain.Envelope, error) {
	if err := handshake.ValidateEphemeral(msg, now); err != nil {
		return nil, err
	}

	sess, ok := e.sessions.Get(from)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, msg.SessionID)
	}
	rec, ok := e.Peer(from)
	if !ok {
		e.sessions.Delete(from)
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeer, from)
	}

	switch {
	case sess.Initiator && sess.Status == domain.StatusInitiated:
		// Adopt the responder's session ID and salt, then answer with our
		// own signed ephemeral before deriving.
		sess.ID = msg.SessionID
		reply, err := handshake.CreateEphemeralExchange(e.suite, e.id, sess, msg.Salt, now)
		if err != nil {
			e.sessions.Delete(from)
			return nil, err
		}
		if err := e.deriveKeys(sess, msg, rec.SigningKey, now); err != nil {
			e.sessions.Delete(from)
			return nil, err
		}

		challenge, pending, err := confirm.Initiate(sess.Keys, sess, now)
		if err != nil {
			e.sessions.Delete(from)
			return nil, err
		}
		e.sessions.StoreChallenge(&pending)

		return []domain.Envelope{
			{From: e.id.UserID, To: from, Type: domain.TypeEphemeral, Ephemeral: &reply, Timestamp: now.UnixMilli()},
			{From: e.id.UserID, To: from, Type: domain.TypeChallenge, Challenge: &challenge, Timestamp: now.UnixMilli()},
		}, nil

	case !sess.Initiator && sess.Status == domain.StatusEphemeralCreated:
		if sess.ID != msg.SessionID {
			e.sessions.Delete(from)
			return nil, fmt.Errorf("%w: %s", ErrUnknownSession, msg.SessionID)
		}
		if !bytes.Equal(msg.Salt, sess.Salt) {
			e.sessions.Delete(from)
			return nil, ErrSaltMismatch
		}
		if err := e.deriveKeys(sess, msg, rec.SigningKey, now); err != nil {
			e.sessions.Delete(from)
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: status %s", handshake.ErrBadState, sess.Status)
	}
}

// deriveKeys verifies the peer's signed ephemeral, runs ECDH and expands the
// session keys. The raw shared secret is wiped as soon as the keys exist.
func (e *Engine) deriveKeys(sess *domain.Session, msg domain.EphemeralMessage, peerSigningKey []byte, now time.Time) error {
	secret, err := handshake.VerifyAndDeriveSharedSecret(e.suite, sess, msg, peerSigningKey, now)
	if err != nil {
		return err
	}

	keys, err := keyring.DeriveSessionKeys(secret, sess.Salt, keyring.Context)
	if err != nil {
		return err
	}
	memzero.Zero(secret)
	sess.SharedSecret = nil
	sess.LocalEphemeral = nil

	sess.Keys = &keys
	sess.Status = domain.StatusKeysDerived
	sess.LastActivity = now
	return nil
}

// handleChallenge answers a key-confirmation challenge under our derived
// confirmation key.
func (e *Engine) handleChallenge(from domain.UserID, msg domain.ChallengeMessage, now time.Time) ([]domain.Envelope, error) {
	if err := confirm.ValidateChallenge(msg, now); err != nil {
		return nil, err
	}
	sess, ok := e.sessions.Get(from)
	if !ok || sess.ID != msg.SessionID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, msg.SessionID)
	}
	if sess.Keys == nil {
		return nil, fmt.Errorf("%w: no keys derived", handshake.ErrBadState)
	}

	resp := domain.ResponseMessage{
		Type:        domain.TypeResponse,
		SessionID:   sess.ID,
		ChallengeID: msg.ChallengeID,
		Response:    confirm.Respond(msg.Challenge, sess.Keys),
		Timestamp:   now.UnixMilli(),
	}
	sess.LastActivity = now

	return []domain.Envelope{{
		From:      e.id.UserID,
		To:        from,
		Type:      domain.TypeResponse,
		Response:  &resp,
		Timestamp: now.UnixMilli(),
	}}, nil
}

// handleResponse verifies the peer's confirmation response. Success confirms
// the session and notifies the peer; mismatch destroys the session.
func (e *Engine) handleResponse(from domain.UserID, msg domain.ResponseMessage, now time.Time) ([]domain.Envelope, error) {
	if err := confirm.ValidateResponse(msg, now); err != nil {
		return nil, err
	}
	pending, ok := e.sessions.TakeChallenge(msg.ChallengeID)
	if !ok || pending.PeerID != from || pending.SessionID != msg.SessionID {
		return nil, fmt.Errorf("%w: challenge %s", ErrUnknownSession, msg.ChallengeID)
	}
	sess, ok := e.sessions.Get(from)
	if !ok || sess.ID != msg.SessionID {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, msg.SessionID)
	}

	if !confirm.VerifyResponse(msg.Response, pending.ExpectedResponse) {
		e.sessions.Delete(from)
		return nil, confirm.ErrMismatch
	}

	sess.Status = domain.StatusConfirmed
	sess.ConfirmedAt = now
	sess.LastActivity = now
	e.setReplay(from, transport.NewReplayState())

	ready := domain.ReadyMessage{
		Type:      domain.TypeSessionReady,
		SessionID: sess.ID,
		Status:    string(domain.StatusConfirmed),
		Timestamp: now.UnixMilli(),
	}
	return []domain.Envelope{{
		From:      e.id.UserID,
		To:        from,
		Type:      domain.TypeSessionReady,
		Ready:     &ready,
		Timestamp: now.UnixMilli(),
	}}, nil
}

// handleReady moves the responder's session to confirmed once the initiator
// has verified our confirmation response.
func (e *Engine) handleReady(from domain.UserID, msg domain.ReadyMessage, now time.Time) error {
	sess, ok := e.sessions.Get(from)
	if !ok || sess.ID != msg.SessionID {
		return fmt.Errorf("%w: %s", ErrUnknownSession, msg.SessionID)
	}
	if sess.Status != domain.StatusKeysDerived {
		return fmt.Errorf("%w: status %s", handshake.ErrBadState, sess.Status)
	}
	sess.Status = domain.StatusConfirmed
	sess.ConfirmedAt = now
	sess.LastActivity = now
	e.setReplay(from, transport.NewReplayState())
	return nil
}

// Seal encrypts plaintext as the next message to the peer. The session must
// be confirmed.
func (e *Engine) Seal(peer domain.UserID, plaintext []byte, now time.Time) (domain.Envelope, error) {
	lock := e.peerLock(peer)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.sessions.Get(peer)
	if !ok {
		return domain.Envelope{}, fmt.Errorf("%w: %s", ErrNoSession, peer)
	}
	if sess.Status != domain.StatusConfirmed {
		return domain.Envelope{}, fmt.Errorf("%w: %s", ErrNotConfirmed, sess.Status)
	}

	seq := uint64(sess.Keys.MessageCount) + 1
	msg, err := transport.Encode(plaintext, e.id.UserID, peer, sess.Keys, seq, now)
	if err != nil {
		return domain.Envelope{}, err
	}
	sess.LastActivity = now

	return domain.Envelope{
		From:      e.id.UserID,
		To:        peer,
		Type:      domain.TypeEncryptedMessage,
		Encrypted: &msg,
		Timestamp: now.UnixMilli(),
	}, nil
}

// Open validates and decrypts an inbound application message from the peer.
func (e *Engine) Open(env domain.Envelope, now time.Time) ([]byte, error) {
	lock := e.peerLock(env.From)
	lock.Lock()
	defer lock.Unlock()

	if env.Type != domain.TypeEncryptedMessage || env.Encrypted == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnhandledType, env.Type)
	}
	sess, ok := e.sessions.Get(env.From)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, env.From)
	}
	if sess.Status != domain.StatusConfirmed {
		return nil, fmt.Errorf("%w: %s", ErrNotConfirmed, sess.Status)
	}

	plaintext, err := transport.Decode(*env.Encrypted, sess.Keys, e.replayFor(env.From), now)
	if err != nil {
		return nil, err
	}
	sess.LastActivity = now
	return plaintext, nil
}

// Confirmed reports whether a confirmed session exists with the peer.
func (e *Engine) Confirmed(peer domain.UserID) bool {
	sess, ok := e.sessions.Get(peer)
	return ok && sess.Status == domain.StatusConfirmed
}

// ExportState snapshots a confirmed session for persistence. Only derived
// keys and replay counters leave the engine, never ephemeral private keys or
// the raw shared secret.
func (e *Engine) ExportState(peer domain.UserID) (domain.SessionState, error) {
	lock := e.peerLock(peer)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := e.sessions.Get(peer)
	if !ok {
		return domain.SessionState{}, fmt.Errorf("%w: %s", ErrNoSession, peer)
	}
	if sess.Status != domain.StatusConfirmed {
		return domain.SessionState{}, fmt.Errorf("%w: %s", ErrNotConfirmed, sess.Status)
	}
	replay := e.replayFor(peer)
	return domain.SessionState{
		SessionID:   sess.ID,
		PeerID:      peer,
		Keys:        *sess.Keys,
		ExpectedSeq: replay.ExpectedSeq,
		UsedNonces:  replay.Nonces(),
		ConfirmedAt: sess.ConfirmedAt.UnixMilli(),
	}, nil
}

// ImportState restores a previously confirmed session, e.g. on process
// start. State older than the hard session lifetime is refused with
// ErrSessionExpired; the caller should purge it and run a new handshake.
func (e *Engine) ImportState(st domain.SessionState, now time.Time) error {
	lock := e.peerLock(st.PeerID)
	lock.Lock()
	defer lock.Unlock()

	if now.Sub(time.UnixMilli(st.ConfirmedAt)) > session.SessionLifetime {
		return fmt.Errorf("%w: confirmed %s", ErrSessionExpired, time.UnixMilli(st.ConfirmedAt).Format(time.RFC3339))
	}

	keys := st.Keys
	sess := &domain.Session{
		ID:           st.SessionID,
		PeerID:       st.PeerID,
		Keys:         &keys,
		Status:       domain.StatusConfirmed,
		CreatedAt:    time.UnixMilli(st.ConfirmedAt),
		ConfirmedAt:  time.UnixMilli(st.ConfirmedAt),
		LastActivity: now,
	}
	e.sessions.Store(st.PeerID, sess)
	e.setReplay(st.PeerID, transport.RestoreReplayState(st.ExpectedSeq, st.UsedNonces))
	return nil
}

func (e *Engine) peerLock(peer domain.UserID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[peer]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[peer] = lock
	}
	return lock
}

func (e *Engine) setReplay(peer domain.UserID, rs *transport.ReplayState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replay[peer] = rs
}

func (e *Engine) replayFor(peer domain.UserID) *transport.ReplayState {
	e.mu.Lock()
	defer e.mu.Unlock()
	rs, ok := e.replay[peer]
	if !ok {
		rs = transport.NewReplayState()
		e.replay[peer] = rs
	}
	return rs
}
