package confirm_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"skep/internal/domain"
	"skep/internal/protocol/confirm"
)

func keysWith(confirmation []byte) *domain.SessionKeys {
	return &domain.SessionKeys{ConfirmationKey: confirmation}
}

func TestChallengeResponse_MatchingKeys(t *testing.T) {
	now := time.Now()
	key := bytes.Repeat([]byte{0x11}, 32)
	sess := &domain.Session{ID: "s1", PeerID: "bob"}

	msg, pending, err := confirm.Initiate(keysWith(key), sess, now)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if err := confirm.ValidateChallenge(msg, now); err != nil {
		t.Fatalf("ValidateChallenge: %v", err)
	}

	// Peer with the same key answers; verification must pass.
	resp := confirm.Respond(msg.Challenge, keysWith(key))
	if !confirm.VerifyResponse(resp, pending.ExpectedResponse) {
		t.Fatal("matching keys failed confirmation")
	}
}

func TestChallengeResponse_DifferentKeyFails(t *testing.T) {
	now := time.Now()
	sess := &domain.Session{ID: "s1", PeerID: "bob"}

	msg, pending, err := confirm.Initiate(keysWith(bytes.Repeat([]byte{0x11}, 32)), sess, now)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	resp := confirm.Respond(msg.Challenge, keysWith(bytes.Repeat([]byte{0x22}, 32)))
	if confirm.VerifyResponse(resp, pending.ExpectedResponse) {
		t.Fatal("different keys passed confirmation")
	}
}

func TestVerifyResponse_ExactMatchOnly(t *testing.T) {
	expected := bytes.Repeat([]byte{0xAB}, 32)

	if !confirm.VerifyResponse(append([]byte(nil), expected...), expected) {
		t.Fatal("identical bytes rejected")
	}

	flipped := append([]byte(nil), expected...)
	flipped[31] ^= 0x01
	if confirm.VerifyResponse(flipped, expected) {
		t.Fatal("single flipped byte accepted")
	}
	if confirm.VerifyResponse(expected[:31], expected) {
		t.Fatal("short response accepted")
	}
	if confirm.VerifyResponse(nil, nil) {
		t.Fatal("empty comparison accepted")
	}
}

func TestValidateChallenge_BadLength(t *testing.T) {
	now := time.Now()
	msg := domain.ChallengeMessage{
		Type:        domain.TypeChallenge,
		SessionID:   "s1",
		ChallengeID: "c1",
		Challenge:   make([]byte, 16),
		Timestamp:   now.UnixMilli(),
	}
	if err := confirm.ValidateChallenge(msg, now); err == nil {
		t.Fatal("16-byte challenge accepted")
	}
}

func TestValidateResponse_BadLength(t *testing.T) {
	now := time.Now()
	msg := domain.ResponseMessage{
		Type:        domain.TypeResponse,
		SessionID:   "s1",
		ChallengeID: "c1",
		Response:    make([]byte, 31),
		Timestamp:   now.UnixMilli(),
	}
	if err := confirm.ValidateResponse(msg, now); err == nil {
		t.Fatal("31-byte response accepted")
	}
}

func TestValidate_StaleRejected(t *testing.T) {
	now := time.Now()
	challenge := domain.ChallengeMessage{
		Type:        domain.TypeChallenge,
		SessionID:   "s1",
		ChallengeID: "c1",
		Challenge:   make([]byte, confirm.ChallengeSize),
		Timestamp:   now.Add(-2 * time.Minute).UnixMilli(),
	}
	if err := confirm.ValidateChallenge(challenge, now); !errors.Is(err, confirm.ErrStaleMessage) {
		t.Fatalf("want ErrStaleMessage, got %v", err)
	}

	response := domain.ResponseMessage{
		Type:        domain.TypeResponse,
		SessionID:   "s1",
		ChallengeID: "c1",
		Response:    make([]byte, confirm.ChallengeSize),
		Timestamp:   now.Add(-2 * time.Minute).UnixMilli(),
	}
	if err := confirm.ValidateResponse(response, now); !errors.Is(err, confirm.ErrStaleMessage) {
		t.Fatalf("want ErrStaleMessage, got %v", err)
	}
}

func TestValidate_FutureTimestampRejected(t *testing.T) {
	now := time.Now()
	challenge := domain.ChallengeMessage{
		Type:        domain.TypeChallenge,
		SessionID:   "s1",
		ChallengeID: "c1",
		Challenge:   make([]byte, confirm.ChallengeSize),
		Timestamp:   now.Add(2 * time.Minute).UnixMilli(),
	}
	if err := confirm.ValidateChallenge(challenge, now); !errors.Is(err, confirm.ErrStaleMessage) {
		t.Fatalf("want ErrStaleMessage, got %v", err)
	}
}

func TestInitiate_ChallengeNeverRepeats(t *testing.T) {
	now := time.Now()
	keys := keysWith(bytes.Repeat([]byte{0x11}, 32))
	sess := &domain.Session{ID: "s1", PeerID: "bob"}

	a, _, err := confirm.Initiate(keys, sess, now)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	b, _, err := confirm.Initiate(keys, sess, now)
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if bytes.Equal(a.Challenge, b.Challenge) {
		t.Fatal("two challenges identical")
	}
	if a.ChallengeID == b.ChallengeID {
		t.Fatal("two challenge ids identical")
	}
}
