package confirm

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
)

const (
	// ChallengeSize is the random challenge length; responses are HMAC-SHA256
	// outputs of the same size.
	ChallengeSize = 32

	// MaxMessageAge is how old a confirmation message may be before it is
	// rejected.
	MaxMessageAge = time.Minute
)

var (
	// ErrMismatch is the protocol-integrity failure: the peer's response does
	// not match the locally expected HMAC. The session must be destroyed.
	ErrMismatch = errors.New("confirmation response mismatch")

	// ErrMalformedMessage marks a confirmation message with bad fields.
	ErrMalformedMessage = errors.New("malformed confirmation message")

	// ErrStaleMessage marks a confirmation message older than MaxMessageAge.
	ErrStaleMessage = errors.New("confirmation message too old")
)

// Initiate builds a challenge message for the session and the pending record
// holding the expected response. The expected HMAC never goes on the wire.
func Initiate(keys *domain.SessionKeys, sess *domain.Session, now time.Time) (domain.ChallengeMessage, domain.PendingChallenge, error) {
	challenge, err := crypto.RandomBytes(ChallengeSize)
	if err != nil {
		return domain.ChallengeMessage{}, domain.PendingChallenge{}, fmt.Errorf("generate challenge: %w", err)
	}
	id, err := crypto.RandomBytes(8)
	if err != nil {
		return domain.ChallengeMessage{}, domain.PendingChallenge{}, err
	}
	challengeID := domain.ChallengeID(hex.EncodeToString(id))

	msg := domain.ChallengeMessage{
		Type:        domain.TypeChallenge,
		SessionID:   sess.ID,
		ChallengeID: challengeID,
		Challenge:   challenge,
		Timestamp:   now.UnixMilli(),
	}
	pending := domain.PendingChallenge{
		ID:               challengeID,
		SessionID:        sess.ID,
		PeerID:           sess.PeerID,
		ExpectedResponse: Respond(challenge, keys),
		IssuedAt:         now,
	}
	return msg, pending, nil
}

// Respond computes the HMAC-SHA256 over the challenge under the confirmation
// key. Both sides call this; if their keys agree, so do the outputs.
func Respond(challenge []byte, keys *domain.SessionKeys) []byte {
	mac := hmac.New(sha256.New, keys.ConfirmationKey)
	mac.Write(challenge)
	return mac.Sum(nil)
}

// VerifyResponse compares the peer's response against the expected HMAC in
// fixed time.
func VerifyResponse(response, expected []byte) bool {
	if len(response) != len(expected) || len(expected) == 0 {
		return false
	}
	var v byte
	for i := range expected {
		v |= response[i] ^ expected[i]
	}
	return v == 0
}

// ValidateChallenge checks a received challenge message.
func ValidateChallenge(msg domain.ChallengeMessage, now time.Time) error {
	if msg.Type != domain.TypeChallenge {
		return fmt.Errorf("%w: type %q", ErrMalformedMessage, msg.Type)
	}
	if msg.SessionID == "" || msg.ChallengeID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrMalformedMessage)
	}
	if len(msg.Challenge) != ChallengeSize {
		return fmt.Errorf("%w: challenge length %d", ErrMalformedMessage, len(msg.Challenge))
	}
	if tooOld(msg.Timestamp, now) {
		return ErrStaleMessage
	}
	return nil
}

// ValidateResponse checks a received response message.
func ValidateResponse(msg domain.ResponseMessage, now time.Time) error {
	if msg.Type != domain.TypeResponse {
		return fmt.Errorf("%w: type %q", ErrMalformedMessage, msg.Type)
	}
	if msg.SessionID == "" || msg.ChallengeID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrMalformedMessage)
	}
	if len(msg.Response) != ChallengeSize {
		return fmt.Errorf("%w: response length %d", ErrMalformedMessage, len(msg.Response))
	}
	if tooOld(msg.Timestamp, now) {
		return ErrStaleMessage
	}
	return nil
}

// tooOld rejects timestamps outside the window in either direction.
func tooOld(tsMillis int64, now time.Time) bool {
	age := now.UnixMilli() - tsMillis
	return age > MaxMessageAge.Milliseconds() || -age > MaxMessageAge.Milliseconds()
}
