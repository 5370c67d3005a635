package handshake

import (
	"errors"
	"fmt"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/protocol/keyring"
)

const (
	// MaxMessageAge is how old a hello or ephemeral-exchange message may be
	// before it is rejected outright, signature or not.
	MaxMessageAge = 5 * time.Minute

	// helloNonceSize is the random nonce carried in every hello.
	helloNonceSize = 16
)

var (
	// ErrSignatureInvalid is a distinguished security error: the peer's
	// ephemeral key was not signed by the long-term key we know for them.
	ErrSignatureInvalid = errors.New("ephemeral key signature invalid")

	// ErrStaleMessage marks a handshake message older than MaxMessageAge.
	ErrStaleMessage = errors.New("handshake message too old")

	// ErrMalformedMessage marks a message with missing or bad fields.
	ErrMalformedMessage = errors.New("malformed handshake message")

	// ErrBadState is returned when a step arrives for a session that is not
	// in the state the step requires.
	ErrBadState = errors.New("session not in required state")
)

// NewHello builds the opening message of a handshake from the local identity.
func NewHello(id domain.IdentityKeyPair, peer domain.UserID, now time.Time) (domain.HelloMessage, error) {
	bundle, err := crypto.PublicBundle(id)
	if err != nil {
		return domain.HelloMessage{}, fmt.Errorf("export identity: %w", err)
	}
	nonce, err := crypto.RandomBytes(helloNonceSize)
	if err != nil {
		return domain.HelloMessage{}, err
	}
	return domain.HelloMessage{
		Type:         domain.TypeHello,
		Version:      domain.ProtocolVersion,
		UserID:       id.UserID,
		PeerID:       peer,
		AgreementKey: bundle.AgreementKey,
		SigningKey:   bundle.SigningKey,
		Nonce:        nonce,
		Timestamp:    now.UnixMilli(),
	}, nil
}

// ValidateHello checks a received hello for completeness, version agreement
// and freshness. Stateless.
func ValidateHello(msg domain.HelloMessage, now time.Time) error {
	if msg.Type != domain.TypeHello {
		return fmt.Errorf("%w: type %q", ErrMalformedMessage, msg.Type)
	}
	if msg.Version != domain.ProtocolVersion {
		return fmt.Errorf("%w: version %q", ErrMalformedMessage, msg.Version)
	}
	if msg.UserID == "" || msg.PeerID == "" {
		return fmt.Errorf("%w: missing user ids", ErrMalformedMessage)
	}
	if len(msg.AgreementKey) == 0 || len(msg.SigningKey) == 0 {
		return fmt.Errorf("%w: missing public keys", ErrMalformedMessage)
	}
	if len(msg.Nonce) != helloNonceSize {
		return fmt.Errorf("%w: nonce length %d", ErrMalformedMessage, len(msg.Nonce))
	}
	if tooOld(msg.Timestamp, now, MaxMessageAge) {
		return ErrStaleMessage
	}
	return nil
}

// NewSession creates the session record for a starting handshake.
func NewSession(sessionID domain.SessionID, peer domain.UserID, initiator bool, now time.Time) *domain.Session {
	return &domain.Session{
		ID:           sessionID,
		PeerID:       peer,
		Status:       domain.StatusInitiated,
		Initiator:    initiator,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// CreateEphemeralExchange generates a fresh ephemeral key for the session,
// signs its raw point bytes together with the salt under the long-term
// signing key and builds the wire message. Covering the salt means a
// tampered salt fails at signature verification instead of surfacing later
// as a key-confirmation mismatch. salt is the session HKDF salt: the
// responder passes the one it generated, the initiator echoes the peer's.
// Moves the session to ephemeral_created.
func CreateEphemeralExchange(
	suite crypto.Suite,
	id domain.IdentityKeyPair,
	sess *domain.Session,
	salt []byte,
	now time.Time,
) (domain.EphemeralMessage, error) {
	if sess.Status != domain.StatusInitiated {
		return domain.EphemeralMessage{}, fmt.Errorf("%w: %s", ErrBadState, sess.Status)
	}
	if len(salt) != keyring.SaltSize {
		return domain.EphemeralMessage{}, fmt.Errorf("%w: salt length %d", ErrMalformedMessage, len(salt))
	}

	eph, err := suite.GenerateAgreementKey()
	if err != nil {
		return domain.EphemeralMessage{}, fmt.Errorf("generate ephemeral key: %w", err)
	}
	raw := eph.PublicKey().Bytes()

	sig, err := crypto.Sign(id.Signing, signedPayload(raw, salt))
	if err != nil {
		return domain.EphemeralMessage{}, fmt.Errorf("sign ephemeral key: %w", err)
	}

	sess.LocalEphemeral = eph
	sess.Salt = append([]byte(nil), salt...)
	sess.Status = domain.StatusEphemeralCreated
	sess.LastActivity = now

	return domain.EphemeralMessage{
		Type:               domain.TypeEphemeral,
		SessionID:          sess.ID,
		UserID:             id.UserID,
		EphemeralPublicKey: raw,
		Signature:          sig,
		Salt:               append([]byte(nil), salt...),
		Timestamp:          now.UnixMilli(),
	}, nil
}

// ValidateEphemeral checks a received ephemeral-exchange message for
// completeness and freshness. Stateless; signature verification happens in
// VerifyAndDeriveSharedSecret.
func ValidateEphemeral(msg domain.EphemeralMessage, now time.Time) error {
	if msg.Type != domain.TypeEphemeral {
		return fmt.Errorf("%w: type %q", ErrMalformedMessage, msg.Type)
	}
	if msg.SessionID == "" || msg.UserID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrMalformedMessage)
	}
	if len(msg.EphemeralPublicKey) == 0 || len(msg.Signature) == 0 {
		return fmt.Errorf("%w: missing key or signature", ErrMalformedMessage)
	}
	if len(msg.Salt) != keyring.SaltSize {
		return fmt.Errorf("%w: salt length %d", ErrMalformedMessage, len(msg.Salt))
	}
	if tooOld(msg.Timestamp, now, MaxMessageAge) {
		return ErrStaleMessage
	}
	return nil
}

// VerifyAndDeriveSharedSecret verifies the peer's signature over their raw
// ephemeral point and the message salt and, on success, runs ECDH between
// our ephemeral private key and theirs. peerSigningKey is the SPKI long-term
// signing key we hold for the peer. Moves the session to
// shared_secret_derived.
//
// A signature failure returns ErrSignatureInvalid and must abort the whole
// handshake; never continue past it.
func VerifyAndDeriveSharedSecret(
	suite crypto.Suite,
	sess *domain.Session,
	msg domain.EphemeralMessage,
	peerSigningKey []byte,
	now time.Time,
) ([]byte, error) {
	if sess.Status != domain.StatusEphemeralCreated {
		return nil, fmt.Errorf("%w: %s", ErrBadState, sess.Status)
	}
	if sess.LocalEphemeral == nil {
		return nil, fmt.Errorf("%w: no local ephemeral key", ErrBadState)
	}

	signing, err := suite.ImportSigningPublic(peerSigningKey)
	if err != nil {
		return nil, fmt.Errorf("import peer signing key: %w", err)
	}
	if !crypto.Verify(signing, signedPayload(msg.EphemeralPublicKey, msg.Salt), msg.Signature) {
		return nil, ErrSignatureInvalid
	}

	peerEph, err := suite.ImportEphemeralPublic(msg.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("import peer ephemeral key: %w", err)
	}

	secret, err := suite.ECDH(sess.LocalEphemeral, peerEph)
	if err != nil {
		return nil, fmt.Errorf("derive shared secret: %w", err)
	}

	sess.PeerEphemeral = peerEph
	sess.SharedSecret = secret
	sess.Status = domain.StatusSharedSecretDerived
	sess.LastActivity = now
	return secret, nil
}

// signedPayload is what the ECDSA signature in an ephemeral-exchange message
// covers: the raw public point followed by the session salt.
func signedPayload(point, salt []byte) []byte {
	out := make([]byte, 0, len(point)+len(salt))
	out = append(out, point...)
	return append(out, salt...)
}

// tooOld rejects a timestamp outside the freshness window in either
// direction; a future-dated message is as invalid as a stale one.
func tooOld(tsMillis int64, now time.Time, max time.Duration) bool {
	age := now.UnixMilli() - tsMillis
	return age > max.Milliseconds() || -age > max.Milliseconds()
}
