package domain

import (
	"crypto/ecdh"
	"time"
)

// SessionStatus tracks how far a key-exchange session has advanced. The
// machine only moves forward; a failed step deletes the session rather than
// rewinding it.
type SessionStatus string

const (
	StatusInitiated           SessionStatus = "initiated"
	StatusEphemeralCreated    SessionStatus = "ephemeral_created"
	StatusSharedSecretDerived SessionStatus = "shared_secret_derived"
	StatusKeysDerived         SessionStatus = "keys_derived"
	StatusConfirmed           SessionStatus = "confirmed"
)

// Session is the in-flight (and, once confirmed, long-lived) state for one
// peer conversation.
//
// SharedSecret holds the raw ECDH output only between derivation steps. It is
// consumed exactly once to derive SessionKeys and wiped immediately after;
// it must never be logged or exported.
type Session struct {
	ID             SessionID
	PeerID         UserID
	LocalEphemeral *ecdh.PrivateKey
	PeerEphemeral  *ecdh.PublicKey
	SharedSecret   []byte
	Keys           *SessionKeys
	Salt           []byte
	Status         SessionStatus
	Initiator      bool
	CreatedAt      time.Time
	LastActivity   time.Time
	ConfirmedAt    time.Time
}

// SessionKeys is the HKDF output for one session: four purpose-separated
// subkeys plus the IV seed. MessageCount advances on every send and must
// never repeat for two plaintexts under the same EncryptionKey.
type SessionKeys struct {
	EncryptionKey   []byte `json:"encryption_key"`
	ConfirmationKey []byte `json:"confirmation_key"`
	AuthKey         []byte `json:"auth_key"`
	IVSeed          []byte `json:"iv_seed"`
	Salt            []byte `json:"salt"`
	DerivedAt       int64  `json:"derived_at"`
	MessageCount    uint32 `json:"message_count"`
}

// PendingChallenge tracks a key-confirmation challenge we issued and the
// response we expect back. Consumed on match or swept after five minutes.
type PendingChallenge struct {
	ID               ChallengeID
	SessionID        SessionID
	PeerID           UserID
	ExpectedResponse []byte
	IssuedAt         time.Time
}

// SessionState is the durable form of a confirmed session: the derived keys
// plus the replay-protection counters for both directions. Ephemeral private
// keys and the raw shared secret are never part of it.
type SessionState struct {
	SessionID   SessionID   `json:"session_id"`
	PeerID      UserID      `json:"peer_id"`
	Keys        SessionKeys `json:"keys"`
	ExpectedSeq uint64      `json:"expected_seq"`
	UsedNonces  []string    `json:"used_nonces"`
	ConfirmedAt int64       `json:"confirmed_at"`
}
