package domain

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"time"
)

// IdentityKeyPair holds your long-term P-256 key material: an ECDH pair for
// key agreement and an ECDSA pair for signing ephemeral keys.
type IdentityKeyPair struct {
	UserID      UserID
	Agreement   *ecdh.PrivateKey
	Signing     *ecdsa.PrivateKey
	GeneratedAt time.Time
}

// PublicBundle is the public half of an identity, as published to the relay
// and handed out by the contact directory. Both keys are SPKI-encoded.
type PublicBundle struct {
	UserID       UserID `json:"user_id"`
	AgreementKey []byte `json:"agreement_key"`
	SigningKey   []byte `json:"signing_key"`
}

// PeerRecord is what we remember about a contact after their first hello.
// Verified is advisory: it records an out-of-band fingerprint comparison and
// does not by itself gate message acceptance.
type PeerRecord struct {
	PeerID       UserID    `json:"peer_id"`
	AgreementKey []byte    `json:"agreement_key"`
	SigningKey   []byte    `json:"signing_key"`
	Verified     bool      `json:"verified"`
	AddedAt      time.Time `json:"added_at"`
}
