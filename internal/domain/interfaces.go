package domain

import "context"

// IdentityStore persists your long-term identity keys, encrypted under a
// passphrase.
type IdentityStore interface {
	SaveIdentity(passphrase string, id IdentityKeyPair) error
	LoadIdentity(passphrase string) (IdentityKeyPair, error)
}

// PeerStore keeps records of known contacts and their public keys.
type PeerStore interface {
	SavePeer(rec PeerRecord) error
	LoadPeer(peer UserID) (PeerRecord, bool, error)
	ListPeers() ([]PeerRecord, error)
	MarkVerified(peer UserID) error
}

// SessionStore persists confirmed session state between CLI invocations.
type SessionStore interface {
	SaveSessionState(peer UserID, st SessionState) error
	LoadSessionState(peer UserID) (SessionState, bool, error)
	DeleteSessionState(peer UserID) error
}

// Directory resolves a user to their published public-key bundle. The core
// treats it as a read-only oracle.
type Directory interface {
	PublicKeyBundle(ctx context.Context, user UserID) (PublicBundle, error)
}

// RelayClient is how we talk to the central relay server.
type RelayClient interface {
	Register(ctx context.Context, b PublicBundle) error
	PublicKeyBundle(ctx context.Context, user UserID) (PublicBundle, error)

	SendEnvelope(ctx context.Context, env Envelope) error
	FetchEnvelopes(ctx context.Context, user UserID, limit int) ([]Envelope, error)
	AckEnvelopes(ctx context.Context, user UserID, count int) error
}

// IdentityService creates and exposes the local identity.
type IdentityService interface {
	Generate(passphrase string, user UserID) (IdentityKeyPair, Fingerprint, error)
	Load(passphrase string) (IdentityKeyPair, error)
	Fingerprint(passphrase string) (Fingerprint, error)
}

// ContactService manages peer records and out-of-band verification.
type ContactService interface {
	List() ([]PeerRecord, error)
	Get(peer UserID) (PeerRecord, bool, error)
	Verify(peer UserID) error
	FingerprintWith(passphrase string, peer UserID) (hex, numeric, emoji string, err error)
}

// MessageService runs handshakes and encrypts, sends, fetches and decrypts
// messages. Receive reports envelopes it had to drop alongside the ones it
// decrypted.
type MessageService interface {
	Handshake(ctx context.Context, passphrase string, peer UserID) error
	Send(ctx context.Context, passphrase string, peer UserID, plaintext []byte) error
	Receive(ctx context.Context, passphrase string, limit int) ([]DecryptedMessage, []RejectedMessage, error)
}
