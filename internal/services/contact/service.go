package contact

import (
	"fmt"

	"skep/internal/crypto"
	"skep/internal/domain"
)

// Service exposes peer records and the fingerprint renderings used for
// out-of-band verification.
type Service struct {
	idStore   domain.IdentityStore
	peerStore domain.PeerStore
}

// New returns a contact service over the given stores.
func New(idStore domain.IdentityStore, peerStore domain.PeerStore) *Service {
	return &Service{idStore: idStore, peerStore: peerStore}
}

// List returns all known peers.
func (s *Service) List() ([]domain.PeerRecord, error) {
	return s.peerStore.ListPeers()
}

// Get returns one peer record.
func (s *Service) Get(peer domain.UserID) (domain.PeerRecord, bool, error) {
	return s.peerStore.LoadPeer(peer)
}

// Verify marks a peer as verified after the user compared fingerprints out
// of band.
func (s *Service) Verify(peer domain.UserID) error {
	return s.peerStore.MarkVerified(peer)
}

// FingerprintWith renders the shared fingerprint between the local identity
// and the peer in all three forms. Both parties see identical output.
func (s *Service) FingerprintWith(passphrase string, peer domain.UserID) (hex, numeric, emoji string, err error) {
	id, err := s.idStore.LoadIdentity(passphrase)
	if err != nil {
		return "", "", "", err
	}
	bundle, err := crypto.PublicBundle(id)
	if err != nil {
		return "", "", "", err
	}
	rec, ok, err := s.peerStore.LoadPeer(peer)
	if err != nil {
		return "", "", "", err
	}
	if !ok {
		return "", "", "", fmt.Errorf("peer %q not known; exchange hellos first", peer)
	}

	digest := crypto.FingerprintMaterial(bundle.AgreementKey, rec.AgreementKey)
	return crypto.HexFingerprint(digest), crypto.NumericFingerprint(digest), crypto.EmojiFingerprint(digest), nil
}

// Compile-time assertion that Service implements domain.ContactService.
var _ domain.ContactService = (*Service)(nil)
