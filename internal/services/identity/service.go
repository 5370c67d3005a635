package identity

import (
	"fmt"
	"unicode"

	"skep/internal/crypto"
	"skep/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service manages identity key creation and access using a backing store.
//
// The identity contains:
//   - ECDH P-256 key pair for key agreement during the handshake.
//   - ECDSA P-256 key pair for signing ephemeral keys.
type Service struct {
	suite crypto.Suite
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(suite crypto.Suite, s domain.IdentityStore) *Service {
	return &Service{suite: suite, store: s}
}

// Generate creates a new identity, saves it encrypted with the passphrase,
// and returns the identity plus a short fingerprint of the agreement key.
func (s *Service) Generate(passphrase string, user domain.UserID) (domain.IdentityKeyPair, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.IdentityKeyPair{}, "", ErrWeakPassphrase
	}

	id, err := crypto.GenerateIdentity(s.suite, user)
	if err != nil {
		return domain.IdentityKeyPair{}, "", err
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.IdentityKeyPair{}, "", err
	}

	bundle, err := crypto.PublicBundle(id)
	if err != nil {
		return domain.IdentityKeyPair{}, "", err
	}
	return id, domain.Fingerprint(crypto.ShortFingerprint(bundle.AgreementKey)), nil
}

// Load decrypts and returns the local identity.
func (s *Service) Load(passphrase string) (domain.IdentityKeyPair, error) {
	return s.store.LoadIdentity(passphrase)
}

// Fingerprint returns a short fingerprint of the local agreement public key.
func (s *Service) Fingerprint(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	bundle, err := crypto.PublicBundle(id)
	if err != nil {
		return "", err
	}
	return domain.Fingerprint(crypto.ShortFingerprint(bundle.AgreementKey)), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
