package crypto

import (
	"errors"
	"fmt"
	"time"

	"skep/internal/domain"
)

// ErrIdentityGeneration wraps any key-generation fault during identity
// creation so callers can treat it as one failure class.
var ErrIdentityGeneration = errors.New("identity generation failed")

// GenerateIdentity creates the long-term key material for a user: one ECDH
// pair for key agreement and one ECDSA pair for signing, both on the suite
// curve. Persistence is the caller's concern.
func GenerateIdentity(suite Suite, user domain.UserID) (domain.IdentityKeyPair, error) {
	agreement, err := suite.GenerateAgreementKey()
	if err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("%w: agreement key: %v", ErrIdentityGeneration, err)
	}
	signing, err := suite.GenerateSigningKey()
	if err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("%w: signing key: %v", ErrIdentityGeneration, err)
	}
	return domain.IdentityKeyPair{
		UserID:      user,
		Agreement:   agreement,
		Signing:     signing,
		GeneratedAt: time.Now(),
	}, nil
}

// PublicBundle exports the public halves of an identity in SPKI form.
func PublicBundle(id domain.IdentityKeyPair) (domain.PublicBundle, error) {
	agreement, err := ExportPublic(id.Agreement.PublicKey())
	if err != nil {
		return domain.PublicBundle{}, err
	}
	signing, err := ExportPublic(&id.Signing.PublicKey)
	if err != nil {
		return domain.PublicBundle{}, err
	}
	return domain.PublicBundle{
		UserID:       id.UserID,
		AgreementKey: agreement,
		SigningKey:   signing,
	}, nil
}
