package crypto

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"time"

	"skep/internal/domain"
)

// identityBlob is the serialised form of an identity, private halves
// included. It only ever exists inside the encrypted store envelope.
type identityBlob struct {
	UserID       domain.UserID `json:"user_id"`
	AgreementKey []byte        `json:"agreement_key"`
	SigningKey   []byte        `json:"signing_key"`
	GeneratedAt  int64         `json:"generated_at"`
}

// ExportIdentity serialises an identity, private keys included, for the
// encrypted store. The agreement key is raw scalar bytes, the signing key
// PKCS#8.
func ExportIdentity(id domain.IdentityKeyPair) ([]byte, error) {
	signing, err := x509.MarshalPKCS8PrivateKey(id.Signing)
	if err != nil {
		return nil, fmt.Errorf("export signing key: %w", err)
	}
	return json.Marshal(identityBlob{
		UserID:       id.UserID,
		AgreementKey: id.Agreement.Bytes(),
		SigningKey:   signing,
		GeneratedAt:  id.GeneratedAt.UnixMilli(),
	})
}

// ImportIdentity reverses ExportIdentity, checking the keys against the
// suite curve.
func ImportIdentity(suite Suite, raw []byte) (domain.IdentityKeyPair, error) {
	var blob identityBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("parse identity: %w", err)
	}
	agreement, err := suite.agreement.NewPrivateKey(blob.AgreementKey)
	if err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("import agreement key: %w", err)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(blob.SigningKey)
	if err != nil {
		return domain.IdentityKeyPair{}, fmt.Errorf("import signing key: %w", err)
	}
	signing, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || signing.Curve != suite.signing {
		return domain.IdentityKeyPair{}, ErrBadPublicKey
	}
	return domain.IdentityKeyPair{
		UserID:      blob.UserID,
		Agreement:   agreement,
		Signing:     signing,
		GeneratedAt: time.UnixMilli(blob.GeneratedAt),
	}, nil
}
