package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

var (
	// ErrBadPublicKey is returned when imported key bytes do not parse as a
	// key on the suite's curve.
	ErrBadPublicKey = errors.New("malformed or wrong-curve public key")
)

// Suite pins every asymmetric operation to a single named curve. One Suite
// value is threaded through all key generation so the agreement, signing and
// ephemeral keys cannot end up on different curves.
type Suite struct {
	agreement ecdh.Curve
	signing   elliptic.Curve
}

// P256 returns the protocol suite over NIST P-256. The shared secret it
// produces is 32 bytes.
func P256() Suite {
	return Suite{agreement: ecdh.P256(), signing: elliptic.P256()}
}

// SecretSize is the byte length of the ECDH output for this suite.
func (s Suite) SecretSize() int { return 32 }

// GenerateAgreementKey returns a fresh ECDH private key on the suite curve.
func (s Suite) GenerateAgreementKey() (*ecdh.PrivateKey, error) {
	return s.agreement.GenerateKey(rand.Reader)
}

// GenerateSigningKey returns a fresh ECDSA private key on the suite curve.
func (s Suite) GenerateSigningKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(s.signing, rand.Reader)
}

// ECDH runs the key agreement between our private key and the peer's public
// key, returning the raw shared secret.
func (s Suite) ECDH(priv *ecdh.PrivateKey, pub *ecdh.PublicKey) ([]byte, error) {
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	return secret, nil
}

// ExportPublic SPKI-encodes a long-term public key (ECDH or ECDSA).
func ExportPublic(pub any) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("export public key: %w", err)
	}
	return der, nil
}

// ImportAgreementPublic parses an SPKI-encoded ECDH public key and checks it
// lives on the suite curve.
func (s Suite) ImportAgreementPublic(der []byte) (*ecdh.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	switch k := parsed.(type) {
	case *ecdh.PublicKey:
		if k.Curve() != s.agreement {
			return nil, ErrBadPublicKey
		}
		return k, nil
	case *ecdsa.PublicKey:
		ek, err := k.ECDH()
		if err != nil || ek.Curve() != s.agreement {
			return nil, ErrBadPublicKey
		}
		return ek, nil
	default:
		return nil, ErrBadPublicKey
	}
}

// ImportSigningPublic parses an SPKI-encoded ECDSA public key on the suite
// curve.
func (s Suite) ImportSigningPublic(der []byte) (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok || pub.Curve != s.signing {
		return nil, ErrBadPublicKey
	}
	return pub, nil
}

// ImportEphemeralPublic parses a raw uncompressed curve point as used for
// ephemeral keys on the wire.
func (s Suite) ImportEphemeralPublic(raw []byte) (*ecdh.PublicKey, error) {
	pub, err := s.agreement.NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	return pub, nil
}

// Sign produces an ASN.1 ECDSA signature over the SHA-256 digest of msg.
func Sign(priv *ecdsa.PrivateKey, msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks an ASN.1 ECDSA signature over the SHA-256 digest of msg.
func Verify(pub *ecdsa.PublicKey, msg, sig []byte) bool {
	digest := sha256.Sum256(msg)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
