package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"skep/internal/domain"
)

const (
	// Context is the HKDF domain-separation prefix for this protocol version.
	Context = "skep-v1"

	// SaltSize is the per-session HKDF salt length in bytes.
	SaltSize = 32

	// IVSeedSize is the length of the deterministic-IV seed.
	IVSeedSize = 16

	// IVSize is the AES-GCM nonce length.
	IVSize = 12

	keySize = 32
)

var (
	// ErrEmptySecret is returned when key derivation is attempted without a
	// shared secret.
	ErrEmptySecret = errors.New("empty shared secret")

	// ErrBadSalt is returned for a missing or wrong-length salt.
	ErrBadSalt = errors.New("bad salt length")
)

// DeriveSessionKeys expands sharedSecret into the four session subkeys. Both
// parties must pass the same salt and context for the outputs to match; the
// caller owns wiping sharedSecret afterwards.
func DeriveSessionKeys(sharedSecret, salt []byte, context string) (domain.SessionKeys, error) {
	if len(sharedSecret) == 0 {
		return domain.SessionKeys{}, ErrEmptySecret
	}
	if len(salt) != SaltSize {
		return domain.SessionKeys{}, ErrBadSalt
	}
	if context == "" {
		context = Context
	}

	encKey, err := expand(sharedSecret, salt, context+"-encryption", keySize)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	confKey, err := expand(sharedSecret, salt, context+"-confirmation", keySize)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	ivSeed, err := expand(sharedSecret, salt, context+"-iv-seed", IVSeedSize)
	if err != nil {
		return domain.SessionKeys{}, err
	}
	authKey, err := expand(sharedSecret, salt, context+"-authentication", keySize)
	if err != nil {
		return domain.SessionKeys{}, err
	}

	return domain.SessionKeys{
		EncryptionKey:   encKey,
		ConfirmationKey: confKey,
		AuthKey:         authKey,
		IVSeed:          ivSeed,
		Salt:            append([]byte(nil), salt...),
		DerivedAt:       time.Now().UnixMilli(),
	}, nil
}

// GenerateSalt returns a fresh random HKDF salt. The responder generates it
// once per session and ships it inside the ephemeral-exchange message.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveDeterministicIV hashes seed || sender || 0 || big-endian counter and
// truncates to the GCM nonce size. Both parties encrypt under the same
// session key, so the sender identity partitions the IV space between the
// two directions; a counter value can repeat across directions without ever
// repeating an IV under the key.
func DeriveDeterministicIV(seed []byte, sender domain.UserID, counter uint32) ([]byte, error) {
	if len(seed) != IVSeedSize {
		return nil, fmt.Errorf("iv seed must be %d bytes, got %d", IVSeedSize, len(seed))
	}
	if sender == "" {
		return nil, errors.New("iv derivation requires a sender")
	}
	buf := make([]byte, 0, IVSeedSize+len(sender)+5)
	buf = append(buf, seed...)
	buf = append(buf, sender...)
	buf = append(buf, 0)
	var ctr [4]byte
	binary.BigEndian.PutUint32(ctr[:], counter)
	buf = append(buf, ctr[:]...)
	sum := sha256.Sum256(buf)
	return sum[:IVSize], nil
}

func expand(secret, salt []byte, info string, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("hkdf %q: %w", info, err)
	}
	return out, nil
}
