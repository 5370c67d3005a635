package keyring_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"skep/internal/domain"
	"skep/internal/protocol/keyring"
)

func TestDeriveSessionKeys_BothSidesMatch(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	salt := bytes.Repeat([]byte{0x01}, keyring.SaltSize)

	a, err := keyring.DeriveSessionKeys(secret, salt, keyring.Context)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	b, err := keyring.DeriveSessionKeys(secret, salt, keyring.Context)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}

	if !bytes.Equal(a.EncryptionKey, b.EncryptionKey) ||
		!bytes.Equal(a.ConfirmationKey, b.ConfirmationKey) ||
		!bytes.Equal(a.AuthKey, b.AuthKey) ||
		!bytes.Equal(a.IVSeed, b.IVSeed) {
		t.Fatal("same secret and salt produced different keys")
	}
}

func TestDeriveSessionKeys_SubkeysIndependent(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	salt := bytes.Repeat([]byte{0x01}, keyring.SaltSize)

	keys, err := keyring.DeriveSessionKeys(secret, salt, keyring.Context)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	if len(keys.EncryptionKey) != 32 || len(keys.ConfirmationKey) != 32 || len(keys.AuthKey) != 32 {
		t.Fatal("wrong subkey length")
	}
	if len(keys.IVSeed) != keyring.IVSeedSize {
		t.Fatalf("iv seed length %d, want %d", len(keys.IVSeed), keyring.IVSeedSize)
	}
	if bytes.Equal(keys.EncryptionKey, keys.ConfirmationKey) ||
		bytes.Equal(keys.EncryptionKey, keys.AuthKey) ||
		bytes.Equal(keys.ConfirmationKey, keys.AuthKey) {
		t.Fatal("subkeys are not independent")
	}
}

func TestDeriveSessionKeys_SaltChangesEverything(t *testing.T) {
	secret := bytes.Repeat([]byte{0x42}, 32)
	salt1 := bytes.Repeat([]byte{0x01}, keyring.SaltSize)
	salt2 := bytes.Repeat([]byte{0x02}, keyring.SaltSize)

	a, _ := keyring.DeriveSessionKeys(secret, salt1, keyring.Context)
	b, _ := keyring.DeriveSessionKeys(secret, salt2, keyring.Context)
	if bytes.Equal(a.EncryptionKey, b.EncryptionKey) {
		t.Fatal("different salts produced the same encryption key")
	}
}

func TestDeriveSessionKeys_BadInputs(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, keyring.SaltSize)
	if _, err := keyring.DeriveSessionKeys(nil, salt, keyring.Context); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := keyring.DeriveSessionKeys([]byte{1}, []byte("short"), keyring.Context); err == nil {
		t.Fatal("expected error for short salt")
	}
}

func TestGenerateSalt(t *testing.T) {
	a, err := keyring.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	b, err := keyring.GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}
	if len(a) != keyring.SaltSize {
		t.Fatalf("salt length %d, want %d", len(a), keyring.SaltSize)
	}
	if bytes.Equal(a, b) {
		t.Fatal("two salts identical")
	}
}

func TestDeriveDeterministicIV_StableAndUnique(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, keyring.IVSeedSize)

	iv1, err := keyring.DeriveDeterministicIV(seed, "alice", 42)
	if err != nil {
		t.Fatalf("DeriveDeterministicIV: %v", err)
	}
	iv2, err := keyring.DeriveDeterministicIV(seed, "alice", 42)
	if err != nil {
		t.Fatalf("DeriveDeterministicIV: %v", err)
	}
	if !bytes.Equal(iv1, iv2) {
		t.Fatal("same counter produced different IVs")
	}
	if len(iv1) != keyring.IVSize {
		t.Fatalf("iv length %d, want %d", len(iv1), keyring.IVSize)
	}

	// Collision sweep over a large counter sample.
	seen := make(map[string]uint32, 1<<16)
	for c := uint32(0); c < 1<<16; c++ {
		iv, err := keyring.DeriveDeterministicIV(seed, "alice", c)
		if err != nil {
			t.Fatalf("DeriveDeterministicIV(%d): %v", c, err)
		}
		key := hex.EncodeToString(iv)
		if prev, dup := seen[key]; dup {
			t.Fatalf("iv collision between counters %d and %d", prev, c)
		}
		seen[key] = c
	}
}

func TestDeriveDeterministicIV_SendersPartitionIVSpace(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, keyring.IVSeedSize)

	// Both directions share the seed and run their own counters from zero;
	// the sender identity must keep the IV streams disjoint.
	seen := make(map[string]string, 2<<10)
	for c := uint32(0); c < 1<<10; c++ {
		for _, sender := range []string{"alice", "bob"} {
			iv, err := keyring.DeriveDeterministicIV(seed, domain.UserID(sender), c)
			if err != nil {
				t.Fatalf("DeriveDeterministicIV(%s, %d): %v", sender, c, err)
			}
			key := hex.EncodeToString(iv)
			if prev, dup := seen[key]; dup {
				t.Fatalf("iv collision between %s and %s at counter %d", prev, sender, c)
			}
			seen[key] = sender
		}
	}
}

func TestDeriveDeterministicIV_BadInputs(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, keyring.IVSeedSize)
	if _, err := keyring.DeriveDeterministicIV([]byte("short"), "alice", 1); err == nil {
		t.Fatal("expected error for short seed")
	}
	if _, err := keyring.DeriveDeterministicIV(seed, "", 1); err == nil {
		t.Fatal("expected error for missing sender")
	}
}
