package transport

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"skep/internal/crypto"
	"skep/internal/domain"
	"skep/internal/protocol/keyring"
)

const (
	// MaxMessageAge is the inbound freshness window, applied in both
	// directions: a timestamp that far in the future is as suspect as one
	// that far in the past.
	MaxMessageAge = 5 * time.Minute

	// replayNonceSize is the random per-message replay-guard value, distinct
	// from the GCM IV.
	replayNonceSize = 16

	gcmTagSize = 16
)

var (
	// ErrMessageTooOld rejects messages outside the freshness window.
	ErrMessageTooOld = errors.New("message too old")

	// ErrReplayDetected rejects a nonce that was already accepted.
	ErrReplayDetected = errors.New("replay detected")

	// ErrSequenceMismatch rejects any sequence number other than the exact
	// one expected next.
	ErrSequenceMismatch = errors.New("sequence number mismatch")

	// ErrTampered is the AEAD failure: ciphertext, tag, IV or bound header
	// fields were altered, or the keys differ.
	ErrTampered = errors.New("message tampered with or wrong key")
)

// Encode encrypts plaintext as the next message of the session. seq must be
// exactly one past the previously sent sequence number; keys.MessageCount is
// advanced to keep the deterministic IV counter in lockstep.
func Encode(
	plaintext []byte,
	sender, receiver domain.UserID,
	keys *domain.SessionKeys,
	seq uint64,
	now time.Time,
) (domain.EncryptedMessage, error) {
	var iv []byte
	var err error
	if len(keys.IVSeed) == keyring.IVSeedSize {
		iv, err = keyring.DeriveDeterministicIV(keys.IVSeed, sender, keys.MessageCount)
	} else {
		iv, err = crypto.RandomBytes(keyring.IVSize)
	}
	if err != nil {
		return domain.EncryptedMessage{}, err
	}

	nonce, err := crypto.RandomBytes(replayNonceSize)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}

	aead, err := newGCM(keys.EncryptionKey)
	if err != nil {
		return domain.EncryptedMessage{}, err
	}

	ad := headerDigest(keys.AuthKey, sender, receiver, seq, nonce)
	sealed := aead.Seal(nil, iv, plaintext, ad)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	keys.MessageCount++

	return domain.EncryptedMessage{
		SenderID:       sender,
		ReceiverID:     receiver,
		Ciphertext:     ct,
		IV:             iv,
		AuthTag:        tag,
		Nonce:          nonce,
		SequenceNumber: seq,
		Timestamp:      now.UnixMilli(),
	}, nil
}

// Decode validates and decrypts an inbound message. Validation is fail-fast
// in a fixed order, each failure a distinct error; replay state advances
// only after the AEAD opens.
func Decode(
	msg domain.EncryptedMessage,
	keys *domain.SessionKeys,
	replay *ReplayState,
	now time.Time,
) ([]byte, error) {
	if age := now.UnixMilli() - msg.Timestamp; age > MaxMessageAge.Milliseconds() || -age > MaxMessageAge.Milliseconds() {
		return nil, ErrMessageTooOld
	}

	nonceKey := base64.StdEncoding.EncodeToString(msg.Nonce)
	if replay.Seen(nonceKey) {
		return nil, ErrReplayDetected
	}

	if msg.SequenceNumber != replay.ExpectedSeq {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSequenceMismatch, msg.SequenceNumber, replay.ExpectedSeq)
	}

	aead, err := newGCM(keys.EncryptionKey)
	if err != nil {
		return nil, err
	}
	ad := headerDigest(keys.AuthKey, msg.SenderID, msg.ReceiverID, msg.SequenceNumber, msg.Nonce)
	sealed := append(append([]byte(nil), msg.Ciphertext...), msg.AuthTag...)
	plaintext, err := aead.Open(nil, msg.IV, sealed, ad)
	if err != nil {
		return nil, ErrTampered
	}

	replay.Accept(nonceKey)
	return plaintext, nil
}

// headerDigest binds the message header into the AEAD: an HMAC under the
// session's authentication key over sender, receiver, sequence and nonce.
// Both sides compute it, so it never travels on the wire.
func headerDigest(authKey []byte, sender, receiver domain.UserID, seq uint64, nonce []byte) []byte {
	mac := hmac.New(sha256.New, authKey)
	mac.Write([]byte(sender))
	mac.Write([]byte{0})
	mac.Write([]byte(receiver))
	mac.Write([]byte{0})
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	mac.Write(seqBuf[:])
	mac.Write(nonce)
	return mac.Sum(nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return aead, nil
}
