package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// emojiTable is the 64-symbol alphabet for emoji fingerprints. Six bits of
// digest select one symbol.
var emojiTable = []string{
	"🐶", "🐱", "🦊", "🐻", "🐼", "🐨", "🦁", "🐸",
	"🐙", "🐢", "🦋", "🐝", "🐞", "🦉", "🦄", "🐴",
	"🍎", "🍌", "🍇", "🍉", "🍒", "🍑", "🥝", "🥥",
	"🌵", "🌲", "🍀", "🌻", "🌹", "🌙", "⭐", "☀️",
	"⚽", "🏀", "🎲", "🎯", "🎸", "🎺", "🎨", "🎭",
	"🚗", "🚲", "✈️", "🚀", "⛵", "🚂", "🎈", "⚓",
	"🔑", "🔒", "🔨", "🔔", "📌", "✂️", "🖊️", "📎",
	"❤️", "💎", "🔥", "❄️", "⚡", "🌈", "☂️", "🎁",
}

// FingerprintMaterial condenses the two parties' SPKI agreement keys into a
// 32-byte digest. The keys are hashed in lexicographic order so both sides
// render the identical fingerprint regardless of who computes it.
func FingerprintMaterial(localKey, peerKey []byte) [32]byte {
	a, b := localKey, peerKey
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// HexFingerprint renders the first 20 digest bytes as ten groups of four hex
// characters.
func HexFingerprint(digest [32]byte) string {
	raw := hex.EncodeToString(digest[:20])
	groups := make([]string, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:i+4])
	}
	return strings.Join(groups, " ")
}

// NumericFingerprint renders the digest as twelve five-digit groups, the
// style used for safety numbers read out over a call. The 32-byte digest is
// stretched to 60 bytes by hashing it once more.
func NumericFingerprint(digest [32]byte) string {
	second := sha256.Sum256(digest[:])
	material := append(digest[:], second[:]...)

	groups := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		chunk := material[i*5 : i*5+5]
		// Five bytes give 40 bits; reduce to five decimal digits.
		v := binary.BigEndian.Uint64(append(make([]byte, 3), chunk...))
		groups = append(groups, padFive(v%100000))
	}
	return strings.Join(groups, " ")
}

// EmojiFingerprint renders the first six digest bytes as eight emoji, six
// bits per symbol.
func EmojiFingerprint(digest [32]byte) string {
	var sb strings.Builder
	bits := uint64(0)
	nbits := 0
	emitted := 0
	for _, b := range digest[:] {
		bits = bits<<8 | uint64(b)
		nbits += 8
		for nbits >= 6 && emitted < 8 {
			nbits -= 6
			sb.WriteString(emojiTable[(bits>>uint(nbits))&0x3f])
			emitted++
		}
		if emitted == 8 {
			break
		}
	}
	return sb.String()
}

// ShortFingerprint returns a compact hex fingerprint of a single public key
// for display and logging.
func ShortFingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

func padFive(v uint64) string {
	s := []byte("00000")
	for i := 4; i >= 0 && v > 0; i-- {
		s[i] = byte('0' + v%10)
		v /= 10
	}
	return string(s)
}
