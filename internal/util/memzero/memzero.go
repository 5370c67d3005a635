// Package memzero wipes key material from memory once it is no longer
// needed: raw shared secrets, derived session keys and decrypted identity
// blobs all pass through here before being dropped.
package memzero

import "crypto/subtle"

// Zero overwrites b with zeros. Uses subtle.ConstantTimeCopy so the write
// cannot be elided.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}

// All zeroes every given slice. Convenient for wiping a set of session
// subkeys in one call.
func All(bs ...[]byte) {
	for _, b := range bs {
		Zero(b)
	}
}
