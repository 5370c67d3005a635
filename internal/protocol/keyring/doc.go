// Package keyring turns a raw ECDH shared secret into the session key set.
//
// HKDF-SHA256 expands the secret under a per-session salt into four
// purpose-separated outputs, one per info label: the AES-256-GCM encryption
// key, the confirmation HMAC key, the message-authentication HMAC key and a
// 128-bit IV seed. Distinct labels mean a leak of one derived key gives an
// attacker nothing against the others.
//
// The package also derives deterministic per-message GCM IVs from the seed
// and a monotonic counter. IVs stay unique as long as the counter never
// repeats within the life of the seed.
package keyring
