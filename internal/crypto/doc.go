// Package crypto exposes the primitives used by the key-exchange protocol.
//
// Contents
//
//   - Suite: fixes the curve (P-256) for every key in the process, so the
//     agreement, signing and ephemeral keys can never drift onto different
//     curves (GenerateAgreementKey, GenerateSigningKey, ECDH)
//   - SPKI export/import for long-term public keys, raw uncompressed points
//     for ephemeral keys (ExportPublic, ImportAgreementPublic, ...)
//   - ECDSA signing and verification over SHA-256 digests (Sign, Verify)
//   - Human-comparable fingerprints of a key pairing in hex, numeric and
//     emoji form (FingerprintMaterial, HexFingerprint, ...)
//
// # Notes
//
// Callers should treat raw ECDH outputs and derived keys as sensitive and
// wipe them with memzero when their lifetime ends.
package crypto
