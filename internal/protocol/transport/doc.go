// Package transport encrypts and authenticates application messages under a
// confirmed session.
//
// Sending derives a deterministic AES-GCM IV from the session's IV seed and
// a monotonic counter (falling back to a random IV when no seed is held),
// attaches a separate random replay nonce, and binds the header fields into
// the AEAD through a keyed associated-data digest under the session's
// authentication key.
//
// Receiving validates in a fixed order, each step with its own error:
// timestamp freshness, nonce replay, exact sequence match, then AEAD open.
// A message that fails any step is dropped without advancing replay state;
// the session itself stays usable.
//
// Sequence gaps are errors here, not resynchronisation points. Tolerating a
// higher-than-expected sequence number would let an attacker who can drop
// traffic silently discard messages; recovery from genuine loss is a fresh
// handshake.
package transport
