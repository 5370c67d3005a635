// Package handshake implements the authenticated key agreement that opens a
// secure session between two parties.
//
// # Flows
//
// Initiator:
//  1. Send a hello announcing the long-term public keys.
//  2. On the peer's signed ephemeral, verify the signature against the
//     peer's long-term signing key, generate a local ephemeral, and run ECDH
//     to the shared secret. The salt arrives in the peer's message.
//  3. Reply with the local signed ephemeral, echoing the salt.
//
// Responder:
//  1. Validate the hello, record the peer's long-term keys.
//  2. Generate an ephemeral key and the session salt, sign the ephemeral
//     with the long-term signing key, and send both.
//  3. On the initiator's signed ephemeral, verify and run ECDH to the same
//     shared secret.
//
// Ephemeral private keys are fresh per session and discarded after the
// secret is derived; that is what provides forward secrecy.
//
// # Errors
//
// ErrSignatureInvalid means the ephemeral key's signature failed to verify.
// It is a potential man-in-the-middle indicator and must abort the
// handshake. Stale messages fail validation before any signature check.
package handshake
