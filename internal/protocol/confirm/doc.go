// Package confirm implements the key-confirmation step: an HMAC
// challenge/response proving both parties derived identical session keys
// before any application traffic flows.
//
// The initiator sends 32 random challenge bytes and keeps the expected HMAC
// locally; the peer answers with the HMAC under its own confirmation key. A
// mismatch means the two sides hold different keys, which is either a
// protocol bug or an active man-in-the-middle, and the session must be
// destroyed, not retried.
//
// Response comparison is fixed-time: the comparison XOR-accumulates every
// byte before deciding, so timing reveals nothing about how many leading
// bytes matched.
package confirm
