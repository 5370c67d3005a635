// Package session tracks in-memory handshake and session state per peer.
//
// The Manager owns the peer-to-session map and the pending-challenge map
// behind one mutex, so handler callbacks and the cleanup sweep cannot race.
// Expiry is driven by an explicit now passed to Cleanup rather than timers,
// which keeps it deterministic under test: unconfirmed sessions and pending
// challenges are swept after five idle minutes, confirmed sessions after a
// 24-hour hard expiry.
//
// A session's state machine only moves forward. Any verification failure
// deletes the session outright; retrying means a brand-new session with a
// fresh ephemeral key.
package session
