// Package engine orchestrates the secure key-exchange protocol for one local
// identity.
//
// An Engine instance owns all mutable protocol state: known peers, live
// sessions, pending challenges and per-peer replay windows. Nothing is
// global; multiple engines (multiple identities) coexist in one process,
// which is also how the protocol tests drive both ends of a handshake.
//
// The wire surface is two calls: StartHandshake emits the opening hello, and
// Handle takes any inbound envelope and returns the envelopes to send back,
// switching on the message type tag. Steps for the same peer are serialised
// by a per-peer lock; different peers' sessions advance independently.
//
// Time is always an explicit argument so freshness windows and expiry are
// testable without waiting on a wall clock.
package engine
