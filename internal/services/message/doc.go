// Package message drives handshakes and encrypted messaging over the relay.
//
// High-level flow:
//   - Handshake: open a session with the engine, then pump envelopes to and
//     from the relay until the session confirms; persist the derived state.
//   - Send: restore the confirmed session, encrypt the next message, post it
//     and persist the advanced counters before returning.
//   - Receive: fetch queued envelopes; answer inbound handshake traffic and
//     decrypt application messages in order. Envelopes that fail validation
//     (replays, stale or tampered messages) are acked and reported as
//     rejected so one bad envelope never blocks the queue; only a transient
//     failure leaves the remainder unacked for the next fetch.
package message
