// Package contact manages peer records and out-of-band key verification.
//
// Marking a peer verified records that the user compared fingerprints over a
// trusted channel. The flag is advisory; the protocol does not refuse
// unverified peers, it surfaces the state so the UI can.
package contact
