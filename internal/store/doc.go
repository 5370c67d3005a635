// Package store persists identity, contacts and confirmed-session state
// under the home directory.
//
// The long-term identity is sealed in a passphrase envelope: scrypt key
// derivation over a random salt, chacha20poly1305 encryption with the salt
// as associated data. Peer records and session state hold only public or
// derived material and are stored as plain JSON files.
package store
