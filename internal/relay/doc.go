// Package relay implements the HTTP client for the central relay server,
// which acts as both the contact directory (published key bundles) and the
// store-and-forward mailbox for protocol envelopes.
package relay
