// Command relay runs a minimal in-memory relay server: it stores published
// public-key bundles and queues envelopes per recipient until fetched and
// acked. It never sees plaintext or private keys.
package main
