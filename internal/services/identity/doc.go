// Package identity creates and loads the local long-term identity, enforcing
// the passphrase policy that protects it at rest.
package identity
