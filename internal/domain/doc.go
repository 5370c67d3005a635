// Package domain holds the shared vocabulary of the system: identifier
// types, identity and session records, the wire message structs, and the
// store/relay/service interfaces everything else is built against. It has
// no behavior of its own and imports nothing outside the standard library.
package domain
