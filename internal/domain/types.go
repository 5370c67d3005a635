package domain

// UserID identifies a registered account on the relay.
type UserID string

// String returns the string form of the user identifier.
func (u UserID) String() string { return string(u) }

// SessionID uniquely identifies one key-exchange session.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// ChallengeID uniquely identifies a pending key-confirmation challenge.
type ChallengeID string

// String returns the string form of the challenge identifier.
func (id ChallengeID) String() string { return string(id) }

// Fingerprint is a human-comparable rendering of key material.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
