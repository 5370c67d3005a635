package session

import (
	"sync"
	"time"

	"skep/internal/domain"
	"skep/internal/util/memzero"
)

const (
	// HandshakeTimeout sweeps unconfirmed sessions idle longer than this.
	HandshakeTimeout = 5 * time.Minute

	// ChallengeTimeout sweeps pending challenges older than this.
	ChallengeTimeout = 5 * time.Minute

	// SessionLifetime is the hard expiry for confirmed sessions.
	SessionLifetime = 24 * time.Hour
)

// Manager holds all per-peer session state for one engine instance. Safe for
// concurrent use.
type Manager struct {
	mu         sync.Mutex
	sessions   map[domain.UserID]*domain.Session
	challenges map[domain.ChallengeID]*domain.PendingChallenge
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions:   make(map[domain.UserID]*domain.Session),
		challenges: make(map[domain.ChallengeID]*domain.PendingChallenge),
	}
}

// Store replaces any prior session for the peer. The replaced session's key
// material is wiped.
func (m *Manager) Store(peer domain.UserID, sess *domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.sessions[peer]; ok && old != sess {
		wipe(old)
	}
	m.sessions[peer] = sess
}

// Get returns the session for the peer, if any.
func (m *Manager) Get(peer domain.UserID) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[peer]
	return sess, ok
}

// GetByID finds a session by its session identifier.
func (m *Manager) GetByID(id domain.SessionID) (*domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return nil, false
}

// Delete removes and wipes the peer's session.
func (m *Manager) Delete(peer domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[peer]; ok {
		wipe(sess)
		delete(m.sessions, peer)
	}
}

// StoreChallenge records a pending confirmation challenge.
func (m *Manager) StoreChallenge(pc *domain.PendingChallenge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[pc.ID] = pc
}

// TakeChallenge removes and returns the pending challenge, if present. The
// record is consumed either way a verification goes.
func (m *Manager) TakeChallenge(id domain.ChallengeID) (*domain.PendingChallenge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.challenges[id]
	if ok {
		delete(m.challenges, id)
	}
	return pc, ok
}

// Cleanup sweeps expired state as of now: stale pending challenges,
// unconfirmed sessions past the handshake timeout, and confirmed sessions
// past the hard lifetime. Confirmed sessions are exempt from the idle sweep.
func (m *Manager) Cleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, pc := range m.challenges {
		if now.Sub(pc.IssuedAt) > ChallengeTimeout {
			delete(m.challenges, id)
		}
	}
	for peer, sess := range m.sessions {
		if sess.Status == domain.StatusConfirmed {
			if now.Sub(sess.ConfirmedAt) > SessionLifetime {
				wipe(sess)
				delete(m.sessions, peer)
			}
			continue
		}
		if now.Sub(sess.LastActivity) > HandshakeTimeout {
			wipe(sess)
			delete(m.sessions, peer)
		}
	}
}

// ClearAll wipes and drops every session and pending challenge. Used on
// logout.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for peer, sess := range m.sessions {
		wipe(sess)
		delete(m.sessions, peer)
	}
	for id := range m.challenges {
		delete(m.challenges, id)
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func wipe(sess *domain.Session) {
	memzero.Zero(sess.SharedSecret)
	sess.SharedSecret = nil
	if sess.Keys != nil {
		memzero.All(sess.Keys.EncryptionKey, sess.Keys.ConfirmationKey, sess.Keys.AuthKey, sess.Keys.IVSeed)
		sess.Keys = nil
	}
	sess.LocalEphemeral = nil
}
