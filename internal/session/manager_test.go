package session_test

import (
	"testing"
	"time"

	"skep/internal/domain"
	"skep/internal/session"
)

func newSession(peer domain.UserID, status domain.SessionStatus, at time.Time) *domain.Session {
	return &domain.Session{
		ID:           domain.SessionID("sess-" + string(peer)),
		PeerID:       peer,
		Status:       status,
		CreatedAt:    at,
		LastActivity: at,
	}
}

func TestManager_StoreGetDelete(t *testing.T) {
	m := session.NewManager()
	now := time.Now()

	sess := newSession("bob", domain.StatusInitiated, now)
	m.Store("bob", sess)

	got, ok := m.Get("bob")
	if !ok || got != sess {
		t.Fatal("stored session not returned")
	}
	byID, ok := m.GetByID(sess.ID)
	if !ok || byID != sess {
		t.Fatal("session not found by id")
	}
	if _, ok := m.Get("carol"); ok {
		t.Fatal("unknown peer returned a session")
	}

	m.Delete("bob")
	if _, ok := m.Get("bob"); ok {
		t.Fatal("deleted session still present")
	}
	if m.Len() != 0 {
		t.Fatalf("Len = %d after delete", m.Len())
	}
}

func TestManager_StoreReplacesAndWipes(t *testing.T) {
	m := session.NewManager()
	now := time.Now()

	old := newSession("bob", domain.StatusConfirmed, now)
	old.SharedSecret = []byte{1, 2, 3}
	old.Keys = &domain.SessionKeys{EncryptionKey: []byte{4, 5, 6}}
	m.Store("bob", old)

	replacement := newSession("bob", domain.StatusInitiated, now)
	m.Store("bob", replacement)

	got, _ := m.Get("bob")
	if got != replacement {
		t.Fatal("replacement not stored")
	}
	if old.SharedSecret != nil || old.Keys != nil {
		t.Fatal("replaced session kept key material")
	}
}

func TestManager_Challenges(t *testing.T) {
	m := session.NewManager()
	pc := &domain.PendingChallenge{ID: "c1", SessionID: "s1", PeerID: "bob", IssuedAt: time.Now()}
	m.StoreChallenge(pc)

	got, ok := m.TakeChallenge("c1")
	if !ok || got != pc {
		t.Fatal("stored challenge not returned")
	}
	if _, ok := m.TakeChallenge("c1"); ok {
		t.Fatal("challenge returned twice")
	}
}

func TestCleanup_SweepsUnconfirmedAfterTimeout(t *testing.T) {
	m := session.NewManager()
	start := time.Now()

	m.Store("bob", newSession("bob", domain.StatusEphemeralCreated, start))
	m.Store("carol", newSession("carol", domain.StatusInitiated, start))

	m.Cleanup(start.Add(session.HandshakeTimeout - time.Second))
	if m.Len() != 2 {
		t.Fatal("sweep fired early")
	}

	m.Cleanup(start.Add(session.HandshakeTimeout + time.Second))
	if m.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after handshake timeout", m.Len())
	}
}

func TestCleanup_ConfirmedExemptFromIdleSweep(t *testing.T) {
	m := session.NewManager()
	start := time.Now()

	sess := newSession("bob", domain.StatusConfirmed, start)
	sess.ConfirmedAt = start
	m.Store("bob", sess)

	// Far past the handshake timeout but inside the session lifetime.
	m.Cleanup(start.Add(time.Hour))
	if _, ok := m.Get("bob"); !ok {
		t.Fatal("confirmed session swept by idle timeout")
	}

	m.Cleanup(start.Add(session.SessionLifetime + time.Minute))
	if _, ok := m.Get("bob"); ok {
		t.Fatal("confirmed session outlived its lifetime")
	}
}

func TestCleanup_SweepsStaleChallenges(t *testing.T) {
	m := session.NewManager()
	start := time.Now()

	m.StoreChallenge(&domain.PendingChallenge{ID: "old", IssuedAt: start})
	m.StoreChallenge(&domain.PendingChallenge{ID: "fresh", IssuedAt: start.Add(4 * time.Minute)})

	m.Cleanup(start.Add(session.ChallengeTimeout + time.Second))
	if _, ok := m.TakeChallenge("old"); ok {
		t.Fatal("stale challenge survived cleanup")
	}
	if _, ok := m.TakeChallenge("fresh"); !ok {
		t.Fatal("fresh challenge swept")
	}
}

func TestClearAll(t *testing.T) {
	m := session.NewManager()
	now := time.Now()

	sess := newSession("bob", domain.StatusConfirmed, now)
	sess.Keys = &domain.SessionKeys{EncryptionKey: []byte{1, 2, 3}}
	m.Store("bob", sess)
	m.StoreChallenge(&domain.PendingChallenge{ID: "c1", IssuedAt: now})

	m.ClearAll()
	if m.Len() != 0 {
		t.Fatal("sessions survived ClearAll")
	}
	if _, ok := m.TakeChallenge("c1"); ok {
		t.Fatal("challenge survived ClearAll")
	}
	if sess.Keys != nil {
		t.Fatal("ClearAll left key material")
	}
}
