package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"skep/internal/crypto"
	"skep/internal/domain"
)

const (
	idFile       = "identity.enc"
	peersFile    = "peers.json"    // map[UserID]PeerRecord
	sessionsFile = "sessions.json" // map[UserID]SessionState
)

// ErrNoIdentity is returned when no identity has been created yet.
var ErrNoIdentity = errors.New("no identity found; run init first")

// FileStore keeps identity, peers and session state on disk.
type FileStore struct {
	dir   string
	suite crypto.Suite
	mu    sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, suite crypto.Suite) *FileStore {
	return &FileStore{dir: dir, suite: suite}
}

// ---------- Identity ----------

func (s *FileStore) SaveIdentity(passphrase string, id domain.IdentityKeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := crypto.ExportIdentity(id)
	if err != nil {
		return err
	}
	blob, err := encrypt(passphrase, raw)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, idFile), blob, 0o600)
}

func (s *FileStore) LoadIdentity(passphrase string) (domain.IdentityKeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, idFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.IdentityKeyPair{}, ErrNoIdentity
		}
		return domain.IdentityKeyPair{}, err
	}
	raw, err := decrypt(passphrase, blob)
	if err != nil {
		return domain.IdentityKeyPair{}, err
	}
	return crypto.ImportIdentity(s.suite, raw)
}

// ---------- Peers ----------

func (s *FileStore) SavePeer(rec domain.PeerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.PeerRecord)
	_ = readJSON(filepath.Join(s.dir, peersFile), &m)
	m[rec.PeerID] = rec
	return writeJSON(filepath.Join(s.dir, peersFile), m, 0o600)
}

func (s *FileStore) LoadPeer(peer domain.UserID) (domain.PeerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.PeerRecord)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return domain.PeerRecord{}, false, err
	}
	rec, ok := m[peer]
	return rec, ok, nil
}

func (s *FileStore) ListPeers() ([]domain.PeerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.PeerRecord)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return nil, err
	}
	out := make([]domain.PeerRecord, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	return out, nil
}

func (s *FileStore) MarkVerified(peer domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.PeerRecord)
	if err := readJSON(filepath.Join(s.dir, peersFile), &m); err != nil {
		return err
	}
	rec, ok := m[peer]
	if !ok {
		return fmt.Errorf("peer %q not found", peer)
	}
	rec.Verified = true
	m[peer] = rec
	return writeJSON(filepath.Join(s.dir, peersFile), m, 0o600)
}

// ---------- Session state ----------

func (s *FileStore) SaveSessionState(peer domain.UserID, st domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.SessionState)
	_ = readJSON(filepath.Join(s.dir, sessionsFile), &m)
	m[peer] = st
	return writeJSON(filepath.Join(s.dir, sessionsFile), m, 0o600)
}

func (s *FileStore) LoadSessionState(peer domain.UserID) (domain.SessionState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.SessionState)
	if err := readJSON(filepath.Join(s.dir, sessionsFile), &m); err != nil {
		return domain.SessionState{}, false, err
	}
	st, ok := m[peer]
	return st, ok, nil
}

func (s *FileStore) DeleteSessionState(peer domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[domain.UserID]domain.SessionState)
	if err := readJSON(filepath.Join(s.dir, sessionsFile), &m); err != nil {
		return err
	}
	delete(m, peer)
	return writeJSON(filepath.Join(s.dir, sessionsFile), m, 0o600)
}

// ClearSessions drops every persisted session state. Used on logout.
func (s *FileStore) ClearSessions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, sessionsFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ---------- helpers ----------

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any, mode os.FileMode) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, mode)
}

var (
	_ domain.IdentityStore = (*FileStore)(nil)
	_ domain.PeerStore     = (*FileStore)(nil)
	_ domain.SessionStore  = (*FileStore)(nil)
)
