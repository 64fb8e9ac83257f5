// Package auth holds the bearer credential shared by every outgoing request.
package auth

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/types"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
)

// Provider is the credential boundary the transport and the UI layer share.
type Provider interface {
	Token() string
	Set(token string, user *types.User) error
	Clear() error
	// Invalidate clears the credential and publishes the unauthenticated event.
	Invalidate()
	Subscribe(fn func()) (unsubscribe func())
}

type persisted struct {
	AccessToken string      `json:"access_token"`
	User        *types.User `json:"user_data,omitempty"`
}

// Store keeps the credential in memory and, when path is set, on disk.
type Store struct {
	mu    sync.RWMutex
	path  string
	token string
	user  *types.User

	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

// NewStore loads any credential already persisted at path. An empty path keeps it in memory only.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, subs: make(map[int]func())}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		config.Logger.Warn("Ignoring unreadable credential file:", err)
		return s, nil
	}
	s.token = p.AccessToken
	s.user = p.User
	return s, nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Set(token string, user *types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	return s.save()
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Invalidate() {
	if err := s.Clear(); err != nil {
		config.Logger.Error("Failed to clear stored credential:", err)
	}

	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// save must be called with mu held.
func (s *Store) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.Marshal(persisted{AccessToken: s.token, User: s.user})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
