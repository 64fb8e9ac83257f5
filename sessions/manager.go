// Package sessions owns the client's list of chat sessions and the current-session pointer.
package sessions

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var ErrSessionNotFound = errors.New("session not found")

// Remote is the source of truth for sessions.
type Remote interface {
	ListSessions(ctx context.Context) ([]types.Session, error)
	CreateSession(ctx context.Context, req types.CreateSessionRequest) (types.Session, error)
	UpdateSession(ctx context.Context, id string, patch types.SessionPatch) (types.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Manager is the only writer of the session list and the current pointer. Local
// mutations are applied after the remote call succeeds; concurrent mutations are
// not serialized against each other.
type Manager struct {
	remote Remote
	logger logrus.FieldLogger

	mu       sync.Mutex
	sessions []types.Session
	current  *types.Session
	loading  bool

	subMu     sync.Mutex
	listeners []func(*types.Session)
}

func NewManager(remote Remote, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = config.Logger
	}
	return &Manager{remote: remote, logger: logger}
}

// OnCurrentChange registers fn to run after every change of the current session.
// fn receives a copy, or nil when no session is current.
func (m *Manager) OnCurrentChange(fn func(*types.Session)) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Sessions returns a copy of the list in remote order.
func (m *Manager) Sessions() []types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Session(nil), m.sessions...)
}

func (m *Manager) Current() *types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.current)
}

func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Load replaces the local list with the remote one. When nothing is current the first
// session becomes current. On failure the previous state is kept.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	fetched, err := m.remote.ListSessions(ctx)

	m.mu.Lock()
	m.loading = false
	if err != nil {
		m.mu.Unlock()
		m.logger.Error("Failed to load sessions:", err)
		return err
	}

	before := copySession(m.current)
	m.sessions = append([]types.Session(nil), fetched...)

	switch {
	case m.current == nil:
		m.current = m.first()
	case indexOf(m.sessions, m.current.ID) >= 0:
		m.current = copySession(&m.sessions[indexOf(m.sessions, m.current.ID)])
	default:
		// current vanished remotely
		m.current = m.first()
	}
	after := copySession(m.current)
	m.mu.Unlock()

	m.logger.WithField("count", len(fetched)).Debug("Sessions loaded")
	if currentID(before) != currentID(after) {
		m.emit(after)
	}
	return nil
}

// Create makes a new session, puts it first and makes it current. An empty title
// becomes "New Chat". Failure is logged and reported as a nil session.
func (m *Manager) Create(ctx context.Context, title, description string) *types.Session {
	if title == "" {
		title = config.DefaultSessionTitle
	}

	created, err := m.remote.CreateSession(ctx, types.CreateSessionRequest{
		Title:       title,
		Description: types.StringPtr(description),
	})
	if err != nil {
		m.logger.Error("Failed to create session:", err)
		return nil
	}

	m.mu.Lock()
	m.sessions = append([]types.Session{created}, m.sessions...)
	m.current = copySession(&created)
	m.mu.Unlock()

	m.logger.WithField("session_id", created.ID).Info("Created session")
	m.emit(copySession(&created))
	return copySession(&created)
}

// Select changes the current pointer without a remote call. A nil session clears it.
func (m *Manager) Select(s *types.Session) error {
	m.mu.Lock()
	if s == nil {
		m.current = nil
		m.mu.Unlock()
		m.emit(nil)
		return nil
	}

	i := indexOf(m.sessions, s.ID)
	if i < 0 {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	m.current = copySession(&m.sessions[i])
	selected := copySession(m.current)
	m.mu.Unlock()

	m.emit(selected)
	return nil
}

// SelectID is Select by id.
func (m *Manager) SelectID(id string) error {
	return m.Select(&types.Session{ID: id})
}

// Update patches a session remotely and then replaces the local copy. Errors are
// returned without touching local state. The current id does not change, so no
// current-session change is emitted.
func (m *Manager) Update(ctx context.Context, id string, patch types.SessionPatch) (types.Session, error) {
	updated, err := m.remote.UpdateSession(ctx, id, patch)
	if err != nil {
		m.logger.Error("Failed to update session:", err)
		return types.Session{}, err
	}

	m.mu.Lock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			m.sessions[i] = updated
		}
	}
	if m.current != nil && m.current.ID == id {
		m.current = copySession(&updated)
	}
	m.mu.Unlock()

	return updated, nil
}

// Delete removes a session remotely and then locally. If it was current, the first
// remaining session (or nil) becomes current.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.remote.DeleteSession(ctx, id); err != nil {
		m.logger.Error("Failed to delete session:", err)
		return err
	}

	m.mu.Lock()
	remaining := m.sessions[:0:0]
	for _, s := range m.sessions {
		if s.ID != id {
			remaining = append(remaining, s)
		}
	}
	m.sessions = remaining

	wasCurrent := m.current != nil && m.current.ID == id
	if wasCurrent {
		m.current = m.first()
	}
	after := copySession(m.current)
	m.mu.Unlock()

	m.logger.WithField("session_id", id).Info("Deleted session")
	if wasCurrent {
		m.emit(after)
	}
	return nil
}

// first must be called with mu held.
func (m *Manager) first() *types.Session {
	if len(m.sessions) == 0 {
		return nil
	}
	return copySession(&m.sessions[0])
}

func (m *Manager) emit(s *types.Session) {
	m.subMu.Lock()
	listeners := append(([]func(*types.Session))(nil), m.listeners...)
	m.subMu.Unlock()

	for _, fn := range listeners {
		fn(copySession(s))
	}
}

func indexOf(sessions []types.Session, id string) int {
	for i := range sessions {
		if sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func copySession(s *types.Session) *types.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func currentID(s *types.Session) string {
	if s == nil {
		return ""
	}
	return s.ID
}
