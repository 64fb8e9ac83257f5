package chat

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type MessageSource interface {
	ListMessages(ctx context.Context, sessionID string) ([]types.RemoteMessage, error)
}

// Loader materializes a session's message history into a History.
type Loader struct {
	source   MessageSource
	history  *History
	notifier notify.Notifier
	logger   logrus.FieldLogger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu       sync.Mutex
	gen      uint64
	inflight context.CancelFunc
}

func NewLoader(source MessageSource, history *History, notifier notify.Notifier, logger logrus.FieldLogger) *Loader {
	if logger == nil {
		logger = config.Logger
	}
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}
	base, stop := context.WithCancel(context.Background())
	return &Loader{
		source:   source,
		history:  history,
		notifier: notifier,
		logger:   logger,
		base:     base,
		stop:     stop,
	}
}

// Load fetches the history of sessionID and replaces the displayed one. An empty id
// clears the history without a fetch. On failure the displayed history is unchanged.
func (l *Loader) Load(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		l.history.Clear()
		return nil
	}
	return l.load(ctx, sessionID, func(messages []types.Message) bool {
		l.history.Replace(messages)
		return true
	})
}

// Follow is the current-session trigger: nil clears, anything else loads in the
// background. A newer Follow cancels the previous load and discards its result.
func (l *Loader) Follow(s *types.Session) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	if l.inflight != nil {
		l.inflight()
		l.inflight = nil
	}
	if s == nil || l.base.Err() != nil {
		if s == nil {
			l.history.Clear()
		}
		l.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(l.base)
	l.inflight = cancel
	l.wg.Add(1)
	l.mu.Unlock()

	sessionID := s.ID
	go func() {
		defer l.wg.Done()
		defer cancel()
		// the generation check and the replace share the lock so a newer
		// Follow or Cancel cannot slip in between
		commit := func(messages []types.Message) bool {
			l.mu.Lock()
			defer l.mu.Unlock()
			if gen != l.gen {
				return false
			}
			l.history.Replace(messages)
			return true
		}
		if err := l.load(ctx, sessionID, commit); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.WithField("session_id", sessionID).Debug("Background message load failed")
		}
	}()
}

// Cancel drops any background load and keeps the displayed history as it is.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.inflight != nil {
		l.inflight()
		l.inflight = nil
	}
}

// Wait blocks until background loads started by Follow have finished.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// Close cancels any background load and waits for it.
func (l *Loader) Close() {
	l.mu.Lock()
	l.stop()
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Loader) load(ctx context.Context, sessionID string, replace func([]types.Message) bool) error {
	remote, err := l.source.ListMessages(ctx, sessionID)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.Error("Failed to load messages:", err)
		l.notifier.Error("Failed to load messages", err)
		return fmt.Errorf("failed to load messages for session %s: %w", sessionID, err)
	}

	messages := ToMessages(remote, l.logger)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !replace(messages) {
		return context.Canceled
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05.999999",
}

// ParseTimestamp accepts the timestamp shapes the backend and Postgres emit.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ToMessages maps remote records in order. Unparseable timestamps become the zero time.
func ToMessages(remote []types.RemoteMessage, logger logrus.FieldLogger) []types.Message {
	messages := make([]types.Message, 0, len(remote))
	for _, r := range remote {
		ts, err := ParseTimestamp(r.CreatedAt)
		if err != nil && logger != nil {
			logger.Warn("Message with bad created_at:", err)
		}
		messages = append(messages, types.Message{
			ID:        uuid.NewString(),
			Role:      r.Role,
			Content:   r.Content,
			Timestamp: ts,
		})
	}
	return messages
}
