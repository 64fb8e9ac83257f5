package chat

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoSession is returned by Send under AbortSend when no session could be created.
var ErrNoSession = errors.New("no session available")

// FallbackPolicy decides what Send does when it had to create a session and could not.
type FallbackPolicy int

const (
	// SendSessionless sends without a session id; the backend then picks or creates one.
	SendSessionless FallbackPolicy = iota
	// AbortSend makes no chat call.
	AbortSend
)

type ChatSender interface {
	Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
}

type SessionCreator interface {
	Create(ctx context.Context, title, description string) *types.Session
}

// Dispatcher sends user messages. The user message is appended before any network
// call and is never rolled back. Concurrent sends are independent and may interleave.
type Dispatcher struct {
	sender   ChatSender
	creator  SessionCreator
	history  *History
	notifier notify.Notifier
	logger   logrus.FieldLogger
	policy   FallbackPolicy
	now      func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithFallbackPolicy(p FallbackPolicy) DispatcherOption {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithLogger(logger logrus.FieldLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(sender ChatSender, creator SessionCreator, history *History, notifier notify.Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:   sender,
		creator:  creator,
		history:  history,
		notifier: notifier,
		logger:   config.Logger,
		policy:   SendSessionless,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notify.Log{Logger: d.logger}
	}
	return d
}

// Send posts text to the chat endpoint bound to sessionID, creating a session first
// when sessionID is empty. Blank text is a silent no-op. It returns the appended
// assistant message.
func (d *Dispatcher) Send(ctx context.Context, text, sessionID string) (*types.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	d.history.Append(types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: d.now(),
	})

	if sessionID == "" {
		if created := d.creator.Create(ctx, "", ""); created != nil {
			sessionID = created.ID
		} else if d.policy == AbortSend {
			d.notifier.Error("Could not start a new chat session", ErrNoSession)
			return nil, ErrNoSession
		} else {
			d.logger.Warn("Session creation failed, sending without a session")
		}
	}

	resp, err := d.sender.Chat(ctx, types.ChatRequest{Message: text, SessionID: sessionID})
	if err != nil {
		d.logger.Error("Failed to send message:", err)
		d.notifier.Error("Failed to send message. Please try again.", err)
		return nil, err
	}

	reply := types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleAssistant,
		Content:   resp.Response,
		Timestamp: d.now(),
	}
	d.history.Append(reply)
	return &reply, nil
}
