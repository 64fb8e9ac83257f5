// Package app wires the client components together and owns their lifetime.
package app

import (
	"clementus360/agent-client/api"
	"clementus360/agent-client/auth"
	"clementus360/agent-client/calendar"
	"clementus360/agent-client/chat"
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"clementus360/agent-client/sessions"
	"clementus360/agent-client/supabase"
	"clementus360/agent-client/types"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SessionStore is what the session manager and the message loader need from a backend.
type SessionStore interface {
	sessions.Remote
	chat.MessageSource
}

type Options struct {
	Notifier  notify.Notifier
	Opener    calendar.Opener
	Logger    logrus.FieldLogger
	Transport http.RoundTripper

	// Credentials overrides the file-backed store named by the config.
	Credentials *auth.Store

	// OnSignedOut runs after a 401 or an expired token cleared the credential.
	OnSignedOut func()
}

type App struct {
	Config     config.Config
	Creds      *auth.Store
	API        *api.Client
	Store      SessionStore
	Sessions   *sessions.Manager
	History    *chat.History
	Loader     *chat.Loader
	Dispatcher *chat.Dispatcher
	Calendar   *calendar.Coordinator
	Upcoming   *calendar.Upcoming
	Notifier   notify.Notifier

	logger      logrus.FieldLogger
	unsubscribe func()

	mu       sync.Mutex
	creating []*knownSessions
}

func New(cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = config.Logger
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}

	creds := opts.Credentials
	if creds == nil {
		var err error
		creds, err = auth.NewStore(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
	}

	clientOpts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout()),
		api.WithLogger(logger),
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, api.WithTransport(opts.Transport))
	}
	client := api.New(cfg.APIURL, creds, clientOpts...)

	a := &App{
		Config:   cfg,
		Creds:    creds,
		API:      client,
		Store:    client,
		History:  &chat.History{},
		Notifier: notifier,
		logger:   logger,
	}

	if cfg.DirectStore() && creds.Token() != "" {
		store, err := supabase.NewStore(cfg.Supabase.URL, cfg.Supabase.Key, creds)
		if err != nil {
			logger.Warn("Falling back to the API for sessions:", err)
		} else {
			a.Store = store
		}
	}

	a.Sessions = sessions.NewManager(a.Store, logger)
	a.Loader = chat.NewLoader(a.Store, a.History, notifier, logger)

	policy := chat.SendSessionless
	if !cfg.SessionlessFallback {
		policy = chat.AbortSend
	}
	a.Dispatcher = chat.NewDispatcher(client, sendCreator{a}, a.History, notifier,
		chat.WithFallbackPolicy(policy),
		chat.WithLogger(logger),
	)

	a.Calendar = calendar.NewCoordinator(client, opts.Opener, notifier, calendar.Options{
		PollInterval: cfg.PollInterval(),
		Timeout:      cfg.ConnectTimeout(),
		Logger:       logger,
	})
	a.Upcoming = calendar.NewUpcoming(client, notifier, cfg.RefreshInterval(), logger)

	a.Sessions.OnCurrentChange(a.follow)
	a.unsubscribe = creds.Subscribe(func() {
		notifier.Error("Your session has expired. Please sign in again.", nil)
		if err := a.Sessions.Select(nil); err != nil {
			logger.Debug("Failed to clear current session:", err)
		}
		if opts.OnSignedOut != nil {
			opts.OnSignedOut()
		}
	})

	return a, nil
}

// Start loads the session list and the calendar status concurrently. Only a failed
// session load is returned; a calendar status failure has already been notified.
func (a *App) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Sessions.Load(ctx)
	})
	g.Go(func() error {
		if _, err := a.Calendar.CheckStatus(ctx); err != nil {
			a.logger.Debug("Starting without calendar status")
		}
		return nil
	})
	return g.Wait()
}

// Send posts text to the current session, creating one when none is selected.
func (a *App) Send(ctx context.Context, text string) (*types.Message, error) {
	var sessionID string
	if current := a.Sessions.Current(); current != nil {
		sessionID = current.ID
	}
	return a.Dispatcher.Send(ctx, text, sessionID)
}

// Close cancels background work of every component and waits for it.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.Upcoming.Close()
	a.Calendar.Close()
	a.Loader.Close()
}

// follow keeps the history in step with the current session. A session created by
// Send starts out holding the exchange being sent, so it is adopted without a fetch.
func (a *App) follow(s *types.Session) {
	if s != nil && a.createdBySend(s.ID) {
		a.Loader.Cancel()
		return
	}
	a.Loader.Follow(s)
}

// createdBySend reports whether id is missing from the session list as it stood
// when an in-flight Send started creating a session. Select only accepts listed
// ids, so a user's selection never matches.
func (a *App) createdBySend(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, known := range a.creating {
		if !known.ids[id] {
			return true
		}
	}
	return false
}

type knownSessions struct {
	ids map[string]bool
}

type sendCreator struct {
	app *App
}

func (c sendCreator) Create(ctx context.Context, title, description string) *types.Session {
	known := &knownSessions{ids: make(map[string]bool)}
	for _, s := range c.app.Sessions.Sessions() {
		known.ids[s.ID] = true
	}

	a := c.app
	a.mu.Lock()
	a.creating = append(a.creating, known)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, k := range a.creating {
			if k == known {
				a.creating = append(a.creating[:i], a.creating[i+1:]...)
				break
			}
		}
	}()
	return a.Sessions.Create(ctx, title, description)
}
