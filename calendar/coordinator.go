// Package calendar drives the calendar OAuth handshake and the upcoming-meetings view.
package calendar

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrAlreadyConnecting = errors.New("calendar connection already in progress")

type Provider interface {
	CalendarStatus(ctx context.Context) (types.CalendarStatus, error)
	CalendarConnect(ctx context.Context) (types.CalendarConnectResponse, error)
	CalendarDisconnect(ctx context.Context) error
}

// Opener presents the provider's authorization URL to the user.
type Opener func(authURL string) error

type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Logger       logrus.FieldLogger
}

// Coordinator owns the calendar connection status. There is no completion signal
// from the server, so Connect polls the status until it flips or the timeout passes.
type Coordinator struct {
	provider     Provider
	opener       Opener
	notifier     notify.Notifier
	logger       logrus.FieldLogger
	pollInterval time.Duration
	timeout      time.Duration

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.Mutex
	status     types.CalendarStatus
	connecting bool
}

func NewCoordinator(provider Provider, opener Opener, notifier notify.Notifier, opts Options) *Coordinator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.CalendarPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.CalendarConnectTimeout
	}
	if opts.Logger == nil {
		opts.Logger = config.Logger
	}
	if notifier == nil {
		notifier = notify.Log{Logger: opts.Logger}
	}
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		provider:     provider,
		opener:       opener,
		notifier:     notifier,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		base:         base,
		stop:         stop,
		status:       types.UnconnectedStatus(),
	}
}

func (c *Coordinator) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.status.Connected:
		return types.Connected
	case c.connecting:
		return types.Connecting
	default:
		return types.Unconnected
	}
}

func (c *Coordinator) Status() types.CalendarStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.Scopes = append([]string{}, c.status.Scopes...)
	return s
}

func (c *Coordinator) Connecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connecting
}

// CheckStatus refreshes the status from the provider. On failure the previous status is kept.
func (c *Coordinator) CheckStatus(ctx context.Context) (types.CalendarStatus, error) {
	status, err := c.provider.CalendarStatus(ctx)
	if err != nil {
		c.logger.Error("Failed to check calendar status:", err)
		c.notifier.Error("Failed to check calendar status", err)
		return c.Status(), err
	}

	c.setStatus(status)
	return c.Status(), nil
}

// Connect starts the handshake and blocks until the provider reports a connection,
// the timeout passes (Unconnected, nil error) or ctx / Close cancels it.
func (c *Coordinator) Connect(ctx context.Context) (types.ConnectionState, error) {
	c.mu.Lock()
	if c.connecting {
		c.mu.Unlock()
		return types.Connecting, ErrAlreadyConnecting
	}
	if c.status.Connected {
		c.mu.Unlock()
		return types.Connected, nil
	}
	if err := c.base.Err(); err != nil {
		c.mu.Unlock()
		return types.Unconnected, err
	}
	c.connecting = true
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	resp, err := c.provider.CalendarConnect(ctx)
	if err != nil {
		c.logger.Error("Failed to connect calendar:", err)
		c.notifier.Error("Failed to connect calendar", err)
		return types.Unconnected, err
	}

	if c.opener != nil {
		if err := c.opener(resp.AuthURL); err != nil {
			c.logger.Warn("Could not open authorization page:", err)
		}
	}

	return c.poll(ctx)
}

func (c *Coordinator) poll(ctx context.Context) (types.ConnectionState, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	stopOnClose := context.AfterFunc(c.base, cancel)
	defer stopOnClose()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		if pollCtx.Err() != nil {
			if ctx.Err() == nil && c.base.Err() == nil {
				c.logger.Info("Calendar authorization not completed before timeout")
				return types.Unconnected, nil
			}
			return types.Unconnected, context.Canceled
		}

		status, err := c.provider.CalendarStatus(pollCtx)
		switch {
		case err != nil:
			// most often the user has not finished authorizing yet
			c.logger.WithError(err).Debug("Calendar status poll failed")
		case status.Connected:
			c.setStatus(status)
			c.notifier.Success("Google Calendar connected successfully!")
			return types.Connected, nil
		}

		select {
		case <-pollCtx.Done():
		case <-ticker.C:
		}
	}
}

// Disconnect asks the provider to drop the integration and resets the local status
// whatever the outcome. A remote failure is still returned.
func (c *Coordinator) Disconnect(ctx context.Context) error {
	err := c.provider.CalendarDisconnect(ctx)

	c.setStatus(types.UnconnectedStatus())

	if err != nil {
		c.logger.Error("Failed to disconnect calendar:", err)
		c.notifier.Error("Failed to disconnect calendar", err)
		return err
	}
	c.notifier.Success("Calendar disconnected")
	return nil
}

// Close cancels any running poll and waits for Connect to return.
func (c *Coordinator) Close() {
	// under mu so a Connect cannot pass its base check and Add after Wait began
	c.mu.Lock()
	c.stop()
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) setStatus(status types.CalendarStatus) {
	if status.Scopes == nil {
		status.Scopes = []string{}
	}
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}
