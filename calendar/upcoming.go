package calendar

import (
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EmptyMeetingsText is shown when the backend returned nothing.
const EmptyMeetingsText = "📅 You have no upcoming meetings today."

type QuickQuery struct {
	Label string
	Value string
}

var QuickQueries = []QuickQuery{
	{Label: "Today", Value: "today"},
	{Label: "Tomorrow", Value: "tomorrow"},
	{Label: "This Week", Value: "this week"},
	{Label: "Next Week", Value: "next week"},
	{Label: "This Month", Value: "this month"},
}

type MeetingsSource interface {
	UpcomingMeetings(ctx context.Context, query string) (string, error)
}

// Upcoming shows the backend's formatted answer to a natural-language time range
// and can re-issue the last query on an interval until closed.
type Upcoming struct {
	source   MeetingsSource
	notifier notify.Notifier
	logger   logrus.FieldLogger
	interval time.Duration

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu        sync.Mutex
	query     string
	meetings  string
	loading   bool
	restart   context.CancelFunc
	listeners []func(string)
}

func NewUpcoming(source MeetingsSource, notifier notify.Notifier, interval time.Duration, logger logrus.FieldLogger) *Upcoming {
	if interval <= 0 {
		interval = config.MeetingsRefreshInterval
	}
	if logger == nil {
		logger = config.Logger
	}
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}
	base, stop := context.WithCancel(context.Background())
	return &Upcoming{
		source:   source,
		notifier: notifier,
		logger:   logger,
		interval: interval,
		base:     base,
		stop:     stop,
		query:    config.DefaultMeetingQuery,
	}
}

// Query forwards q verbatim and remembers it as the query auto refresh repeats.
// On failure the previously shown text is kept.
func (u *Upcoming) Query(ctx context.Context, q string) (string, error) {
	u.mu.Lock()
	u.query = q
	u.loading = true
	u.mu.Unlock()

	meetings, err := u.source.UpcomingMeetings(ctx, q)

	u.mu.Lock()
	u.loading = false
	if err != nil {
		kept := u.meetings
		u.mu.Unlock()
		if ctx.Err() == nil {
			u.logger.Error("Failed to load meetings:", err)
			u.notifier.Error("Failed to load upcoming meetings", err)
		}
		return kept, err
	}
	u.meetings = meetings
	listeners := append(([]func(string))(nil), u.listeners...)
	u.mu.Unlock()

	for _, fn := range listeners {
		fn(meetings)
	}
	return meetings, nil
}

// OnUpdate registers fn to receive the text of every successful fetch.
func (u *Upcoming) OnUpdate(fn func(string)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = append(u.listeners, fn)
}

// Refresh re-issues the last query.
func (u *Upcoming) Refresh(ctx context.Context) (string, error) {
	return u.Query(ctx, u.LastQuery())
}

// Start loads query in the background and, with autoRefresh, keeps re-issuing the
// last query every interval. Calling Start again replaces the previous loop.
func (u *Upcoming) Start(query string, autoRefresh bool) {
	if query == "" {
		query = config.DefaultMeetingQuery
	}

	u.mu.Lock()
	if u.restart != nil {
		u.restart()
	}
	if u.base.Err() != nil {
		u.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(u.base)
	u.restart = cancel
	u.wg.Add(1)
	u.mu.Unlock()

	go func() {
		defer u.wg.Done()
		u.Query(ctx, query)
		if !autoRefresh {
			return
		}

		ticker := time.NewTicker(u.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				u.Refresh(ctx)
			}
		}
	}()
}

func (u *Upcoming) LastQuery() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.query
}

func (u *Upcoming) Loading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loading
}

// Text is the formatted meetings, or a placeholder when there are none.
func (u *Upcoming) Text() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.meetings == "" {
		return EmptyMeetingsText
	}
	return u.meetings
}

// Close stops auto refresh and waits; no fetch is issued after it returns.
func (u *Upcoming) Close() {
	u.mu.Lock()
	u.stop()
	u.mu.Unlock()
	u.wg.Wait()
}
