package chat

import (
	"clementus360/agent-client/notify"
	"clementus360/agent-client/types"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	requested []string
	handler   func(ctx context.Context, sessionID string) ([]types.RemoteMessage, error)
}

func (f *fakeSource) ListMessages(ctx context.Context, sessionID string) ([]types.RemoteMessage, error) {
	f.mu.Lock()
	f.requested = append(f.requested, sessionID)
	handler := f.handler
	f.mu.Unlock()
	return handler(ctx, sessionID)
}

func (f *fakeSource) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}

func staticMessages(byID map[string][]types.RemoteMessage) func(context.Context, string) ([]types.RemoteMessage, error) {
	return func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		return byID[id], nil
	}
}

func newLoader(t *testing.T, source *fakeSource) (*Loader, *History, *notify.Recorder) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	history := &History{}
	recorder := &notify.Recorder{}
	l := NewLoader(source, history, recorder, logger)
	t.Cleanup(l.Close)
	return l, history, recorder
}

func contents(messages []types.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestLoadPreservesRemoteOrder(t *testing.T) {
	source := &fakeSource{handler: staticMessages(map[string][]types.RemoteMessage{
		"s1": {
			{Role: types.RoleUser, Content: "first", CreatedAt: "2025-01-02T10:00:00Z"},
			{Role: types.RoleAssistant, Content: "second", CreatedAt: "2025-01-02T10:00:00.5+00:00"},
			{Role: types.RoleUser, Content: "third", CreatedAt: "2025-01-02T10:01:00.123456"},
		},
	})}
	l, history, _ := newLoader(t, source)

	require.NoError(t, l.Load(context.Background(), "s1"))

	messages := history.Messages()
	assert.Equal(t, []string{"first", "second", "third"}, contents(messages))
	assert.Equal(t, types.RoleAssistant, messages[1].Role)
	assert.Equal(t, time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC), messages[0].Timestamp.UTC())
	assert.Equal(t, 500*time.Millisecond, messages[1].Timestamp.Sub(messages[0].Timestamp))
	assert.False(t, messages[2].Timestamp.IsZero())
}

func TestLoadFailureKeepsHistory(t *testing.T) {
	source := &fakeSource{handler: func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		return nil, errors.New("502 bad gateway")
	}}
	l, history, recorder := newLoader(t, source)
	history.Replace([]types.Message{{Role: types.RoleUser, Content: "kept"}})

	err := l.Load(context.Background(), "s1")

	require.Error(t, err)
	assert.Equal(t, []string{"kept"}, contents(history.Messages()))
	assert.Len(t, recorder.Errors(), 1)
}

func TestFollowFetchesSelectedSession(t *testing.T) {
	source := &fakeSource{handler: staticMessages(map[string][]types.RemoteMessage{
		"s2": {{Role: types.RoleUser, Content: "from s2", CreatedAt: "2025-01-02T10:00:00Z"}},
	})}
	l, history, _ := newLoader(t, source)

	l.Follow(&types.Session{ID: "s2"})
	l.Wait()

	assert.Equal(t, []string{"s2"}, source.calls())
	assert.Equal(t, []string{"from s2"}, contents(history.Messages()))
}

func TestFollowNilClearsWithoutFetch(t *testing.T) {
	source := &fakeSource{handler: staticMessages(nil)}
	l, history, _ := newLoader(t, source)
	history.Replace([]types.Message{{Content: "old"}})

	l.Follow(nil)
	l.Wait()

	assert.Empty(t, source.calls())
	assert.Zero(t, history.Len())
}

func TestFollowDiscardsSupersededLoad(t *testing.T) {
	started := make(chan struct{})
	var cancelled bool
	source := &fakeSource{handler: func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		if id == "slow" {
			close(started)
			<-ctx.Done()
			cancelled = true
			return []types.RemoteMessage{{Content: "stale"}}, nil
		}
		return []types.RemoteMessage{{Content: "fresh", CreatedAt: "2025-01-02T10:00:00Z"}}, nil
	}}
	l, history, recorder := newLoader(t, source)

	l.Follow(&types.Session{ID: "slow"})
	<-started
	l.Follow(&types.Session{ID: "fast"})
	l.Wait()

	assert.True(t, cancelled)
	assert.Equal(t, []string{"fresh"}, contents(history.Messages()))
	assert.Empty(t, recorder.Errors())
}

func TestCancelKeepsDisplayedHistory(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{handler: func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		close(started)
		<-release
		return []types.RemoteMessage{{Content: "stale"}}, nil
	}}
	l, history, _ := newLoader(t, source)
	history.Replace([]types.Message{{Content: "pending"}})

	l.Follow(&types.Session{ID: "s1"})
	<-started
	l.Cancel()
	close(release)
	l.Wait()

	assert.Equal(t, []string{"pending"}, contents(history.Messages()))
}

func TestFollowNilWinsOverLateResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	source := &fakeSource{handler: func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		close(started)
		<-release
		return []types.RemoteMessage{{Content: "stale"}}, nil
	}}
	l, history, _ := newLoader(t, source)

	l.Follow(&types.Session{ID: "s1"})
	<-started
	l.Follow(nil)
	close(release)
	l.Wait()

	assert.Empty(t, history.Messages())
}

func TestCloseCancelsInFlightLoad(t *testing.T) {
	started := make(chan struct{})
	source := &fakeSource{handler: func(ctx context.Context, id string) ([]types.RemoteMessage, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	l, history, recorder := newLoader(t, source)
	history.Replace([]types.Message{{Content: "old"}})

	l.Follow(&types.Session{ID: "s1"})
	<-started

	done := make(chan struct{})
	go func() {
		l.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	assert.Equal(t, []string{"old"}, contents(history.Messages()))
	assert.Empty(t, recorder.Errors())

	l.Follow(&types.Session{ID: "s2"})
	assert.Equal(t, []string{"s1"}, source.calls(), "no loads after Close")
}

func TestParseTimestamp(t *testing.T) {
	for _, input := range []string{
		"2025-01-02T10:00:00Z",
		"2025-01-02T10:00:00.123456+00:00",
		"2025-01-02T10:00:00.123456",
		"2025-01-02 10:00:00.123456+00:00",
		"2025-01-02 10:00:00",
	} {
		_, err := ParseTimestamp(input)
		assert.NoError(t, err, input)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}
