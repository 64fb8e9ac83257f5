package supabase

import (
	"clementus360/agent-client/auth"
	"clementus360/agent-client/types"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedQuery struct {
	Method string
	Table  string
	Query  map[string]string
	Auth   string
	Body   map[string]interface{}
}

type fakePostgrest struct {
	mu      sync.Mutex
	queries []recordedQuery
	rows    map[string]string
}

func (f *fakePostgrest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	q := recordedQuery{
		Method: r.Method,
		Table:  table,
		Query:  map[string]string{},
		Auth:   r.Header.Get("Authorization"),
	}
	for k, v := range r.URL.Query() {
		q.Query[k] = v[0]
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &q.Body)
	}

	f.mu.Lock()
	f.queries = append(f.queries, q)
	body, ok := f.rows[table]
	f.mu.Unlock()

	if !ok {
		body = "[]"
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, body)
}

func (f *fakePostgrest) last() recordedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func newTestStore(t *testing.T, rows map[string]string) (*Store, *fakePostgrest, string) {
	t.Helper()
	fake := &fakePostgrest{rows: rows}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	creds, err := auth.NewStore("")
	require.NoError(t, err)
	require.NoError(t, creds.Set(token, nil))

	store, err := NewStore(srv.URL, "anon-key", creds)
	require.NoError(t, err)
	return store, fake, token
}

func TestNewStoreRequiresSignedInUser(t *testing.T) {
	creds, err := auth.NewStore("")
	require.NoError(t, err)

	_, err = NewStore("http://localhost", "anon-key", creds)
	assert.Error(t, err)

	_, err = NewStore("", "", creds)
	assert.Error(t, err)
}

func TestListSessions(t *testing.T) {
	store, fake, token := newTestStore(t, map[string]string{
		"session_stats": `[
			{"id":"s2","title":"Latest","is_active":true,"message_count":4,"last_message_at":"2024-05-02T10:00:00Z"},
			{"id":"s1","title":"Older","is_active":true,"message_count":0}
		]`,
	})
	assert.Equal(t, "user-1", store.UserID())

	sessions, err := store.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Equal(t, 4, sessions[0].MessageCount)
	require.NotNil(t, sessions[0].LastMessageAt)

	q := fake.last()
	assert.Equal(t, http.MethodGet, q.Method)
	assert.Equal(t, "session_stats", q.Table)
	assert.Equal(t, "eq.user-1", q.Query["user_id"])
	assert.Equal(t, "eq.true", q.Query["is_active"])
	assert.True(t, strings.HasPrefix(q.Query["order"], "last_message_at.desc"))
	assert.Equal(t, "Bearer "+token, q.Auth)
}

func TestCreateSession(t *testing.T) {
	store, fake, _ := newTestStore(t, map[string]string{
		"chat_sessions": `[{"id":"new","title":"Plans","is_active":true}]`,
	})

	session, err := store.CreateSession(context.Background(), types.CreateSessionRequest{
		Title:       "Plans",
		Description: types.StringPtr("weekend"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new", session.ID)

	q := fake.last()
	assert.Equal(t, http.MethodPost, q.Method)
	assert.Equal(t, "user-1", q.Body["user_id"])
	assert.Equal(t, "Plans", q.Body["title"])
	assert.Equal(t, "weekend", q.Body["description"])
}

func TestUpdateAndDeleteSession(t *testing.T) {
	store, fake, _ := newTestStore(t, map[string]string{
		"chat_sessions": `[{"id":"s1","title":"Renamed","is_active":true}]`,
	})
	ctx := context.Background()

	session, err := store.UpdateSession(ctx, "s1", types.SessionPatch{Title: types.StringPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", session.Title)

	q := fake.last()
	assert.Equal(t, http.MethodPatch, q.Method)
	assert.Equal(t, "eq.s1", q.Query["id"])
	assert.Equal(t, "Renamed", q.Body["title"])

	require.NoError(t, store.DeleteSession(ctx, "s1"))
	q = fake.last()
	assert.Equal(t, http.MethodPatch, q.Method)
	assert.Equal(t, false, q.Body["is_active"])

	_, err = store.UpdateSession(ctx, "s1", types.SessionPatch{})
	assert.Error(t, err)
}

func TestUpdateMissingSession(t *testing.T) {
	store, _, _ := newTestStore(t, nil)

	_, err := store.UpdateSession(context.Background(), "gone", types.SessionPatch{Title: types.StringPtr("x")})
	assert.Error(t, err)
	assert.Error(t, store.DeleteSession(context.Background(), "gone"))
}

func TestListMessagesInOrder(t *testing.T) {
	store, fake, _ := newTestStore(t, map[string]string{
		"chat_messages": `[
			{"role":"user","content":"hi","created_at":"2024-05-02T10:00:00Z"},
			{"role":"assistant","content":"hello","created_at":"2024-05-02T10:00:01Z"}
		]`,
	})

	messages, err := store.ListMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, types.RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[1].Content)

	q := fake.last()
	assert.Equal(t, "chat_messages", q.Table)
	assert.Equal(t, "eq.s1", q.Query["session_id"])
	assert.True(t, strings.HasPrefix(q.Query["order"], "message_order.asc"))
}

func TestCancelledContextSkipsQuery(t *testing.T) {
	store, fake, _ := newTestStore(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListSessions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.queries)
}
