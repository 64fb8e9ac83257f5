package commands

import (
	"bytes"
	"clementus360/agent-client/app"
	"clementus360/agent-client/auth"
	"clementus360/agent-client/config"
	"clementus360/agent-client/notify"
	"clementus360/agent-client/types"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeBackend struct {
	mu       sync.Mutex
	sessions []types.Session
	messages map[string]string
	queries  []string
	chats    []types.ChatRequest
	chatDown bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/sessions":
		json.NewEncoder(w).Encode(b.sessions)
	case r.Method == http.MethodPost && r.URL.Path == "/sessions":
		created := types.Session{ID: "created", Title: "New Chat", IsActive: true}
		b.sessions = append([]types.Session{created}, b.sessions...)
		json.NewEncoder(w).Encode(created)
	case r.Method == http.MethodPost && r.URL.Path == "/chat":
		var req types.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.chats = append(b.chats, req)
		if b.chatDown {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, `{"detail":"model unavailable"}`)
			return
		}
		io.WriteString(w, `{"response":"Hello back","success":true,"user_id":"u1"}`)
	case r.URL.Path == "/calendar/status":
		io.WriteString(w, `{"connected":true,"provider":"google","scopes":["calendar.readonly"]}`)
	case r.URL.Path == "/calendar/meetings":
		query := r.URL.Query().Get("query")
		b.queries = append(b.queries, query)
		io.WriteString(w, `{"meetings":"Standup at 9:00 (`+query+`)"}`)
	case r.Method == http.MethodPost && r.URL.Path == "/auth/signin":
		io.WriteString(w, `{"access_token":"fresh-token","token_type":"bearer","user":{"id":"u1","username":"ada","email":"ada@example.com"}}`)
	case r.URL.Path == "/auth/verify-token":
		io.WriteString(w, `{"valid":true,"user_id":"u1"}`)
	case r.URL.Path == "/auth/me":
		io.WriteString(w, `{"id":"u1","username":"ada","email":"ada@example.com","first_name":"Ada","last_name":"Lovelace"}`)
	default:
		for id, body := range b.messages {
			if r.URL.Path == "/sessions/"+id+"/messages" {
				io.WriteString(w, body)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail":"Not found"}`)
	}
}

type harness struct {
	backend   *fakeBackend
	dir       string
	tokenFile string
	recorder  *notify.Recorder
}

func newHarness(t *testing.T, backend *fakeBackend) *harness {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	h := &harness{
		backend:   backend,
		dir:       dir,
		tokenFile: filepath.Join(dir, "credentials.json"),
		recorder:  &notify.Recorder{},
	}

	t.Setenv("ASSISTANT_API_URL", srv.URL)
	t.Setenv("ASSISTANT_TOKEN_FILE", h.tokenFile)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")

	creds, err := auth.NewStore(h.tokenFile)
	require.NoError(t, err)
	require.NoError(t, creds.Set("tok", nil))
	return h
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rt := &Runtime{Options: app.Options{Notifier: h.recorder}}
	root := newRootCommand(rt)
	defer rt.Close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", filepath.Join(h.dir, "config.toml")}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) activeSession(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, "active_session"))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func twoSessions() *fakeBackend {
	return &fakeBackend{
		sessions: []types.Session{
			{ID: "s1", Title: "Latest", IsActive: true, MessageCount: 2},
			{ID: "s0", Title: "Older", IsActive: true, MessageCount: 1},
		},
		messages: map[string]string{
			"s1": `[{"role":"user","content":"latest question","created_at":"2025-01-02T10:00:00Z"},{"role":"assistant","content":"latest answer","created_at":"2025-01-02T10:00:01Z"}]`,
			"s0": `[{"role":"user","content":"older question","created_at":"2024-12-01T09:00:00Z"}]`,
		},
	}
}

func TestSessionsListJSON(t *testing.T) {
	h := newHarness(t, twoSessions())

	out, err := h.run(t, "", "sessions", "list", "-o", "json")
	require.NoError(t, err)

	var listed []types.Session
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "s1", listed[0].ID)
	assert.Equal(t, "Older", listed[1].Title)
}

func TestSessionsListTable(t *testing.T) {
	h := newHarness(t, twoSessions())

	out, err := h.run(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION ID")
	assert.Contains(t, out, "Latest")
	assert.Contains(t, out, "Older")
}

func TestSelectIsRememberedForHistory(t *testing.T) {
	h := newHarness(t, twoSessions())

	_, err := h.run(t, "", "sessions", "select", "s0")
	require.NoError(t, err)
	assert.Equal(t, "s0", h.activeSession(t))

	out, err := h.run(t, "", "history", "-o", "json")
	require.NoError(t, err)

	var messages []types.Message
	require.NoError(t, json.Unmarshal([]byte(out), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "older question", messages[0].Content)
}

func TestSelectUnknownSession(t *testing.T) {
	h := newHarness(t, twoSessions())

	_, err := h.run(t, "", "sessions", "select", "missing")
	assert.Error(t, err)
	assert.Empty(t, h.activeSession(t))
}

func TestChatCreatesSessionWhenNoneExists(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.run(t, "", "chat", "plan", "my", "week")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello back")

	h.backend.mu.Lock()
	chats := append([]types.ChatRequest(nil), h.backend.chats...)
	h.backend.mu.Unlock()
	require.Len(t, chats, 1)
	assert.Equal(t, "plan my week", chats[0].Message)
	assert.Equal(t, "created", chats[0].SessionID)
	assert.Equal(t, "created", h.activeSession(t))
}

func TestChatInteractive(t *testing.T) {
	h := newHarness(t, twoSessions())

	out, err := h.run(t, "first\n/new\nsecond\n/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "latest answer", "history of the current session is shown")
	assert.Equal(t, 2, strings.Count(out, "Hello back"))

	h.backend.mu.Lock()
	chats := append([]types.ChatRequest(nil), h.backend.chats...)
	h.backend.mu.Unlock()
	require.Len(t, chats, 2)
	assert.Equal(t, "s1", chats[0].SessionID)
	assert.Equal(t, "created", chats[1].SessionID)
}

func TestChatInteractiveKeepsGoingAfterFailure(t *testing.T) {
	backend := twoSessions()
	backend.chatDown = true
	h := newHarness(t, backend)

	hook := test.NewLocal(config.Logger)
	t.Cleanup(func() { config.Logger.SetLevel(logrus.InfoLevel) })

	_, err := h.run(t, "first\nsecond\n/quit\n", "-v", "chat")
	require.NoError(t, err)

	h.backend.mu.Lock()
	chats := len(h.backend.chats)
	h.backend.mu.Unlock()
	assert.Equal(t, 2, chats)
	assert.Len(t, h.recorder.Errors(), 2)

	var logged int
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.DebugLevel && strings.HasPrefix(entry.Message, "Chat send failed:") {
			logged++
		}
	}
	assert.Equal(t, 2, logged)
}

func TestMeetingsQuickQuery(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.run(t, "", "meetings", "--quick", "Next Week")
	require.NoError(t, err)
	assert.Contains(t, out, "Standup at 9:00 (next week)")

	_, err = h.run(t, "", "meetings", "--quick", "someday")
	assert.Error(t, err)
}

func TestMeetingsDefaultsToNextSevenDays(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, err := h.run(t, "", "meetings")
	require.NoError(t, err)

	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	assert.Equal(t, []string{"next 7 days"}, h.backend.queries)
}

func TestCalendarStatusYAML(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.run(t, "", "calendar", "status", "-o", "yaml")
	require.NoError(t, err)

	var status map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &status))
	assert.Equal(t, true, status["connected"])
	assert.Equal(t, "google", status["provider"])
}

func TestSigninStoresToken(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, err := h.run(t, "secret\n", "signin", "--email", "ada@example.com")
	require.NoError(t, err)

	creds, err := auth.NewStore(h.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", creds.Token())
	require.NotNil(t, creds.User())
	assert.Equal(t, "ada", creds.User().Username)

	_, err = h.run(t, "", "signout")
	require.NoError(t, err)
	creds, err = auth.NewStore(h.tokenFile)
	require.NoError(t, err)
	assert.Empty(t, creds.Token())
}

func TestWhoami(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	out, err := h.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace <ada@example.com>\n", out)
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t, &fakeBackend{})

	_, err := h.run(t, "", "sessions", "list", "-o", "xml")
	assert.Error(t, err)
}
