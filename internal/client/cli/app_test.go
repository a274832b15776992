package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mcpforge/internal/client/config"
	"github.com/dmitrijs2005/mcpforge/internal/client/models"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

// ------------ helpers ------------

type backend struct {
	mu       sync.Mutex
	requests []string
	handlers map[string]http.HandlerFunc
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	h, ok := b.handlers[r.Method+" "+r.URL.Path]
	b.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func respond(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}
}

var credential = map[string]any{
	"success":      true,
	"access_token": "tok123",
	"user":         map[string]any{"email": "a@b.com", "display_name": "Ada", "subscription_tier": "pro", "is_active": true},
}

type testApp struct {
	*App
	out *bytes.Buffer
}

func newTestApp(t *testing.T, handlers map[string]http.HandlerFunc, input ...string) *testApp {
	t.Helper()
	color.NoColor = true

	srv := httptest.NewServer(&backend{handlers: handlers})
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BackendURL = srv.URL
	cfg.DatabasePath = ":memory:"
	cfg.PollInterval = time.Millisecond

	app, err := NewApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	out := &bytes.Buffer{}
	app.out = out
	app.reader = bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n"))
	app.session.Hydrate(context.Background())
	app.session.OnSessionDestroyed(app.onSessionDestroyed)
	return &testApp{App: app, out: out}
}

func (a *testApp) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, a.session.Login(context.Background(), "tok123", models.User{Email: "a@b.com", DisplayName: "Ada", SubscriptionTier: "pro", IsActive: true}))
}

// ------------ auth commands ------------

func TestMagicLink(t *testing.T) {
	var got map[string]any
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/magic-link": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			respond(http.StatusOK, map[string]any{"success": true})(w, r)
		},
	}, "a@b.com", "Ada")

	require.NoError(t, app.MagicLink(context.Background()))

	assert.Equal(t, map[string]any{"email": "a@b.com", "display_name": "Ada"}, got)
	assert.Contains(t, app.out.String(), "Magic link sent to a@b.com")
	assert.False(t, app.isLoggedIn())
}

func TestMagicLink_BackendError(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/magic-link": respond(http.StatusTooManyRequests, map[string]any{"success": false, "error": "Too many requests"}),
	}, "a@b.com", "")

	require.Error(t, app.MagicLink(context.Background()))
	assert.Contains(t, app.out.String(), "Error: Too many requests")
}

func TestMagicLink_EmptyEmail(t *testing.T) {
	app := newTestApp(t, nil, "")

	require.Error(t, app.MagicLink(context.Background()))
	assert.Contains(t, app.out.String(), "Email is required")
}

func TestVerify(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/verify": respond(http.StatusOK, credential),
	})

	require.NoError(t, app.Verify(context.Background(), []string{"good"}))

	assert.True(t, app.isLoggedIn())
	assert.Contains(t, app.out.String(), "Signed in as Ada")
}

func TestVerify_PromptsForToken(t *testing.T) {
	old := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = old })

	var token string
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/verify": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			token = body["token"]
			respond(http.StatusOK, map[string]any{"success": false, "error": "Invalid token"})(w, r)
		},
	}, "pasted")

	require.Error(t, app.Verify(context.Background(), nil))
	assert.Equal(t, "pasted", token)
	assert.Contains(t, app.out.String(), "Error: Invalid token")
	assert.False(t, app.isLoggedIn())
}

func TestOAuth(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/oauth":        respond(http.StatusOK, credential),
		"POST /auth/oauth/github": respond(http.StatusOK, credential),
	})
	ctx := context.Background()

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "a@b.com"}).SignedString([]byte("k"))
	require.NoError(t, err)

	require.NoError(t, app.OAuth(ctx, []string{"google", idToken}))
	assert.True(t, app.isLoggedIn())

	require.NoError(t, app.Logout(ctx))
	require.NoError(t, app.OAuth(ctx, []string{"github", "c0de", "st"}))
	assert.True(t, app.isLoggedIn())

	require.Error(t, app.OAuth(ctx, []string{"github"}))
	assert.Contains(t, app.out.String(), "No authorization code received from GitHub")

	require.Error(t, app.OAuth(ctx, []string{"myspace"}))
	require.Error(t, app.OAuth(ctx, nil))
}

func TestLogout_Twice(t *testing.T) {
	app := newTestApp(t, nil)
	app.signIn(t)

	require.NoError(t, app.Logout(context.Background()))
	require.NoError(t, app.Logout(context.Background()))

	assert.False(t, app.isLoggedIn())
	assert.Equal(t, 2, strings.Count(app.out.String(), "Signed out"))
	assert.NotContains(t, app.out.String(), "You have been signed out")
}

func TestRun_PipedAnswersReachPrompts(t *testing.T) {
	printed := capturePrints(t)
	old := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = old })

	var magic, verify map[string]string
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /auth/magic-link": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&magic)
			respond(http.StatusOK, map[string]any{"success": true})(w, r)
		},
		"POST /auth/verify": func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&verify)
			respond(http.StatusOK, credential)(w, r)
		},
	}, "magiclink", "a@b.com", "Ada", "verify", "tok-from-email", "exit")

	app.Run(context.Background(), nil)

	assert.Equal(t, map[string]string{"email": "a@b.com", "display_name": "Ada"}, magic)
	assert.Equal(t, map[string]string{"token": "tok-from-email"}, verify)
	assert.True(t, app.isLoggedIn())
	assert.Contains(t, app.out.String(), "Signed in as Ada")
	for _, line := range *printed {
		assert.NotContains(t, line, "Unknown command")
	}
	assert.Equal(t, "Bye!", (*printed)[len(*printed)-1])
}

// ------------ session commands ------------

func TestWhoAmI(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /auth/me": respond(http.StatusOK, map[string]any{"success": true, "user": map[string]any{"email": "a@b.com", "display_name": "Ada L.", "subscription_tier": "team", "is_active": true}}),
	})
	app.signIn(t)

	require.NoError(t, app.WhoAmI(context.Background()))

	assert.Contains(t, app.out.String(), "Ada L.")
	assert.Contains(t, app.out.String(), "team")
}

func TestWhoAmI_Unauthorized(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /auth/me": respond(http.StatusUnauthorized, map[string]any{"detail": "expired"}),
	})
	app.signIn(t)

	require.Error(t, app.WhoAmI(context.Background()))

	assert.False(t, app.isLoggedIn())
	assert.Contains(t, app.out.String(), "You have been signed out (unauthorized)")
	assert.Contains(t, app.out.String(), "Authentication failed")
}

func TestWhoAmI_SignedOut(t *testing.T) {
	app := newTestApp(t, nil)

	require.Error(t, app.WhoAmI(context.Background()))
	assert.Contains(t, app.out.String(), "Not signed in")
}

func TestStatus(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /auth/": respond(http.StatusOK, map[string]any{"ok": true}),
	})
	app.signIn(t)

	require.NoError(t, app.Status(context.Background()))

	assert.Contains(t, app.out.String(), "Signed in as Ada (pro plan)")
	assert.Contains(t, app.out.String(), "reachable")
	assert.Equal(t, ModeOnline, app.mode())
	assert.Equal(t, "mcpforge (Ada online)", app.getStatus())
}

func TestGetStatus_SignedOut(t *testing.T) {
	app := newTestApp(t, nil)
	assert.Equal(t, "mcpforge", app.getStatus())

	app.setMode(ModeOffline)
	assert.Equal(t, "mcpforge (offline)", app.getStatus())
}

func TestStartWatcher_EndsExpiredSession(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /auth/": respond(http.StatusOK, map[string]any{}),
	})
	jwtTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(1500 * time.Millisecond).Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, app.session.Login(context.Background(), jwtTok, models.User{DisplayName: "Ada"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		app.StartWatcher(ctx, 50*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return app.session.ExpiresAt().IsZero() }, 5*time.Second, 20*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, ModeOnline, app.mode())
}

// ------------ chat commands ------------

func TestChat(t *testing.T) {
	polls := 0
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /chat/create": respond(http.StatusOK, map[string]any{"success": true, "chat_session_id": "c-1"}),
		"GET /chat/c-1/status": func(w http.ResponseWriter, r *http.Request) {
			polls++
			status := "generating"
			if polls > 1 {
				status = "completed"
			}
			respond(http.StatusOK, map[string]any{"success": true, "status": status})(w, r)
		},
	})
	app.signIn(t)

	require.NoError(t, app.Chat(context.Background(), []string{"weather", "server"}))

	assert.Contains(t, app.out.String(), "Chat c-1 started")
	assert.Contains(t, app.out.String(), "Chat c-1 is completed")
}

func TestChat_PromptFromInput(t *testing.T) {
	var prompt string
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /chat/create": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			prompt = body["prompt"]
			respond(http.StatusOK, map[string]any{"success": true, "chat_session_id": "c-2"})(w, r)
		},
		"GET /chat/c-2/status": respond(http.StatusOK, map[string]any{"success": true, "status": "failed"}),
	}, "line one", "line two", "")
	app.signIn(t)

	require.NoError(t, app.Chat(context.Background(), nil))
	assert.Equal(t, "line one\nline two", prompt)
}

func TestSessions(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /chat/sessions": respond(http.StatusOK, map[string]any{
			"success":  true,
			"sessions": []map[string]string{{"id": "c-1", "title": "Weather", "updated_at": "2026-01-02"}},
			"total":    1,
		}),
	})
	app.signIn(t)

	require.NoError(t, app.Sessions(context.Background()))
	assert.Contains(t, app.out.String(), "c-1")
	assert.Contains(t, app.out.String(), "Weather")
	assert.Contains(t, app.out.String(), "1 session(s)")
}

func TestHistory_NotFound(t *testing.T) {
	app := newTestApp(t, nil)
	app.signIn(t)

	require.Error(t, app.History(context.Background(), []string{"missing"}))
	assert.Contains(t, app.out.String(), "Not found.")
	assert.True(t, app.isLoggedIn())
}

func TestSendAndChatStatus(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"POST /chat/message":   respond(http.StatusOK, map[string]any{"success": true, "reply": "done"}),
		"GET /chat/c-1/status": respond(http.StatusOK, map[string]any{"success": true, "status": "completed"}),
	})
	app.signIn(t)
	ctx := context.Background()

	require.NoError(t, app.Send(ctx, []string{"c-1", "add", "a", "tool"}))
	require.NoError(t, app.ChatStatus(ctx, []string{"c-1"}))
	assert.Contains(t, app.out.String(), `"reply": "done"`)
	assert.Contains(t, app.out.String(), `"status": "completed"`)

	require.Error(t, app.Send(ctx, []string{"c-1"}))
	require.Error(t, app.ChatStatus(ctx, nil))
	assert.Contains(t, app.out.String(), "Usage: send <chat_id> <message>")
}

func TestSessions_ConcurrentUnauthorizedNoticeOnce(t *testing.T) {
	app := newTestApp(t, map[string]http.HandlerFunc{
		"GET /chat/sessions":   respond(http.StatusUnauthorized, nil),
		"GET /chat/c-1/status": respond(http.StatusUnauthorized, nil),
	})
	app.signIn(t)
	sb := &syncBuffer{buf: app.out}
	app.App.out = sb

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = app.Sessions(context.Background()) }()
	go func() { defer wg.Done(); _ = app.ChatStatus(context.Background(), []string{"c-1"}) }()
	wg.Wait()

	assert.Equal(t, 1, strings.Count(sb.String(), "You have been signed out"))
	assert.False(t, app.isLoggedIn())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
