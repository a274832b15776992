package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/mcpforge/internal/client/client"
	"github.com/dmitrijs2005/mcpforge/internal/client/config"
	"github.com/dmitrijs2005/mcpforge/internal/client/models"
	"github.com/dmitrijs2005/mcpforge/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mcpforge/internal/client/services"
	"github.com/dmitrijs2005/mcpforge/internal/client/session"
	"github.com/dmitrijs2005/mcpforge/internal/client/tokenstore"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const watchInterval = 10 * time.Second

// ChatAPI is the part of the API client used by chat commands.
type ChatAPI interface {
	CreateChat(ctx context.Context, prompt, chatSessionID string) (*models.CreatedChat, error)
	SendMessage(ctx context.Context, chatID, message string) (json.RawMessage, error)
	ChatHistory(ctx context.Context, chatID string) (json.RawMessage, error)
	ChatStatus(ctx context.Context, chatID string) (*models.ChatStatus, error)
	ListChatSessions(ctx context.Context) (*models.ChatSessions, error)
	WaitForChat(ctx context.Context, chatID string, done func(*models.ChatStatus) bool) (*models.ChatStatus, error)
}

type App struct {
	config      *config.Config
	log         logging.Logger
	session     *session.Manager
	authService services.AuthService
	chat        ChatAPI
	db          *sql.DB
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	Mode Mode
}

// NewApp opens the session database and wires the session manager, API
// client and auth flows together.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	store := tokenstore.New(metadata.NewSQLiteRepository(db), log)
	mgr := session.NewManager(store, session.WithTTL(c.SessionTTL), session.WithLogger(log))

	api := client.New(c.BackendURL,
		client.WithSession(mgr),
		client.WithTokenReader(store),
		client.WithTimeout(c.RequestTimeout),
		client.WithPollInterval(c.PollInterval),
		client.WithLogger(log),
	)
	mgr.SetUserFetcher(api)

	return &App{
		config:      c,
		log:         log,
		session:     mgr,
		authService: services.NewAuthService(api, mgr, log),
		chat:        api,
		db:          db,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}, nil
}

// Run restores the saved session, then executes args as a single command,
// or starts the REPL when args is empty.
func (a *App) Run(ctx context.Context, args []string) {
	defer a.Close()

	a.session.Hydrate(ctx)
	unsubscribe := a.session.OnSessionDestroyed(a.onSessionDestroyed)
	defer unsubscribe()

	if len(args) > 0 {
		dispatch(ctx, a, args)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartWatcher(ctx, watchInterval)

	printlnFn("Welcome to mcpforge CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil && a.session.IsAuthenticated()
}

func (a *App) onSessionDestroyed(ev session.Destroyed) {
	switch ev.Reason {
	case session.ReasonLogout:
		return
	case session.ReasonExpired:
		a.println("Your session has expired. Sign in again with 'magiclink' or 'oauth'.")
	default:
		a.println("You have been signed out (" + string(ev.Reason) + "). Sign in again with 'magiclink' or 'oauth'.")
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode != mode {
		a.Mode = mode
		a.log.Info(context.Background(), "connectivity changed", "mode", mode)
	}
}

func (a *App) mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Mode
}

// StartWatcher periodically ends a session whose expiry has passed and
// tracks whether the backend is reachable. It returns when ctx ends.
func (a *App) StartWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.session.EnforceExpiry(ctx)

			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}
