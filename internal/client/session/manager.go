package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/mcpforge/internal/client/events"
	"github.com/dmitrijs2005/mcpforge/internal/client/models"
	"github.com/dmitrijs2005/mcpforge/internal/client/tokenstore"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
)

// DefaultTTL is how long a freshly issued credential is trusted locally.
const DefaultTTL = 24 * time.Hour

// clearTimeout bounds the store cleanup of a destroyed session. The cleanup
// does not inherit the caller's cancellation.
const clearTimeout = 5 * time.Second

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrEmptyToken       = errors.New("empty access token")
	ErrTokenExpired     = errors.New("access token already expired")
)

// Reason says why a session ended.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonExpired      Reason = "expired"
	ReasonUnauthorized Reason = "unauthorized"
	// ReasonCleared means the persisted credential disappeared underneath a
	// live session, e.g. another client process logged out.
	ReasonCleared Reason = "cleared"
)

// Destroyed is published when a live session ends.
type Destroyed struct {
	Reason Reason
	User   models.User
}

// Store is the persistence the Manager needs; *tokenstore.Store satisfies it.
type Store interface {
	Write(ctx context.Context, cred models.Credential) error
	WriteUser(ctx context.Context, user models.User) error
	Read(ctx context.Context) (tokenstore.Snapshot, error)
	ReadFirstPresent(ctx context.Context, keys []string) (string, bool)
	Clear(ctx context.Context) error
}

// UserFetcher performs the authenticated self-lookup used by RefreshUser.
type UserFetcher interface {
	GetMe(ctx context.Context, token string) (*models.User, error)
}

type Option func(*Manager)

// WithClock replaces time.Now; tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func WithUserFetcher(f UserFetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

// Manager is safe for concurrent use.
type Manager struct {
	store Store
	log   logging.Logger
	now   func() time.Time
	ttl   time.Duration

	// mu serializes every transition, including the store I/O that goes
	// with it, so readers never see memory and store disagree.
	mu      sync.RWMutex
	cred    *models.Credential
	loading bool
	fetcher UserFetcher

	destroyed *events.Bus[Destroyed]
	refresh   singleflight.Group
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		log:       logging.Nop(),
		now:       time.Now,
		ttl:       DefaultTTL,
		loading:   true,
		destroyed: events.NewBus[Destroyed](),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("component", "session")
	return m
}

// SetUserFetcher wires the API client after construction; the API client
// itself needs the Manager, so one side has to be late-bound.
func (m *Manager) SetUserFetcher(f UserFetcher) {
	m.mu.Lock()
	m.fetcher = f
	m.mu.Unlock()
}

// OnSessionDestroyed subscribes fn to forced and explicit logouts.
func (m *Manager) OnSessionDestroyed(fn func(Destroyed)) (unsubscribe func()) {
	return m.destroyed.Subscribe(fn)
}

// Hydrate restores the persisted credential. A present but unusable
// credential (expired, partial, corrupt profile) is destroyed. Legacy
// tokens without a primary credential are left alone for the API client's
// fallback lookup.
func (m *Manager) Hydrate(ctx context.Context) {
	m.mu.Lock()
	ev, ended := m.hydrateLocked(ctx)
	m.loading = false
	m.mu.Unlock()

	if ended {
		m.publish(ev)
	}
}

func (m *Manager) hydrateLocked(ctx context.Context) (Destroyed, bool) {
	snap, err := m.store.Read(ctx)
	if err != nil {
		// Nothing is known about the stored credential; keep what we have.
		m.log.Warn(ctx, "cannot read persisted session", "error", err)
		return Destroyed{}, false
	}
	if snap.Empty() {
		prev := m.cred
		m.cred = nil
		if prev == nil {
			return Destroyed{}, false
		}
		m.log.Info(ctx, "persisted session is gone", "user", prev.User.Label())
		return Destroyed{Reason: ReasonCleared, User: prev.User}, true
	}

	cred, err := decodeSnapshot(snap)
	if err == nil && !cred.Valid(m.now()) {
		err = ErrTokenExpired
	}
	if err != nil {
		m.log.Info(ctx, "discarding stored session", "reason", err.Error())
		prev, _ := m.destroyLocked(ctx)
		if prev == nil {
			return Destroyed{}, false
		}
		return Destroyed{Reason: ReasonExpired, User: prev.User}, true
	}

	m.cred = cred
	m.log.Debug(ctx, "session restored", "user", cred.User.Label(), "expires_at", cred.ExpiresAt)
	return Destroyed{}, false
}

// Login stores a new credential, replacing any previous one. The expiry is
// now+TTL, capped by the token's own exp claim when the token is a JWT.
// Once Login returns nil the credential is visible to every later request.
func (m *Manager) Login(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return ErrEmptyToken
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	if exp := jwtExpiry(token); !exp.IsZero() && exp.Before(expiresAt) {
		expiresAt = exp
	}
	if !now.Before(expiresAt) {
		return ErrTokenExpired
	}

	cred := models.Credential{AccessToken: token, User: user, ExpiresAt: expiresAt}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Write(ctx, cred); err != nil {
		return fmt.Errorf("session.Login: %w", err)
	}
	m.cred = &cred
	m.log.Info(ctx, "signed in", "user", user.Label(), "expires_at", expiresAt)
	return nil
}

// Logout ends the session at the user's request.
func (m *Manager) Logout(ctx context.Context) error {
	return m.Terminate(ctx, ReasonLogout)
}

// Terminate is the single destroy-session effect. See the package docs.
// The returned error only reports a failure to clear the store; in-memory
// state is reset regardless.
//
// A 401 that arrives while only a legacy token is stored still ends that
// stored session and is published, with a zero User.
func (m *Manager) Terminate(ctx context.Context, reason Reason) error {
	m.mu.Lock()
	legacy := false
	if m.cred == nil && reason == ReasonUnauthorized {
		_, legacy = m.store.ReadFirstPresent(context.WithoutCancel(ctx), tokenstore.TokenKeyPrecedence)
	}
	prev, clearErr := m.destroyLocked(ctx)
	m.mu.Unlock()

	switch {
	case prev != nil:
		m.ended(ctx, reason, prev.User)
	case legacy:
		m.ended(ctx, reason, models.User{})
	}
	if clearErr != nil {
		return fmt.Errorf("session.Terminate: %w", clearErr)
	}
	return nil
}

// EnforceExpiry destroys a credential whose expiry passed while the process
// was running. It reports whether a session was ended.
func (m *Manager) EnforceExpiry(ctx context.Context) bool {
	m.mu.Lock()
	if m.cred == nil || m.cred.Valid(m.now()) {
		m.mu.Unlock()
		return false
	}
	prev, _ := m.destroyLocked(ctx)
	m.mu.Unlock()

	if prev != nil {
		m.ended(ctx, ReasonExpired, prev.User)
	}
	return prev != nil
}

// RefreshUser re-reads the profile with GET /auth/me and replaces the
// in-memory and stored user. Token and expiry are untouched. Concurrent
// calls share one lookup. A 401 ends the session through Terminate, which
// the API client invokes before RefreshUser sees the error.
func (m *Manager) RefreshUser(ctx context.Context) error {
	m.mu.RLock()
	fetcher := m.fetcher
	m.mu.RUnlock()

	token := m.AccessToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	if fetcher == nil {
		return errors.New("session.RefreshUser: no user fetcher configured")
	}

	// The lookup is shared, so it must not die with whichever caller
	// started it; each caller still stops waiting when its own ctx ends.
	lookupCtx := context.WithoutCancel(ctx)
	ch := m.refresh.DoChan(token, func() (any, error) {
		user, err := fetcher.GetMe(lookupCtx, token)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		if m.cred == nil || m.cred.AccessToken != token {
			// Logged out or replaced while the lookup was in flight.
			return nil, ErrNotAuthenticated
		}
		if err := m.store.WriteUser(lookupCtx, *user); err != nil {
			m.log.Warn(lookupCtx, "failed to persist refreshed profile", "error", err)
		}
		next := *m.cred
		next.User = *user
		m.cred = &next
		return user, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("session.RefreshUser: %w", res.Err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session.RefreshUser: %w", ctx.Err())
	}
}

// IsAuthenticated reports whether a credential is held and unexpired.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred.Valid(m.now())
}

// IsLoading is true until the first Hydrate completes.
func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// AccessToken returns the bearer token of a valid session, or "".
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.cred.Valid(m.now()) {
		return ""
	}
	return m.cred.AccessToken
}

// User returns the signed-in profile.
func (m *Manager) User() (models.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.cred.Valid(m.now()) {
		return models.User{}, false
	}
	return m.cred.User, true
}

// ExpiresAt returns the expiry of the held credential, zero if none.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cred == nil {
		return time.Time{}
	}
	return m.cred.ExpiresAt
}

// destroyLocked is the one place a session is torn down: it clears the
// store and drops the in-memory credential, returning the credential that
// was held. The store is cleared even when ctx is already done. m.mu must
// be held for writing.
func (m *Manager) destroyLocked(ctx context.Context) (*models.Credential, error) {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	err := m.store.Clear(clearCtx)
	if err != nil {
		m.log.Error(ctx, "failed to clear token store", "error", err)
	}
	prev := m.cred
	m.cred = nil
	return prev, err
}

// ended logs and publishes the end of a session. m.mu must not be held.
func (m *Manager) ended(ctx context.Context, reason Reason, user models.User) {
	m.log.Info(ctx, "session ended", "reason", reason, "user", user.Label())
	m.publish(Destroyed{Reason: reason, User: user})
}

func (m *Manager) publish(ev Destroyed) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error(context.Background(), "session listener panicked", "reason", ev.Reason, "panic", p)
		}
	}()
	m.destroyed.Publish(ev)
}

func decodeSnapshot(snap tokenstore.Snapshot) (*models.Credential, error) {
	if snap.Token == "" {
		return nil, ErrEmptyToken
	}
	if len(snap.UserJSON) == 0 {
		return nil, errors.New("stored profile missing")
	}
	var user models.User
	if err := json.Unmarshal(snap.UserJSON, &user); err != nil {
		return nil, fmt.Errorf("stored profile unreadable: %w", err)
	}
	return &models.Credential{AccessToken: snap.Token, User: user, ExpiresAt: snap.ExpiresAt}, nil
}

// jwtExpiry returns the exp claim of a JWT without verifying its signature;
// verification is the backend's business. Opaque tokens yield zero.
func jwtExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
