// Package tokenstore persists the signed-in credential in the local
// metadata table so that it survives process restarts.
//
// # Layout
//
// The current client writes three keys: KeyAccessToken, KeyUser (profile
// JSON) and KeyExpiry (absolute expiry, epoch milliseconds as decimal text).
// Earlier clients stored a bare bearer token under KeySessionToken or
// KeyJWTToken; those are still honored for reads through ReadFirstPresent
// and are always removed by Clear.
//
// A missing key or an unparsable value is never an error. Read does report
// storage errors, so a locked database is not mistaken for a partial
// credential; ReadFirstPresent, used only as a bearer fallback, treats them
// as absent.
package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mcpforge/internal/client/models"
	"github.com/dmitrijs2005/mcpforge/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/mcpforge/internal/logging"
	"github.com/dmitrijs2005/mcpforge/internal/timex"
)

const (
	KeyAccessToken  = "access_token"
	KeyUser         = "auth_user"
	KeyExpiry       = "auth_expiry"
	KeySessionToken = "session_token"
	KeyJWTToken     = "jwt_token"
)

// TokenKeyPrecedence is the order in which bearer tokens are looked up when
// no in-memory session is available.
var TokenKeyPrecedence = []string{KeyAccessToken, KeySessionToken, KeyJWTToken}

// AllKeys lists every key any client version has written.
var AllKeys = []string{KeyAccessToken, KeyUser, KeyExpiry, KeySessionToken, KeyJWTToken}

// Snapshot is the raw persisted credential. ExpiresAt is zero when the
// expiry key is absent or unparsable.
type Snapshot struct {
	Token     string
	UserJSON  []byte
	ExpiresAt time.Time
}

// Empty reports whether none of the primary keys held a value.
func (s Snapshot) Empty() bool {
	return s.Token == "" && len(s.UserJSON) == 0 && s.ExpiresAt.IsZero()
}

// Store is safe for concurrent use; serialization is delegated to the
// underlying repository.
type Store struct {
	repo metadata.Repository
	log  logging.Logger
}

func New(repo metadata.Repository, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{repo: repo, log: log.With("component", "tokenstore")}
}

// Write replaces the stored credential. The three primary keys are written
// in one transaction; there is no merge with what was stored before.
func (s *Store) Write(ctx context.Context, cred models.Credential) error {
	userJSON, err := json.Marshal(cred.User)
	if err != nil {
		return fmt.Errorf("tokenstore.Write: encode user: %w", err)
	}
	expiry := strconv.FormatInt(timex.UnixMilli(cred.ExpiresAt), 10)

	err = s.repo.Update(ctx, func(tx metadata.Repository) error {
		if err := tx.Set(ctx, KeyAccessToken, []byte(cred.AccessToken)); err != nil {
			return err
		}
		if err := tx.Set(ctx, KeyUser, userJSON); err != nil {
			return err
		}
		return tx.Set(ctx, KeyExpiry, []byte(expiry))
	})
	if err != nil {
		return fmt.Errorf("tokenstore.Write: %w", err)
	}
	return nil
}

// WriteUser replaces only the stored profile.
func (s *Store) WriteUser(ctx context.Context, user models.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("tokenstore.WriteUser: encode user: %w", err)
	}
	if err := s.repo.Set(ctx, KeyUser, userJSON); err != nil {
		return fmt.Errorf("tokenstore.WriteUser: %w", err)
	}
	return nil
}

// Read returns the persisted primary keys, taken from one query so the
// three values belong to the same write. An empty Snapshot means nothing
// is stored.
func (s *Store) Read(ctx context.Context) (Snapshot, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("tokenstore.Read: %w", err)
	}

	var snap Snapshot
	snap.Token = trimmed(stored[KeyAccessToken])
	if u := trimmed(stored[KeyUser]); u != "" {
		snap.UserJSON = []byte(u)
	}
	if raw := trimmed(stored[KeyExpiry]); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.log.Warn(ctx, "ignoring unparsable expiry", "value", raw)
		} else {
			snap.ExpiresAt = timex.FromUnixMilli(ms)
		}
	}

	return snap, nil
}

// ReadFirstPresent returns the first non-empty value among keys, in order.
func (s *Store) ReadFirstPresent(ctx context.Context, keys []string) (string, bool) {
	for _, k := range keys {
		if v := s.get(ctx, k); v != "" {
			return v, true
		}
	}
	return "", false
}

// Clear removes every known key, legacy ones included. Clearing an empty
// store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("tokenstore.Clear: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) string {
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn(ctx, "token store read failed", "key", key, "error", err)
		return ""
	}
	return trimmed(v)
}

func trimmed(v []byte) string {
	return strings.TrimSpace(string(v))
}
