// Package metadata implements the client's local key/value table. It is the
// durable substrate behind the token store: values survive process restarts
// and are shared by every client process using the same database file.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store.
//
// Get returns (nil, nil) for an absent key. Delete is idempotent and accepts
// any number of keys. Update runs fn against a transactional view; all writes
// made through that view are committed together or not at all.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Update(ctx context.Context, fn func(tx Repository) error) error
}
