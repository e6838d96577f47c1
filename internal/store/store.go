package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("entry not found")
)

// Store persists small JSON-encoded values keyed by name, standing in for the
// platform key-value storage a mobile client would use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
