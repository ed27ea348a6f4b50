package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key or record does not exist.
var ErrNotFound = errors.New("not found")

// KV persists opaque blobs by key. Each record collection is stored as one
// JSON blob under its collection name.
type KV interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

var (
	_ KV = (*SQLite)(nil)
	_ KV = (*DB)(nil)
)
