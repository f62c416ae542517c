// Package storage defines the durable key-value port carts persist to.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Load when no value exists under the key.
var ErrNotFound = errors.New("key not found")

// Storage is a narrow durable KV contract: whole-value reads and overwrites
// of a serialized item list under a fixed key. Implementations must treat
// Save as a full replacement of any previous value.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
