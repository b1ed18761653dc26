// Package kvstore is the key-value persistence used for the registered
// credential. It plays the role browser local storage plays for the demo:
// string keys, string values, no expiry.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("key not found")

// Store persists string values under string keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
