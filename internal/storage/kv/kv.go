// Package kv provides the persistent string key-value stores backing the
// conversion ledger and the currency preferences.
package kv

import (
	"context"

	"github.com/pkg/errors"
)

// Store opaque string key-value store. Absent keys are not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("kv store is closed")
