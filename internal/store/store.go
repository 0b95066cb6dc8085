// Package store persists application records. The tracking store is the
// only shared mutable resource in the engine: all mutation goes through
// its atomic per-key Upsert.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/candigo/candigo/internal/application"
)

// ErrNotFound is returned by Get and FindByURL when no record matches.
var ErrNotFound = errors.New("record not found")

// Error marks a storage fault for a single key. The engine treats it as
// fatal for that key only; other keys' records proceed untouched.
type Error struct {
	Key string
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracking store %s for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is a durable mapping from dedup key to application record.
//
// Upsert must be atomic per key and crash-consistent: an interrupted
// write leaves the prior committed value, never a partially written
// record. Reads never block writes to different keys.
type Store interface {
	Get(ctx context.Context, key string) (*application.Record, error)
	Upsert(ctx context.Context, rec *application.Record) error
	List(ctx context.Context, states ...application.State) ([]*application.Record, error)

	// FindByURL supports the deduplicator's secondary signal: an exact
	// posting URL match is a certain duplicate regardless of key.
	FindByURL(ctx context.Context, url string) (*application.Record, error)

	// Prune removes records in the given terminal states whose last
	// state change is older than the cutoff, returning how many were
	// removed. Retention policy is the operator's call; the engine
	// never invokes this on its own.
	Prune(ctx context.Context, olderThan time.Time, states ...application.State) (int, error)

	Close() error
}
