// Package state defines the State Store contract: a keyed
// store, keyed by transaction id, holding the per-transaction state
// record with TTL.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/romanqed/txgate/internal/txn"
)

// ErrNotFound is returned by Get when no record exists for the given id.
var ErrNotFound = errors.New("state: not found")

// ErrAlreadyExists is returned by CreateIfAbsent when a record for the
// given id already exists. The caller treats this the same way as an
// observed concurrent create: the transaction is already accepted.
var ErrAlreadyExists = errors.New("state: already exists")

// Store is the keyed state store used by the Submission Service and
// the Worker Pool. All methods are safe for concurrent use.
type Store interface {
	// Get returns the current state for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*txn.State, error)

	// Put writes s with last-writer-wins semantics and resets the TTL.
	Put(ctx context.Context, s *txn.State, ttl time.Duration) error

	// CreateIfAbsent atomically creates s iff no record exists for
	// s.ID. Returns ErrAlreadyExists (with the existing record) if one
	// does.
	CreateIfAbsent(ctx context.Context, s *txn.State, ttl time.Duration) (*txn.State, error)

	// Delete removes the record for id, if any. Deleting a
	// non-existent id is not an error.
	Delete(ctx context.Context, id string) error

	// Scan returns up to limit ids whose key carries the given prefix.
	// Intended for operational inspection; not used on hot paths.
	Scan(ctx context.Context, prefix string, limit int) ([]string, error)

	// Ping reports whether the backing store is reachable. Used only
	// by the health endpoint, never on a hot path.
	Ping(ctx context.Context) error
}
