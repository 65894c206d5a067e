// Package posting defines the Posting Client contract: a
// stateless client for the downstream, non-idempotent posting service.
package posting

import (
	"context"
	"errors"

	"github.com/romanqed/txgate/internal/txn"
)

// ErrAbsent is returned by Get when the downstream has no record for
// the given transaction id.
var ErrAbsent = errors.New("posting: record absent")

// Client is the collaborator interface the Worker Pool uses to run the
// posting protocol. Implementations must not retry
// internally — retries are the queue's responsibility.
type Client interface {
	// Get reports whether the downstream already holds a record for
	// id. A nil error means present; ErrAbsent means "confirmed
	// absent", as distinct from any other error, which callers treat
	// conservatively as a pre-write failure.
	Get(ctx context.Context, id string) error

	// Post submits tx to the downstream. A non-nil error is ambiguous:
	// the record may or may not have been persisted before the error
	// surfaced; the caller resolves the ambiguity with a follow-up Get.
	Post(ctx context.Context, tx *txn.Transaction) error
}
