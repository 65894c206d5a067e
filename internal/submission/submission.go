// Package submission implements the Submission Service:
// the idempotent entry point clients call to accept a transaction and
// later poll its status.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/message"
	"github.com/romanqed/txgate/internal/state"
	"github.com/romanqed/txgate/internal/txn"
)

// StateTTL is the TTL applied to a freshly created TransactionState.
// Refreshed on every subsequent write by the Worker Pool.
const StateTTL = 24 * time.Hour

// jobNamespace roots the deterministic mapping from transaction id to
// job id (see jobID). It is arbitrary but fixed: changing it would
// change every future job id derived from an existing transaction id.
var jobNamespace = uuid.MustParse("6f0e6e3a-2a1b-4b7a-9b1a-2f6b0a7c9d1e")

// jobID maps a transaction id onto the uuid.UUID space message.Message.Id
// requires, deterministically: the same txID always yields the same
// job id, which is what lets queue.Pusher's job-id dedup
// stand in for dedup on the transaction id.
func jobID(txID string) uuid.UUID {
	return uuid.NewSHA1(jobNamespace, []byte(txID))
}

// Service implements idempotent submission and lookup of transactions
// on top of a state.Store and a queue.Pusher-backed queue.
type Service struct {
	store state.Store
	queue queue.Pusher
	clock func() time.Time
}

// New builds a Service.
func New(store state.Store, queue queue.Pusher) *Service {
	return &Service{store: store, queue: queue, clock: time.Now}
}

// SubmitResult reports the outcome of Submit: whether this call was
// the one that created the record (Created=false means the same
// transaction id had already been accepted, and tx's body was
// ignored).
type SubmitResult struct {
	State   *txn.State
	Created bool
}

// Submit accepts tx for processing: validate, idempotently create a
// Pending state record, then enqueue exactly one job for it.
//
// Submit is idempotent on tx.ID: resubmitting an id that already has a
// TransactionState is a no-op that returns the existing record,
// exactly like a concurrent double-submit does. This is what makes
// retried client requests safe.
func (s *Service) Submit(ctx context.Context, tx *txn.Transaction) (*SubmitResult, error) {
	if fieldErrs := tx.Validate(); len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	now := s.clock()
	fresh := txn.NewPending(tx.ID, now)
	created, err := s.store.CreateIfAbsent(ctx, fresh, StateTTL)
	if err != nil {
		if errors.Is(err, state.ErrAlreadyExists) {
			return &SubmitResult{State: created, Created: false}, nil
		}
		return nil, fmt.Errorf("submission: state store: %w", err)
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("submission: encode transaction: %w", err)
	}
	msg := message.NewMessage()
	// The job id must equal the transaction id so that queue.Pusher's
	// dedup-by-id logic is in fact deduplicating on the idempotency
	// key. message.Message.Id is a uuid.UUID, so the transaction's
	// opaque string id is mapped into UUID space deterministically:
	// the same tx.ID always yields the same job id, unlike uuid.New's
	// random identifiers.
	msg.Id = jobID(tx.ID)
	msg.Payload = payload

	if err := s.queue.Push(ctx, msg, 0); err != nil {
		// The state record exists but nothing will ever process it.
		// Clean up so a retry by the same client (same id) gets a
		// fresh CreateIfAbsent rather than being wedged behind a
		// permanently Pending orphan.
		_ = s.store.Delete(ctx, tx.ID)
		return nil, fmt.Errorf("submission: enqueue: %w", err)
	}
	return &SubmitResult{State: created, Created: true}, nil
}

// ErrOrphaned is returned by GetStatus when a TransactionState exists
// but has sat in Pending past its expected pickup window, indicating
// the enqueue step of Submit lost its race with a crash (an orphaned
// state record with no corresponding job).
var ErrOrphaned = errors.New("submission: transaction orphaned before enqueue")

// OrphanGrace bounds how long a TransactionState may stay Pending
// before GetStatus reports it as orphaned rather than merely queued.
const OrphanGrace = 30 * time.Second

// GetStatus returns the current TransactionState for id.
//
// If the record has remained Pending for longer than OrphanGrace, the
// call returns the record alongside ErrOrphaned and the caller decides
// how to report it. The gateway does not re-enqueue the record, and a
// Submit under the same id finds the existing record and pushes
// nothing.
func (s *Service) GetStatus(ctx context.Context, id string) (*txn.State, error) {
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status == txn.Pending && s.clock().Sub(st.SubmittedAt) > OrphanGrace {
		return st, ErrOrphaned
	}
	return st, nil
}

// ValidationError reports the field-level issues found by Transaction.Validate.
type ValidationError struct {
	Fields []txn.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("submission: %d validation error(s)", len(e.Fields))
}
