// Package protocol implements the GET-before-POST / GET-after-POST-failure
// posting protocol as a queue.MessageHandler. It is the
// piece that turns the non-idempotent downstream posting service into
// an effectively idempotent one from the caller's point of view.
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/romanqed/txgate/internal/metrics"
	"github.com/romanqed/txgate/internal/posting"
	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/message"
	"github.com/romanqed/txgate/internal/state"
	"github.com/romanqed/txgate/internal/txn"
)

// DefaultTTL is the state-record TTL refreshed on every write the
// protocol performs.
const DefaultTTL = 24 * time.Hour

// Handler runs the posting protocol for a single reserved job and
// drives the matching txn.State transitions.
//
// Handler satisfies queue.MessageHandler: Completed marks the job
// Done, Retry reschedules it through the queue's own BackoffConfig,
// and Kill marks it Dead once MAX_RETRIES is exhausted. Handler owns
// that retry budget itself and reports it via Outcome, so the queue
// no longer needs a MaxRetries of its own to stay in step with it.
type Handler struct {
	store       state.Store
	client      posting.Client
	backoffBase time.Duration
	maxRetries  int
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// New builds a Handler.
//
// backoffBase is the base of the exponential verification wait in
// step 4: base · 2^attempt. maxRetries is the domain's
// MAX_RETRIES knob, interpreted as "total attempts including the
// first".
func New(store state.Store, client posting.Client, backoffBase time.Duration, maxRetries int, m *metrics.Metrics, log *slog.Logger) *Handler {
	return &Handler{
		store:       store,
		client:      client,
		backoffBase: backoffBase,
		maxRetries:  maxRetries,
		metrics:     m,
		log:         log,
	}
}

// Handle implements queue.MessageHandler.
func (h *Handler) Handle(ctx context.Context, msg *message.Message, attempt uint32) (queue.Outcome, error) {
	var tx txn.Transaction
	if err := json.Unmarshal(msg.Payload, &tx); err != nil {
		h.log.Error("cannot decode transaction payload", "id", msg.Id, "err", err)
		return queue.Kill, err
	}

	now := time.Now()

	// Step 1: enter processing.
	st, err := h.store.Get(ctx, tx.ID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return queue.Retry, fmt.Errorf("state store unavailable: %w", err)
	}
	if st == nil {
		st = txn.NewPending(tx.ID, now)
	}
	st.MarkProcessing(now, int(attempt), st.Error)
	if err := h.store.Put(ctx, st, DefaultTTL); err != nil {
		return queue.Retry, fmt.Errorf("state store unavailable: %w", err)
	}

	// Step 2: GET-before-POST.
	if err := h.client.Get(ctx, tx.ID); err == nil {
		return h.complete(ctx, st)
	} else if !errors.Is(err, posting.ErrAbsent) {
		return h.retryOrFail(ctx, st, attempt, fmt.Sprintf("GET failed: %v", err))
	}

	// Step 3: POST.
	postErr := h.client.Post(ctx, &tx)
	if postErr == nil {
		return h.complete(ctx, st)
	}

	// Step 4: post-failure verification.
	select {
	case <-time.After(h.verificationDelay(attempt)):
	case <-ctx.Done():
		return queue.Retry, ctx.Err()
	}
	verifyErr := h.client.Get(ctx, tx.ID)
	if verifyErr == nil {
		h.log.Info("post-write failure confirmed by verification GET", "id", tx.ID)
		return h.complete(ctx, st)
	}

	cause := fmt.Sprintf("POST failed: %v", postErr)
	if !errors.Is(verifyErr, posting.ErrAbsent) {
		// Conservative choice: an error on
		// the verification GET itself is treated as pre-write, same as
		// a confirmed absence.
		cause = fmt.Sprintf("POST failed: %v; verification GET failed: %v", postErr, verifyErr)
	}
	return h.retryOrFail(ctx, st, attempt, cause)
}

// verificationDelay implements the post-failure verification wait:
// base · 2^attempt, both damping retry storms and giving the
// downstream time to make a written record visible.
func (h *Handler) verificationDelay(attempt uint32) time.Duration {
	if attempt == 0 {
		return h.backoffBase
	}
	return time.Duration(float64(h.backoffBase) * math.Pow(2, float64(attempt)))
}

func (h *Handler) complete(ctx context.Context, st *txn.State) (queue.Outcome, error) {
	st.MarkCompleted(time.Now())
	if err := h.store.Put(ctx, st, DefaultTTL); err != nil {
		h.log.Error("cannot persist completed state", "id", st.ID, "err", err)
	}
	h.metrics.PostingAttemptsTotal.WithLabelValues(metrics.ResultCompleted).Inc()
	return queue.Completed, nil
}

// retryOrFail implements step 5: retry while budget remains, otherwise
// record a terminal failure. attempt is 1-indexed (the count of
// attempts made so far, including the one that just failed).
func (h *Handler) retryOrFail(ctx context.Context, st *txn.State, attempt uint32, cause string) (queue.Outcome, error) {
	if int(attempt) < h.maxRetries {
		st.MarkProcessing(time.Now(), int(attempt), cause)
		if err := h.store.Put(ctx, st, DefaultTTL); err != nil {
			h.log.Error("cannot persist retry state", "id", st.ID, "err", err)
		}
		h.metrics.PostingAttemptsTotal.WithLabelValues(metrics.ResultRetried).Inc()
		return queue.Retry, errors.New(cause)
	}
	st.MarkFailed(time.Now(), fmt.Sprintf("max retries exceeded: %s", cause))
	if err := h.store.Put(ctx, st, DefaultTTL); err != nil {
		h.log.Error("cannot persist failed state", "id", st.ID, "err", err)
	}
	h.metrics.PostingAttemptsTotal.WithLabelValues(metrics.ResultFailed).Inc()
	return queue.Kill, errors.New(cause)
}
