// Package handler implements the gateway's public HTTP surface: submit
// a transaction and poll its status.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/romanqed/txgate/internal/httpapi/response"
	"github.com/romanqed/txgate/internal/metrics"
	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/romanqed/txgate/internal/state"
	"github.com/romanqed/txgate/internal/submission"
	"github.com/romanqed/txgate/internal/txn"
)

// Handler wires the Submission Service to chi routes.
type Handler struct {
	svc      *submission.Service
	store    state.Store
	observer queue.Observer
	metrics  *metrics.Metrics
}

// New builds a Handler. observer is used only by Health to report
// queue depth by status; it plays no part in the submit/status paths.
func New(svc *submission.Service, store state.Store, observer queue.Observer, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, store: store, observer: observer, metrics: m}
}

// Mount registers the handler's routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/transactions", h.Submit)
	r.Get("/transactions/{id}", h.GetStatus)
	r.Get("/health", h.Health)
}

// transactionResponse is the wire shape for a TransactionState: the
// richer shape with submission/completion timestamps rather than a
// bare status string.
type transactionResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submittedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	RetryCount  int        `json:"retryCount"`
	Error       string     `json:"error,omitempty"`
	Message     string     `json:"message,omitempty"`
}

func toResponse(st *txn.State) transactionResponse {
	return transactionResponse{
		ID:          st.ID,
		Status:      st.Status.String(),
		SubmittedAt: st.SubmittedAt,
		UpdatedAt:   st.UpdatedAt,
		CompletedAt: st.CompletedAt,
		RetryCount:  st.RetryCount,
		Error:       st.Error,
	}
}

// Submit handles POST /transactions.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var tx txn.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		h.metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		response.BadRequest(w, "malformed JSON body")
		return
	}

	res, err := h.svc.Submit(r.Context(), &tx)
	if err != nil {
		var verr *submission.ValidationError
		if errors.As(err, &verr) {
			h.metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			fields := make([]response.FieldIssue, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, response.FieldIssue{Field: f.Path, Issue: f.Message})
			}
			response.ValidationFailed(w, fields)
			return
		}
		h.metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		response.ServiceUnavailable(w, "could not accept transaction right now")
		return
	}

	if res.Created {
		h.metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeAccepted).Inc()
		response.Accepted(w, toResponse(res.State))
		return
	}

	// A duplicate submission replays the existing record rather than
	// re-enqueuing. A terminal record (completed/failed) is reported
	// as already processed; a record still short of terminal is
	// reported as already queued, since a worker may still be holding
	// it.
	h.metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
	body := toResponse(res.State)
	if res.State.Status.Terminal() {
		body.Message = "already processed"
		response.OK(w, body)
		return
	}
	body.Message = "already queued"
	response.Accepted(w, body)
}

// GetStatus handles GET /transactions/{id}.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.svc.GetStatus(r.Context(), id)
	if err != nil && !errors.Is(err, submission.ErrOrphaned) {
		if errors.Is(err, state.ErrNotFound) {
			h.metrics.StatusLookupsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			response.NotFound(w, "transaction")
			return
		}
		h.metrics.StatusLookupsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		response.InternalError(w, r, err)
		return
	}

	body := toResponse(st)
	if errors.Is(err, submission.ErrOrphaned) {
		h.metrics.StatusLookupsTotal.WithLabelValues(metrics.OutcomeOrphaned).Inc()
		body.Error = "no worker has picked up this transaction yet"
		response.OK(w, body)
		return
	}
	h.metrics.StatusLookupsTotal.WithLabelValues(metrics.OutcomeFound).Inc()
	response.OK(w, body)
}

// queueHealth is the health endpoint's view of the work queue:
// aggregate job counts by status.
type queueHealth struct {
	Status  string      `json:"status"`
	Metrics queueCounts `json:"metrics"`
}

type queueCounts struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
	Total     int `json:"total"`
}

// countQueue tallies job counts by status. Pending jobs whose
// NextRunAt is still in the future are reported as delayed rather
// than waiting, mirroring the delayed -> waiting transition the queue
// itself performs once the scheduled time arrives. Each call also
// refreshes the QueueDepth gauge, since a health check is the one
// place the gateway already walks every status bucket.
func (h *Handler) countQueue(ctx context.Context) (queueCounts, error) {
	var counts queueCounts
	now := time.Now()

	pending, err := h.observer.List(ctx, job.Pending, 0)
	if err != nil {
		return counts, err
	}
	for _, j := range pending {
		if j.NextRunAt.After(now) {
			counts.Delayed++
		} else {
			counts.Waiting++
		}
	}

	active, err := h.observer.List(ctx, job.Processing, 0)
	if err != nil {
		return counts, err
	}
	counts.Active = len(active)

	done, err := h.observer.List(ctx, job.Done, 0)
	if err != nil {
		return counts, err
	}
	counts.Completed = len(done)

	dead, err := h.observer.List(ctx, job.Dead, 0)
	if err != nil {
		return counts, err
	}
	counts.Failed = len(dead)

	counts.Total = counts.Waiting + counts.Active + counts.Completed + counts.Failed + counts.Delayed

	h.metrics.QueueDepth.WithLabelValues("waiting").Set(float64(counts.Waiting))
	h.metrics.QueueDepth.WithLabelValues("active").Set(float64(counts.Active))
	h.metrics.QueueDepth.WithLabelValues("completed").Set(float64(counts.Completed))
	h.metrics.QueueDepth.WithLabelValues("failed").Set(float64(counts.Failed))
	h.metrics.QueueDepth.WithLabelValues("delayed").Set(float64(counts.Delayed))

	return counts, nil
}

// healthResponse is the wire shape of GET /api/health.
type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}

// Health handles GET /health and GET /api/health: it reports whether
// the state store is reachable and the current queue depth by status.
// The overall status degrades to 503 only when the state store, the
// source of truth for externally observable status, is unreachable;
// a queue-observer failure is reported inline but does not flip the
// overall verdict, since a submitted transaction's state is still
// readable even if the queue's own accounting is momentarily down.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	storeStatus := "ok"
	if err := h.store.Ping(ctx); err != nil {
		storeStatus = "unreachable"
	}

	queueStatus := "ok"
	counts, err := h.countQueue(ctx)
	if err != nil {
		queueStatus = "unreachable"
	}

	body := healthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Services: map[string]interface{}{
			"store": storeStatus,
			"queue": queueHealth{Status: queueStatus, Metrics: counts},
		},
	}

	if storeStatus != "ok" {
		body.Status = "degraded"
		response.Status(w, http.StatusServiceUnavailable, body)
		return
	}
	response.Status(w, http.StatusOK, body)
}
