package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/romanqed/txgate/internal/httpapi/handler"
	"github.com/romanqed/txgate/internal/metrics"
	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/romanqed/txgate/internal/queue/message"
	sredis "github.com/romanqed/txgate/internal/state/redis"
	"github.com/romanqed/txgate/internal/submission"
	"github.com/romanqed/txgate/internal/txn"
)

type fakePusher struct {
	pushed []*message.Message
}

func (p *fakePusher) Push(_ context.Context, msg *message.Message, _ time.Duration) error {
	p.pushed = append(p.pushed, msg)
	return nil
}

// fakeObserver satisfies queue.Observer with an empty queue, enough for
// the health endpoint to report a zeroed-out metrics block.
type fakeObserver struct{}

func (fakeObserver) Get(_ context.Context, _ uuid.UUID) (*job.Job, error) { return nil, nil }
func (fakeObserver) List(_ context.Context, _ job.Status, _ int) ([]*job.Job, error) {
	return nil, nil
}

var _ queue.Observer = fakeObserver{}

func newHandler(t *testing.T) (*handler.Handler, *sredis.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := sredis.New(client)
	svc := submission.New(store, &fakePusher{})
	m := metrics.New(prometheus.NewRegistry())
	return handler.New(svc, store, fakeObserver{}, m), store
}

func newRouter(h *handler.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) { h.Mount(r) })
	return r
}

func validBody(id string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":          id,
		"amount":      10.5,
		"currency":    "USD",
		"description": "widget",
		"timestamp":   time.Now().Format(time.RFC3339),
	})
	return body
}

func TestSubmitReturnsAcceptedForNewTransaction(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-1")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "tx-1", body["id"])
	require.Equal(t, "pending", body["status"])
}

func TestSubmitReplaysNonTerminalDuplicateAs202(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	first := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-2")))
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-2")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "pending", body["status"])
	require.Equal(t, "already queued", body["message"])
}

func TestSubmitReplaysTerminalDuplicateAs200(t *testing.T) {
	h, store := newHandler(t)
	router := newRouter(h)

	first := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-2b")))
	router.ServeHTTP(httptest.NewRecorder(), first)

	now := time.Now()
	st, err := store.Get(context.Background(), "tx-2b")
	require.NoError(t, err)
	st.Status = txn.Completed
	st.CompletedAt = &now
	require.NoError(t, store.Put(context.Background(), st, time.Hour))

	second := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-2b")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "completed", body["status"])
	require.Equal(t, "already processed", body["message"])
}

func TestSubmitRejectsInvalidBody(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	body, _ := json.Marshal(map[string]any{"id": "tx-3"}) // missing required fields
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errBody))
	detail := errBody["error"].(map[string]any)
	require.Equal(t, "VALIDATION_ERROR", detail["code"])
	require.NotEmpty(t, detail["details"])
}

func TestGetStatusReturns404ForUnknownID(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetStatusRoundTripsASubmittedTransaction(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	submitReq := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewReader(validBody("tx-4")))
	router.ServeHTTP(httptest.NewRecorder(), submitReq)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/transactions/tx-4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, statusReq)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "tx-4", body["id"])
}

func TestHealthReportsOKWhenStoreIsReachable(t *testing.T) {
	h, _ := newHandler(t)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	services := body["services"].(map[string]any)
	require.Equal(t, "ok", services["store"])
}
