package submission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/romanqed/txgate/internal/queue/message"
	"github.com/romanqed/txgate/internal/state"
	sredis "github.com/romanqed/txgate/internal/state/redis"
	"github.com/romanqed/txgate/internal/submission"
	"github.com/romanqed/txgate/internal/txn"
)

type fakePusher struct {
	pushed []*message.Message
	err    error
}

func (p *fakePusher) Push(_ context.Context, msg *message.Message, _ time.Duration) error {
	if p.err != nil {
		return p.err
	}
	p.pushed = append(p.pushed, msg)
	return nil
}

func newStore(t *testing.T) *sredis.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return sredis.New(client)
}

func validTx(id string) *txn.Transaction {
	return &txn.Transaction{
		ID:          id,
		Amount:      10.5,
		Currency:    "USD",
		Description: "widget",
		Timestamp:   time.Now(),
	}
}

func TestSubmitCreatesStateAndEnqueues(t *testing.T) {
	store := newStore(t)
	pusher := &fakePusher{}
	svc := submission.New(store, pusher)

	res, err := svc.Submit(context.Background(), validTx("tx-1"))
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, txn.Pending, res.State.Status)
	require.Len(t, pusher.pushed, 1)

	st, err := store.Get(context.Background(), "tx-1")
	require.NoError(t, err)
	require.Equal(t, txn.Pending, st.Status)
}

func TestSubmitIsIdempotent(t *testing.T) {
	store := newStore(t)
	pusher := &fakePusher{}
	svc := submission.New(store, pusher)

	_, err := svc.Submit(context.Background(), validTx("tx-1"))
	require.NoError(t, err)

	res, err := svc.Submit(context.Background(), validTx("tx-1"))
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Len(t, pusher.pushed, 1, "second submit must not enqueue again")
}

func TestSubmitDerivesJobIDDeterministicallyFromTransactionID(t *testing.T) {
	store := newStore(t)
	pusher := &fakePusher{}
	svc := submission.New(store, pusher)

	_, err := svc.Submit(context.Background(), validTx("tx-dedup"))
	require.NoError(t, err)
	require.Len(t, pusher.pushed, 1)
	first := pusher.pushed[0].Id

	store2 := newStore(t)
	pusher2 := &fakePusher{}
	svc2 := submission.New(store2, pusher2)
	_, err = svc2.Submit(context.Background(), validTx("tx-dedup"))
	require.NoError(t, err)
	require.Equal(t, first, pusher2.pushed[0].Id, "job id must be a deterministic function of the transaction id")
}

func TestSubmitRejectsInvalidTransaction(t *testing.T) {
	store := newStore(t)
	svc := submission.New(store, &fakePusher{})

	_, err := svc.Submit(context.Background(), &txn.Transaction{ID: "tx-1"})
	var verr *submission.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Fields)
}

func TestSubmitRollsBackStateOnEnqueueFailure(t *testing.T) {
	store := newStore(t)
	pusher := &fakePusher{err: errors.New("queue down")}
	svc := submission.New(store, pusher)

	_, err := svc.Submit(context.Background(), validTx("tx-1"))
	require.Error(t, err)

	_, err = store.Get(context.Background(), "tx-1")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestGetStatusReportsOrphan(t *testing.T) {
	store := newStore(t)
	svc := submission.New(store, &fakePusher{})

	old := txn.NewPending("tx-1", time.Now().Add(-time.Hour))
	_, err := store.CreateIfAbsent(context.Background(), old, time.Hour)
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "tx-1")
	require.ErrorIs(t, err, submission.ErrOrphaned)
}
