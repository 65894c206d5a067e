package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/romanqed/txgate/internal/state"
	sredis "github.com/romanqed/txgate/internal/state/redis"
	"github.com/romanqed/txgate/internal/txn"
)

func newTestStore(t *testing.T) *sredis.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return sredis.New(client)
}

func TestCreateIfAbsentFirstWriterWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	first := txn.NewPending("t1", now)
	got, err := store.CreateIfAbsent(ctx, first, time.Hour)
	require.NoError(t, err)
	require.Equal(t, txn.Pending, got.Status)

	second := txn.NewPending("t1", now.Add(time.Second))
	second.Status = txn.Processing
	got, err = store.CreateIfAbsent(ctx, second, time.Hour)
	require.ErrorIs(t, err, state.ErrAlreadyExists)
	require.Equal(t, txn.Pending, got.Status, "the first writer's record must win")
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, state.ErrNotFound)
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := txn.NewPending("t2", now)
	_, err := store.CreateIfAbsent(ctx, rec, time.Hour)
	require.NoError(t, err)

	rec.MarkCompleted(now.Add(time.Minute))
	require.NoError(t, store.Put(ctx, rec, time.Hour))

	got, err := store.Get(ctx, "t2")
	require.NoError(t, err)
	require.Equal(t, txn.Completed, got.Status)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Delete(ctx, "never-existed"))
}

func TestScanByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"order-1", "order-2", "refund-1"} {
		_, err := store.CreateIfAbsent(ctx, txn.NewPending(id, now), time.Hour)
		require.NoError(t, err)
	}

	ids, err := store.Scan(ctx, "order-", 0)
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestPingReportsReachability(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
