// Package redis implements state.Store on top of Redis: a
// key-per-record namespace, JSON values, and native TTLs instead of a
// background reaper.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/romanqed/txgate/internal/state"
	"github.com/romanqed/txgate/internal/txn"
)

const defaultPrefix = "transaction:state:"

// Store implements state.Store using a github.com/redis/go-redis/v9
// client. It is safe for concurrent use; concurrency safety comes from
// Redis's own per-command atomicity plus the SETNX-based create path.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Options configures Store.
type Options struct {
	// Prefix namespaces every key Store touches. Default: "transaction:state:".
	Prefix string
}

// New creates a Redis-backed Store using the provided client.
func New(client redis.UniversalClient, opts ...Options) *Store {
	prefix := defaultPrefix
	if len(opts) > 0 && opts[0].Prefix != "" {
		prefix = opts[0].Prefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Get implements state.Store.
func (s *Store) Get(ctx context.Context, id string) (*txn.State, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, state.ErrNotFound
		}
		return nil, err
	}
	var rec txn.State
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put implements state.Store with last-writer-wins semantics: SET
// unconditionally overwrites whatever was there, refreshing the TTL.
func (s *Store) Put(ctx context.Context, rec *txn.State, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(rec.ID), data, ttl).Err()
}

// CreateIfAbsent implements state.Store using SET ... NX, which Redis
// guarantees is atomic: only the first caller's value is stored, and
// every other concurrent caller observes the failure and can read back
// the winner's record.
func (s *Store) CreateIfAbsent(ctx context.Context, rec *txn.State, ttl time.Duration) (*txn.State, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	ok, err := s.client.SetNX(ctx, s.key(rec.ID), data, ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return rec, nil
	}
	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return existing, state.ErrAlreadyExists
}

// Delete implements state.Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Scan implements state.Store using SCAN with MATCH rather than KEYS,
// so it never blocks the server even over a large keyspace. It is
// bounded by limit and intended for operational inspection only.
func (s *Store) Scan(ctx context.Context, prefix string, limit int) ([]string, error) {
	match := s.prefix + prefix + "*"
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			ids = append(ids, k[len(s.prefix):])
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// Ping implements state.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
