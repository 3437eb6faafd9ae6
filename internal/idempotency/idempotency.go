// Package idempotency implements the at-most-once side-effect gate (C2):
// a thin get/set-with-TTL primitive over Redis, keyed by the client-supplied
// Idempotency-Key header. The state machine (C5) remains the ultimate guard
// against two concurrent FreshStart observations for the same key.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idempotency:"

// Store gates side effects behind a client-supplied idempotency key.
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client. The Receiver and the expiration
// oracle (C3) may share one *redis.Client; the key prefixes never collide.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// TryBegin reports freshStart=true when no response has been committed under
// key; otherwise cached holds the response body recorded by Commit. It is a
// plain read and reserves nothing, so two concurrent first requests can both
// see freshStart=true.
func (s *Store) TryBegin(ctx context.Context, key string) (freshStart bool, cached []byte, err error) {
	val, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return true, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("idempotency get: %w", err)
	}
	return false, val, nil
}

// Commit stores response under key for ttl. Subsequent TryBegin calls for
// the same key replay it until ttl elapses.
func (s *Store) Commit(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, response, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency set: %w", err)
	}
	return nil
}
