package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCommitInProgress = errors.New("a checkout with this idempotency key is already in progress")

const idemPending = "__pending__"

// IdempotencyStore guards checkout commits against replays. A key is
// claimed before any mutation and bound to the transaction id after a
// successful commit, so re-sending the same checkout returns the
// original transaction instead of decrementing stock again.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates a store over the given Redis client
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func (s *IdempotencyStore) key(k string) string {
	return "checkout:idem:" + k
}

// Claim reserves a key. It returns claimed=true when this caller owns
// the commit, or the previously committed transaction id when the key
// has already completed. A key still mid-commit returns
// ErrCommitInProgress.
func (s *IdempotencyStore) Claim(ctx context.Context, k string) (txID string, claimed bool, err error) {
	ok, err := s.client.SetNX(ctx, s.key(k), idemPending, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, s.key(k)).Result()
	if err != nil {
		if err == redis.Nil {
			// claim expired between SetNX and Get; treat as in progress
			return "", false, ErrCommitInProgress
		}
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == idemPending {
		return "", false, ErrCommitInProgress
	}
	return val, false, nil
}

// Complete binds a claimed key to its committed transaction id
func (s *IdempotencyStore) Complete(ctx context.Context, k, txID string) error {
	if err := s.client.Set(ctx, s.key(k), txID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release frees a claimed key after an aborted commit so the cashier
// can retry
func (s *IdempotencyStore) Release(ctx context.Context, k string) error {
	if err := s.client.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
