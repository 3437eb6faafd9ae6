// Package oracle implements the expiration oracle (C3): a short-lived
// Redis key whose presence authorizes a charge to still be paid. Absence of
// the key is the authoritative "not payable" signal; there is no sweeper,
// only lazy evaluation at read/webhook time.
package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "charge:ttl:"

// Oracle is a set-with-TTL / exists / delete primitive keyed by external_id.
type Oracle struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Oracle {
	return &Oracle{rdb: rdb}
}

// Arm sets the TTL key for externalID; the core never re-arms an existing
// key. The caller arms the key right after inserting the charge; the insert
// and the arm are two separate writes, not one atomic step.
func (o *Oracle) Arm(ctx context.Context, externalID string, ttl time.Duration) error {
	if err := o.rdb.Set(ctx, keyPrefix+externalID, "PENDING", ttl).Err(); err != nil {
		return fmt.Errorf("oracle arm: %w", err)
	}
	return nil
}

// IsArmed reports whether the TTL key is still present.
func (o *Oracle) IsArmed(ctx context.Context, externalID string) (bool, error) {
	n, err := o.rdb.Exists(ctx, keyPrefix+externalID).Result()
	if err != nil {
		return false, fmt.Errorf("oracle exists: %w", err)
	}
	return n > 0, nil
}

// Disarm explicitly deletes the TTL key, used on successful payment. It is
// best-effort: callers must commit the charge's PAID status first and
// tolerate a crash between the two (see design notes on commit ordering).
func (o *Oracle) Disarm(ctx context.Context, externalID string) error {
	if err := o.rdb.Del(ctx, keyPrefix+externalID).Err(); err != nil {
		return fmt.Errorf("oracle disarm: %w", err)
	}
	return nil
}
