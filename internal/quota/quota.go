// Package quota tracks how many reports a caller may still generate.
package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sqlpanel:quota:"

// Decision is the outcome of a quota check.
type Decision struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
}

// Checker is consulted before a report is generated and told afterwards.
type Checker interface {
	CheckQuota(ctx context.Context, userID string) (Decision, error)
	IncrementUsage(ctx context.Context, userID string) error
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) CheckQuota(context.Context, string) (Decision, error) {
	return Decision{Available: true}, nil
}

func (Unlimited) IncrementUsage(context.Context, string) error {
	return nil
}

// RedisChecker keeps a per-user, per-day counter in Redis.
type RedisChecker struct {
	client redis.UniversalClient
	limit  int64
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisChecker limits each user to dailyLimit reports per UTC day. A
// non-positive limit disables the check.
func NewRedisChecker(client redis.UniversalClient, dailyLimit int64) *RedisChecker {
	return &RedisChecker{
		client: client,
		limit:  dailyLimit,
		ttl:    48 * time.Hour,
		now:    time.Now,
	}
}

func (r *RedisChecker) key(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return keyPrefix + userID + ":" + r.now().UTC().Format("20060102")
}

func (r *RedisChecker) CheckQuota(ctx context.Context, userID string) (Decision, error) {
	if r.limit <= 0 {
		return Decision{Available: true}, nil
	}

	used, err := r.client.Get(ctx, r.key(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("failed to read quota usage: %w", err)
	}

	d := Decision{Available: used < r.limit, Used: used, Limit: r.limit}
	if !d.Available {
		d.Reason = "daily report quota of " + strconv.FormatInt(r.limit, 10) + " exhausted"
	}
	return d, nil
}

func (r *RedisChecker) IncrementUsage(ctx context.Context, userID string) error {
	key := r.key(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}
	return nil
}
