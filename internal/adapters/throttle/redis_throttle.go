package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle allows at most limit provider requests per fixed window,
// counted in Redis so every process sharing the key prefix shares the budget.
type RedisThrottle struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRedisThrottle(client *redis.Client, prefix string, limit int, window time.Duration) (*RedisThrottle, error) {
	if client == nil {
		return nil, errors.New("redis throttle: client is nil")
	}
	if limit < 1 {
		return nil, fmt.Errorf("redis throttle: limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, errors.New("redis throttle: window must be positive")
	}
	if prefix == "" {
		prefix = "carpool:oracle"
	}

	return &RedisThrottle{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}, nil
}

func (r *RedisThrottle) windowKey(slot int64) string {
	return fmt.Sprintf("%s:window:%d", r.prefix, slot)
}

// Wait takes one slot from the current window, sleeping into later windows
// while the current one is exhausted.
func (r *RedisThrottle) Wait(ctx context.Context) error {
	for {
		now := r.now()
		slot := now.UnixNano() / int64(r.window)
		key := r.windowKey(slot)

		pipe := r.client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, 2*r.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis throttle: incr %s: %w", key, err)
		}

		if incr.Val() <= r.limit {
			return nil
		}

		next := time.Unix(0, (slot+1)*int64(r.window))
		if err := r.sleep(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
