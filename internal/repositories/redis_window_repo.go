package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const rateLimitKeyPrefix = "adminguard:ratelimit:"

// RedisWindowRepository stores fixed-window call counters in Redis. Keys expire
// one window length after the window starts, so closed windows disappear
// without a sweeper.
type RedisWindowRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient opens and pings a Redis connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// NewRedisWindowRepository creates a new RedisWindowRepository
func NewRedisWindowRepository(client *redis.Client, logger *slog.Logger) *RedisWindowRepository {
	return &RedisWindowRepository{client: client, logger: logger}
}

func windowKey(apiCallName string, windowStart time.Time) string {
	return rateLimitKeyPrefix + apiCallName + ":" + strconv.FormatInt(windowStart.UnixMilli(), 10)
}

// IncrementIfBelow reads the window counter and increments it when it is below
// maxCalls. Read and increment are separate round trips, so concurrent callers
// may overshoot maxCalls slightly.
func (r *RedisWindowRepository) IncrementIfBelow(ctx context.Context, apiCallName string, windowStart time.Time, maxCalls int, ttl time.Duration) (int, bool, error) {
	key := windowKey(apiCallName, windowStart)

	current, err := r.client.Get(ctx, key).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, false, fmt.Errorf("failed to read rate limit window: %w", err)
	}
	if current >= maxCalls {
		r.logger.Debug("rate limit window full",
			slog.String("api_call", apiCallName),
			slog.Int("count", current))
		return current, false, nil
	}

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.PExpireAt(ctx, key, windowStart.Add(ttl))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, false, fmt.Errorf("failed to increment rate limit window: %w", err)
	}

	return int(incr.Val()), true, nil
}

// GetCount returns the current count for a window, zero if none exists
func (r *RedisWindowRepository) GetCount(ctx context.Context, apiCallName string, windowStart time.Time) (int, error) {
	count, err := r.client.Get(ctx, windowKey(apiCallName, windowStart)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

// DeleteExpired is a no-op: Redis expires window keys itself
func (r *RedisWindowRepository) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// HealthCheck pings Redis
func (r *RedisWindowRepository) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
