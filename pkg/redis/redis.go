package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
)

// Client wraps go-redis for the token blacklist and request rate limiting.
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient connects and pings.
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── token blacklist ──

const blacklistPrefix = "kairo:token:blacklist:"

// BlacklistToken stores a jti until the token would have expired anyway.
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted reports whether jti was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── rate limiting ──

// CheckRateLimit is a sliding-window limiter over a sorted set: members older
// than window are trimmed, then the request is admitted if fewer than limit remain.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	min := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", min)
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if count.Val() >= int64(limit) {
		return false, nil
	}

	pipe = c.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
