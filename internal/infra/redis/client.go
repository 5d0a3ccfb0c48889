// internal/infra/redis/client.go
package redisinfra

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const pingAttempts = 5

// Options builds client options from a redis:// URL or a bare host:port.
// A non-empty password overrides the one in the URL.
func Options(addr, password string) *goredis.Options {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		// Not a "redis://..." URL; treat it as a plain Addr.
		opts = &goredis.Options{
			Addr:         strings.TrimSpace(addr),
			MinIdleConns: 1,
			DialTimeout:  10 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}
	if p := strings.TrimSpace(password); p != "" {
		opts.Password = p
	}
	return opts
}

// NewClient connects and pings with exponential backoff.
func NewClient(ctx context.Context, addr, password string, logger *zap.Logger) (*goredis.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := goredis.NewClient(Options(addr, password))

	var lastErr error
	for i := 0; i < pingAttempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			logger.Info("redis connected", zap.Int("attempt", i+1))
			return client, nil
		}

		backoff := time.Duration(250*(1<<uint(i))) * time.Millisecond
		logger.Warn("redis ping failed", zap.Int("attempt", i+1), zap.Duration("backoff", backoff), zap.Error(lastErr))

		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", pingAttempts, lastErr)
}
