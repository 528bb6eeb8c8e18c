package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/accordly/accordly/internal/clock"
	"github.com/accordly/accordly/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyProviderMinute = "llm:rate:%s:%d"

// ProviderLimiter enforces per-provider requests-per-minute caps with a
// fixed-window redis counter. The window is the wall-clock minute; INCR is
// atomic so concurrent callers cannot both slip under the cap.
type ProviderLimiter struct {
	enabled bool
	client  *redis.Client
	clock   clock.Clock
}

func NewProviderLimiter(cfg config.Config, clk clock.Clock) *ProviderLimiter {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return &ProviderLimiter{enabled: false}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})

	return &ProviderLimiter{
		enabled: true,
		client:  client,
		clock:   clk,
	}
}

func (l *ProviderLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow counts one request against the provider's current minute window.
// A non-positive limit means the provider is uncapped.
func (l *ProviderLimiter) Allow(ctx context.Context, provider string, requestsPerMinute int) (bool, error) {
	if !l.Enabled() || requestsPerMinute <= 0 {
		return true, nil
	}

	bucket := l.clock.Now().Unix() / 60
	key := fmt.Sprintf(keyProviderMinute, strings.TrimSpace(provider), bucket)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, time.Minute).Err(); err != nil {
			return false, err
		}
	}

	return count <= int64(requestsPerMinute), nil
}

// Close releases the redis connection.
func (l *ProviderLimiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
