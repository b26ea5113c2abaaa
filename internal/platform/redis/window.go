// Copyright (c) 2026 JadeWellness. All rights reserved.

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits per key in fixed windows stored in Redis.
//
// The first hit of a window creates the key and sets its expiry; the key's
// remaining TTL is the time until the window resets.
type WindowCounter struct {
	client *redis.Client
	prefix string
}

// NewWindowCounter creates a counter whose keys are namespaced by prefix.
func NewWindowCounter(client *redis.Client, prefix string) *WindowCounter {
	return &WindowCounter{client: client, prefix: prefix}
}

// Hit records one hit for key and returns the count in the current window and
// the time left until it resets.
func (counter *WindowCounter) Hit(context context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	fullKey := counter.prefix + key

	count, err := counter.client.Incr(context, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis_window_incr_failed: %w", err)
	}

	if count == 1 {
		if err := counter.client.PExpire(context, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis_window_expire_failed: %w", err)
		}
		return count, window, nil
	}

	ttl, err := counter.client.PTTL(context, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis_window_ttl_failed: %w", err)
	}

	// A key without expiry means a previous PEXPIRE was lost; start a new window.
	if ttl < 0 {
		if err := counter.client.PExpire(context, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis_window_expire_failed: %w", err)
		}
		ttl = window
	}

	return count, ttl, nil
}
