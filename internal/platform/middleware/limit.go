// Copyright (c) 2026 JadeWellness. All rights reserved.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/constants"
	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/respond"
)

// WindowCounter counts hits per key in fixed windows.
//
// Hit returns the number of hits in the current window, including this one,
// and the time until the window resets.
type WindowCounter interface {
	Hit(context context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// # Auth Endpoint Limiter

// AuthLimiter is the stricter fixed-window limiter mounted on credential endpoints.
type AuthLimiter struct {
	counter WindowCounter
	limit   int64
	window  time.Duration
}

// NewAuthLimiter allows limit requests per client IP per window.
func NewAuthLimiter(counter WindowCounter, limit int, window time.Duration) *AuthLimiter {
	return &AuthLimiter{counter: counter, limit: int64(limit), window: window}
}

// Handler rejects requests over budget with 429. A counter failure fails open
// and is logged: an unavailable Redis must not lock every client out.
func (limiter *AuthLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		count, resetIn, err := limiter.counter.Hit(request.Context(), RealIP(request), limiter.window)
		if err != nil {
			ctxutil.GetLogger(request.Context()).Warn("auth_limiter_unavailable", slog.Any("error", err))
			next.ServeHTTP(writer, request)
			return
		}

		if count > limiter.limit {
			writeRetryAfter(writer, resetIn)
			respond.Error(writer, request, apperr.RateLimited(constants.AuthRateLimitMessage))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// # Process-Local Counter

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryWindowCounter is a process-local [WindowCounter].
type MemoryWindowCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryWindowCounter creates an empty counter.
func NewMemoryWindowCounter() *MemoryWindowCounter {
	return &MemoryWindowCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Hit implements [WindowCounter]. Expired windows are dropped lazily.
func (counter *MemoryWindowCounter) Hit(_ context.Context, key string, length time.Duration) (int64, time.Duration, error) {
	counter.mu.Lock()
	defer counter.mu.Unlock()

	now := counter.now()
	current, found := counter.windows[key]
	if !found || !now.Before(current.resetAt) {
		current = &window{resetAt: now.Add(length)}
		counter.windows[key] = current

		// Opportunistic sweep keeps the map bounded by active clients.
		for k, w := range counter.windows {
			if !now.Before(w.resetAt) {
				delete(counter.windows, k)
			}
		}
	}

	current.count++
	return current.count, current.resetAt.Sub(now), nil
}
