// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package middleware provides the cross-cutting HTTP processing chain.

Standard Stack:

  - Trace: RequestID generation for log correlation.
  - Log: one structured line per request, enriched by the guard with user_id and role.
  - Guard: per-IP rate limiting, the auth endpoint limiter, CORS and bearer-token guards.
  - Safe: panic recovery.

Every rejection is rendered through [respond.Error] so clients see one error envelope.
*/
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jadewellness/backend/internal/platform/apperr"
	"github.com/jadewellness/backend/internal/platform/constants"
	"github.com/jadewellness/backend/internal/platform/ctxutil"
	"github.com/jadewellness/backend/internal/platform/respond"
	"github.com/jadewellness/backend/pkg/uuid"
)

// maxRequestIDLength bounds client-supplied correlation IDs before they reach the logs.
const maxRequestIDLength = 128

// # Request Tracing

// RequestID attaches a correlation ID to every request.
//
// A client-supplied X-Request-ID is kept when it is short enough; otherwise a
// UUIDv7 is generated. The ID is echoed in the response header.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.New()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithRequestID(request.Context(), requestID)))
		})
	}
}

// # Activity Logging

// statusRecorder captures the response status and the logger a guard enriched.
type statusRecorder struct {
	http.ResponseWriter
	status         int
	enrichedLogger *slog.Logger
}

// loggerSink is implemented by writers that accept an enriched request logger.
type loggerSink interface {
	setLogger(logger *slog.Logger)
}

func (recorder *statusRecorder) setLogger(logger *slog.Logger) {
	recorder.enrichedLogger = logger
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// StructuredLogger injects a request-scoped logger into the context and writes
// one "http_request_finished" line per request.
//
// 5xx responses log at Error, 4xx at Warn, everything else at Info. When a
// guard authenticated the request, the line carries user_id and role.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			started := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("ip", RealIP(request)),
			)

			ctx := ctxutil.WithLogger(request.Context(), requestLogger)
			recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
			next.ServeHTTP(recorder, request.WithContext(ctx))

			level := slog.LevelInfo
			switch {
			case recorder.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case recorder.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			final := requestLogger
			if recorder.enrichedLogger != nil {
				final = recorder.enrichedLogger
			}

			final.Log(ctx, level, "http_request_finished",
				slog.Int("status", recorder.status),
				slog.Int64("latency_ms", time.Since(started).Milliseconds()),
				slog.String("user_agent", request.UserAgent()),
			)
		})
	}
}

// # Rate Limiting

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is the global per-IP token bucket.
//
// The bucket holds [constants.GeneralRateLimitRequests] tokens and refills
// completely over [constants.GeneralRateLimitWindow].
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitClient
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter and starts its janitor, which stops with ctx.
func NewRateLimiter(context context.Context) *RateLimiter {
	limiter := &RateLimiter{
		clients: make(map[string]*rateLimitClient),
		limit:   rate.Every(constants.GeneralRateLimitWindow / constants.GeneralRateLimitRequests),
		burst:   constants.GeneralRateLimitRequests,
	}

	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now)
			case <-context.Done():
				return
			}
		}
	}()

	return limiter
}

// sweep drops clients idle longer than [constants.RateLimitClientTTL].
func (limiter *RateLimiter) sweep(now time.Time) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	for ip, client := range limiter.clients {
		if now.Sub(client.lastSeen) > constants.RateLimitClientTTL {
			delete(limiter.clients, ip)
		}
	}
}

// reserve takes one token from ip's bucket. It returns 0 when the request may
// proceed, or how long until a token is available.
func (limiter *RateLimiter) reserve(ip string, now time.Time) time.Duration {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	client, found := limiter.clients[ip]
	if !found {
		client = &rateLimitClient{limiter: rate.NewLimiter(limiter.limit, limiter.burst)}
		limiter.clients[ip] = client
	}
	client.lastSeen = now

	if client.limiter.AllowN(now, 1) {
		return 0
	}
	return max(time.Duration(float64(time.Second)/float64(limiter.limit)), time.Second)
}

// Handler answers 429 once the client's bucket is empty.
func (limiter *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if wait := limiter.reserve(RealIP(request), time.Now()); wait > 0 {
			writeRetryAfter(writer, wait)
			respond.Error(writer, request, apperr.RateLimited(constants.GeneralRateLimitMessage))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// # Reliability & Safety

// PanicRecovery turns a handler panic into a logged 500.
//
// [http.ErrAbortHandler] is re-raised so net/http can abort the connection.
func PanicRecovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(recovered)
				}

				ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
					slog.Any("panic", recovered),
					slog.String("stack", string(debug.Stack())),
				)
				respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
			}()

			next.ServeHTTP(writer, request)
		})
	}
}

// # Cross-Origin Resource Sharing

// AppConfig defines the behavior needed by the CORS middleware.
type AppConfig interface {
	IsDevelopment() bool
	AllowedOrigin() string
}

const (
	corsAllowMethods  = "GET, POST, PUT, DELETE, OPTIONS"
	corsAllowHeaders  = "Accept, Content-Type, Authorization, X-Request-ID"
	corsExposeHeaders = "X-Request-ID, Retry-After"
	corsMaxAgeSeconds = "300"
)

// CORS answers the SPA origin, or any origin in development.
//
// Pre-flight OPTIONS requests are terminated with 204 whether or not the
// origin is allowed; a refused origin simply receives no CORS headers.
func CORS(cfg AppConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			origin := request.Header.Get(constants.HeaderOrigin)
			if origin == "" {
				next.ServeHTTP(writer, request)
				return
			}

			header := writer.Header()
			header.Add("Vary", constants.HeaderOrigin)

			if cfg.IsDevelopment() || origin == cfg.AllowedOrigin() {
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", corsAllowMethods)
				header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				header.Set("Access-Control-Allow-Credentials", "true")
				header.Set("Access-Control-Max-Age", corsMaxAgeSeconds)
			}

			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Middleware Helpers

// RealIP returns the client address: X-Real-IP, then the first X-Forwarded-For
// hop, then the socket peer.
func RealIP(request *http.Request) string {
	if ip := strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)); ip != "" {
		return ip
	}

	if forwarded := request.Header.Get(constants.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// writeRetryAfter sets the Retry-After header in whole seconds, rounding up.
func writeRetryAfter(writer http.ResponseWriter, wait time.Duration) {
	seconds := max(int((wait+time.Second-1)/time.Second), 1)
	writer.Header().Set(constants.HeaderRetryAfter, strconv.Itoa(seconds))
}
