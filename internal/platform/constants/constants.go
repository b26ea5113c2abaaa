// Copyright (c) 2026 JadeWellness. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire platform.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Global bucket parameters and IP tracking TTLs.
  - Headers: Names read and written by the middleware chain.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "jadewellness"
	AppVersion = "1.0.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// DependencyCheckTimeout bounds each readiness probe.
	DependencyCheckTimeout = 2 * time.Second
)

// # Rate Limiting

const (
	// GeneralRateLimitRequests per GeneralRateLimitWindow is the sustained per-IP rate.
	GeneralRateLimitRequests = 100

	// GeneralRateLimitWindow is the refill period of the general bucket.
	GeneralRateLimitWindow = 15 * time.Minute

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = GeneralRateLimitWindow

	// AuthRateLimitMessage is returned when the auth limiter trips.
	AuthRateLimitMessage = "Too many authentication attempts, please try again later."

	// GeneralRateLimitMessage is returned when the global bucket is empty.
	GeneralRateLimitMessage = "Too many requests from this IP, please try again later."
)

// # Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderAuthorization = "Authorization"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldCode    = "code"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes

const (
	// RedisPrefixAuthLimit namespaces the fixed-window counters of the auth limiter.
	RedisPrefixAuthLimit = "jadewellness:auth_limit:"
)
