package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles outbound requests using a token bucket.
//
// The weather client holds one RateLimiter and calls Wait before every
// upstream lookup, so a burst of opens (for example `cat */*.txt`) does not
// exceed the upstream API's quota.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter   *rate.Limiter
	unlimited bool
}

// New creates a RateLimiter allowing requestsPerSecond sustained requests
// with bursts of up to burst requests.
//
// requestsPerSecond = 0 disables limiting. A zero burst with a non-zero rate
// is raised to 1, otherwise no request could ever be admitted.
func New(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		return &RateLimiter{
			limiter:   rate.NewLimiter(rate.Inf, 0),
			unlimited: true,
		}
	}

	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow reports whether a request may proceed right now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Unlimited reports whether the limiter admits every request.
func (r *RateLimiter) Unlimited() bool {
	return r.unlimited
}

// Tokens returns the number of currently available tokens.
// Only meaningful for limited instances.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
