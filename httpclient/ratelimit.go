package httpclient

import (
	"context"
	nethttp "net/http"

	"golang.org/x/time/rate"
)

// NewRateLimitInterceptor creates a request interceptor that throttles
// outbound requests to rps requests per second with the given burst.
// The wait honors the request context, so a cancelled or expired request
// stops queueing for a send slot.
func NewRateLimitInterceptor(rps float64, burst int) RequestInterceptor {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(ctx context.Context, _ *nethttp.Request) error {
		return limiter.Wait(ctx)
	}
}

// WithRateLimit throttles all requests issued through the built client.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	return b.WithRequestInterceptor(NewRateLimitInterceptor(rps, burst))
}
