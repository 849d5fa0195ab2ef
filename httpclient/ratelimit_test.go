package httpclient

import (
	"context"
	nethttp "net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimitInterceptor(t *testing.T) {
	t.Run("allows requests within the burst", func(t *testing.T) {
		interceptor := NewRateLimitInterceptor(100, 5)

		req, err := nethttp.NewRequestWithContext(context.Background(), "GET", testExampleURL, nethttp.NoBody)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			assert.NoError(t, interceptor(context.Background(), req))
		}
	})

	t.Run("throttles beyond the burst", func(t *testing.T) {
		interceptor := NewRateLimitInterceptor(20, 1)

		req, err := nethttp.NewRequestWithContext(context.Background(), "GET", testExampleURL, nethttp.NoBody)
		require.NoError(t, err)

		start := time.Now()
		require.NoError(t, interceptor(context.Background(), req))
		require.NoError(t, interceptor(context.Background(), req))

		// The second request needs a ~50ms token at 20 rps.
		assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		interceptor := NewRateLimitInterceptor(0.001, 1)

		req, err := nethttp.NewRequestWithContext(context.Background(), "GET", testExampleURL, nethttp.NoBody)
		require.NoError(t, err)

		// Drain the single available token.
		require.NoError(t, interceptor(context.Background(), req))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.Error(t, interceptor(ctx, req))
	})
}

func TestBuilderWithRateLimit(t *testing.T) {
	var calls atomic.Int32
	transport := roundTripperFunc(func(req *nethttp.Request) (*nethttp.Response, error) {
		calls.Add(1)
		return &nethttp.Response{
			StatusCode: nethttp.StatusOK,
			Body:       nethttp.NoBody,
			Header:     nethttp.Header{},
			Request:    req,
		}, nil
	})

	client := NewBuilder(createTestLogger()).
		WithTransport(transport).
		WithRateLimit(50, 1).
		Build()

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), &Request{URL: testExampleURL})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), calls.Load())
	// Two of the three requests had to wait for a ~20ms token at 50 rps.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
