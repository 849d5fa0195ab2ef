// Package httpclient provides a small, composable HTTP client with
// request/response interceptors, default headers, basic auth, trace ID
// propagation, rate limiting, and a retry mechanism with exponential
// backoff and jitter.
//
// Retries
//   - Controlled via Builder.WithRetries(maxRetries, retryDelay).
//   - A configured RequestRetrier is consulted first on every transport
//     error and non-2xx response; it can reissue the attempt, abort with
//     an error, or decline and leave the failure to the built-in policy.
//   - The built-in policy retries on:
//   - Transport errors (network failures)
//   - Timeouts (context deadline exceeded or net.Error timeout)
//   - HTTP 5xx responses
//   - 4xx responses are not retried by the built-in policy.
//
// Backoff Strategy
//   - Exponential backoff based on retryDelay: delay = retryDelay * 2^attempt
//   - Full jitter is applied: actual sleep is random in [0, delay).
//   - Delay is capped at 30 seconds to avoid excessive waits.
//
// Adaptation
//   - A configured RequestAdapter prepares every attempt after interceptors
//     run, so retried attempts carry fresh credentials. Adapter completions
//     may be deferred; only the issuing request blocks while it waits.
//
// Notes
//   - Request bodies are re-sent by rebuilding the http.Request on each attempt.
//   - Interceptor errors are not retried and are surfaced immediately.
//   - Retriers requesting a retry are responsible for bounding how often
//     they do so; the client applies no cap to retrier-driven retries.
package httpclient
