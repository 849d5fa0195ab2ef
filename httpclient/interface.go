package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	couriertrace "github.com/calidris/go-courier/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = couriertrace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = couriertrace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = couriertrace.HeaderTraceState
)

// Client defines the REST client interface for making HTTP requests
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Request represents an HTTP request with all necessary data
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
	Auth    *BasicAuth
}

// Response represents an HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	CallCount   int64
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// RequestAdapter prepares an outbound request before each send attempt.
// Implementations must invoke completion exactly once, either synchronously
// or later from another goroutine; the client blocks the calling request
// (not other requests) until completion fires or its context is done.
type RequestAdapter interface {
	Adapt(ctx context.Context, req *nethttp.Request, completion func(*nethttp.Request, error))
}

// Attempt describes a failed request attempt handed to a RequestRetrier.
type Attempt struct {
	// Request is the request as it was sent, after adaptation.
	Request *nethttp.Request
	// Response is the received response. It is nil when the transport
	// returned an error before a response was produced; its body has
	// already been consumed by the client.
	Response *nethttp.Response
	// Err is the transport error, nil when a response was received.
	Err error
	// Count is the 1-based number of attempts made so far.
	Count int
}

// RetryDecision is the outcome of a RequestRetrier consultation.
type RetryDecision struct {
	// Retry requests the attempt be reissued after Delay.
	Retry bool
	// Delay is an optional wait before the next attempt.
	Delay time.Duration
	// Err, when non-nil, aborts the request with this error.
	Err error
}

// Retry reissues the failed attempt immediately.
func Retry() RetryDecision { return RetryDecision{Retry: true} }

// RetryAfter reissues the failed attempt after the given delay.
func RetryAfter(delay time.Duration) RetryDecision {
	return RetryDecision{Retry: true, Delay: delay}
}

// DoNotRetry leaves the failure to the client's built-in retry policy.
func DoNotRetry() RetryDecision { return RetryDecision{} }

// DoNotRetryWithError aborts the request with err.
func DoNotRetryWithError(err error) RetryDecision { return RetryDecision{Err: err} }

// RequestRetrier decides whether a failed attempt should be reissued.
// The client consults the retrier before applying its built-in
// status-based retry policy. Implementations must invoke completion
// exactly once and are responsible for bounding the retries they request.
type RequestRetrier interface {
	Retry(ctx context.Context, attempt *Attempt, completion func(RetryDecision))
}

// Config holds the REST client configuration
type Config struct {
	Timeout              time.Duration
	MaxRetries           int
	RetryDelay           time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	DefaultHeaders       map[string]string
	// Adapter, when set, prepares every outbound request (e.g. attaches
	// credentials) before interceptors-applied requests are sent.
	Adapter RequestAdapter
	// Retrier, when set, is consulted on transport errors and non-2xx
	// responses before the built-in retry policy.
	Retrier RequestRetrier
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for trace ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new trace ID when none is present (default: uuid)
	NewTraceID func() string
	// TraceIDExtractor allows advanced extraction of a trace ID from context; return ok=false to fallback to generator
	TraceIDExtractor func(_ context.Context) (traceID string, ok bool)
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
}

// Trace ID utility functions

// WithTraceID adds a trace ID to the context for HTTP client propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return couriertrace.WithTraceID(ctx, traceID)
}

// TraceIDFromContext returns a trace ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return couriertrace.IDFromContext(ctx) }

// EnsureTraceID returns an existing trace ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return couriertrace.EnsureTraceID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return couriertrace.WithTraceParent(ctx, traceParent)
}

// TraceParentFromContext returns a traceparent from context if present
func TraceParentFromContext(ctx context.Context) (string, bool) {
	return couriertrace.ParentFromContext(ctx)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return couriertrace.WithTraceState(ctx, traceState)
}

// TraceStateFromContext returns a tracestate from context if present
func TraceStateFromContext(ctx context.Context) (string, bool) {
	return couriertrace.StateFromContext(ctx)
}

// GenerateTraceParent creates a minimal W3C traceparent header value.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2), e.g., "00-<32>-<16>-01"
func GenerateTraceParent() string { return couriertrace.GenerateTraceParent() }

// NewTraceIDInterceptor creates a request interceptor that adds trace ID headers
// This provides an alternative approach for users who want explicit control
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}
