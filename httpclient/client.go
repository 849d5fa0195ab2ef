package httpclient

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	nethttp "net/http"
	"sync/atomic"
	"time"

	"github.com/calidris/go-courier/logger"
	couriertrace "github.com/calidris/go-courier/trace"
)

const (
	// DefaultTimeout is the default request timeout duration
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries for failed requests
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the default delay between retries
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxPayloadLogBytes caps payload previews in debug logs
	DefaultMaxPayloadLogBytes = 1024
)

// client implements the Client interface
type client struct {
	httpClient           *nethttp.Client
	logger               logger.Logger
	config               *Config
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
	adapter              RequestAdapter
	retrier              RequestRetrier
	callCount            int64
}

// NewClient creates a new REST client with default configuration
func NewClient(log logger.Logger) Client {
	return NewBuilder(log).Build()
}

// Builder provides a fluent interface for configuring the REST client
type Builder struct {
	config     *Config
	logger     logger.Logger
	httpClient *nethttp.Client
	transport  nethttp.RoundTripper
}

// NewBuilder creates a new client builder
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		config: &Config{
			Timeout:              DefaultTimeout,
			MaxRetries:           DefaultMaxRetries,
			RetryDelay:           DefaultRetryDelay,
			RequestInterceptors:  []RequestInterceptor{},
			ResponseInterceptors: []ResponseInterceptor{},
			DefaultHeaders:       make(map[string]string),
			MaxPayloadLogBytes:   DefaultMaxPayloadLogBytes,
		},
		logger: log,
	}
}

// WithTimeout sets the request timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithHTTPClient supplies a custom *http.Client. A zero timeout on the
// supplied client is filled in from the builder's timeout.
func (b *Builder) WithHTTPClient(httpClient *nethttp.Client) *Builder {
	b.httpClient = httpClient
	return b
}

// WithTransport sets the transport on the underlying HTTP client
func (b *Builder) WithTransport(transport nethttp.RoundTripper) *Builder {
	b.transport = transport
	return b
}

// WithRetries sets the retry configuration
func (b *Builder) WithRetries(maxRetries int, retryDelay time.Duration) *Builder {
	b.config.MaxRetries = maxRetries
	b.config.RetryDelay = retryDelay
	return b
}

// WithBasicAuth sets basic authentication credentials
func (b *Builder) WithBasicAuth(username, password string) *Builder {
	b.config.BasicAuth = &BasicAuth{
		Username: username,
		Password: password,
	}
	return b
}

// WithDefaultHeader adds a default header that will be sent with all requests
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor adds a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor adds a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithAdapter sets the request adapter consulted before every send attempt
func (b *Builder) WithAdapter(adapter RequestAdapter) *Builder {
	b.config.Adapter = adapter
	return b
}

// WithRetrier sets the retrier consulted on failed attempts
func (b *Builder) WithRetrier(retrier RequestRetrier) *Builder {
	b.config.Retrier = retrier
	return b
}

// WithInterceptor wires a combined adapter/retrier (e.g. an authentication
// interceptor) into both pipeline hooks.
func (b *Builder) WithInterceptor(interceptor interface {
	RequestAdapter
	RequestRetrier
}) *Builder {
	b.config.Adapter = interceptor
	b.config.Retrier = interceptor
	return b
}

// WithPayloadLogging enables debug-level payload logging, previewing at
// most maxBytes of each body (0 keeps the default of 1024).
func (b *Builder) WithPayloadLogging(maxBytes int) *Builder {
	b.config.LogPayloads = true
	if maxBytes > 0 {
		b.config.MaxPayloadLogBytes = maxBytes
	}
	return b
}

// WithTraceHeader overrides the header used for trace ID propagation
func (b *Builder) WithTraceHeader(header string) *Builder {
	b.config.TraceIDHeader = header
	return b
}

// WithW3CTrace enables W3C traceparent/tracestate propagation
func (b *Builder) WithW3CTrace() *Builder {
	b.config.EnableW3CTrace = true
	return b
}

// WithTraceIDGenerator overrides how trace IDs are generated when neither
// the context nor the extractor yields one. A nil generator is ignored.
func (b *Builder) WithTraceIDGenerator(generator func() string) *Builder {
	if generator != nil {
		b.config.NewTraceID = generator
	}
	return b
}

// WithTraceIDExtractor overrides how trace IDs are pulled from the request
// context. A nil extractor is ignored.
func (b *Builder) WithTraceIDExtractor(extractor func(ctx context.Context) (string, bool)) *Builder {
	if extractor != nil {
		b.config.TraceIDExtractor = extractor
	}
	return b
}

// Build creates the REST client with the configured options
func (b *Builder) Build() Client {
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &nethttp.Client{}
	}
	if httpClient.Timeout == 0 {
		httpClient.Timeout = b.config.Timeout
	}
	if b.transport != nil {
		httpClient.Transport = b.transport
	}

	return &client{
		httpClient:           httpClient,
		logger:               b.logger,
		config:               b.config,
		requestInterceptors:  b.config.RequestInterceptors,
		responseInterceptors: b.config.ResponseInterceptors,
		adapter:              b.config.Adapter,
		retrier:              b.config.Retrier,
	}
}

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do performs an HTTP request with the specified method. Each attempt
// rebuilds and re-adapts the request so retried attempts carry fresh
// credentials and headers.
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	callCount := atomic.AddInt64(&c.callCount, 1)
	traceID := c.traceID(ctx)
	maxRetries := c.config.MaxRetries

	attempts := 0
	policyRetries := 0
	for {
		httpReq, err := c.buildRequest(ctx, method, req, traceID)
		if err != nil {
			return nil, err
		}

		c.logRequest(httpReq, req.Body, traceID)
		attempts++

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			attempt := &Attempt{Request: httpReq, Err: err, Count: attempts}
			if decision, consulted := c.consultRetrier(ctx, attempt); consulted {
				if decision.Err != nil {
					return nil, decision.Err
				}
				if decision.Retry {
					if werr := c.wait(ctx, decision.Delay); werr != nil {
						return nil, werr
					}
					continue
				}
			}
			if c.isTimeout(err) {
				if policyRetries < maxRetries {
					if werr := c.wait(ctx, c.backoffDelay(policyRetries)); werr != nil {
						return nil, werr
					}
					policyRetries++
					continue
				}
				return nil, NewTimeoutError("request timeout", c.config.Timeout)
			}
			if policyRetries < maxRetries {
				if werr := c.wait(ctx, c.backoffDelay(policyRetries)); werr != nil {
					return nil, werr
				}
				policyRetries++
				continue
			}
			return nil, NewNetworkError("request execution failed", err)
		}

		resp, err := c.buildResponse(ctx, start, callCount, httpReq, httpResp)
		if err != nil {
			if policyRetries < maxRetries && IsErrorType(err, NetworkError) {
				if werr := c.wait(ctx, c.backoffDelay(policyRetries)); werr != nil {
					return nil, werr
				}
				policyRetries++
				continue
			}
			return nil, err
		}

		if IsSuccessStatus(resp.StatusCode) {
			c.logResponse(resp, traceID)
			return resp, nil
		}

		attempt := &Attempt{Request: httpReq, Response: httpResp, Count: attempts}
		if decision, consulted := c.consultRetrier(ctx, attempt); consulted {
			if decision.Err != nil {
				c.logResponse(resp, traceID)
				return resp, decision.Err
			}
			if decision.Retry {
				if werr := c.wait(ctx, decision.Delay); werr != nil {
					return nil, werr
				}
				continue
			}
		}

		if c.isRetryableStatus(resp.StatusCode) && policyRetries < maxRetries {
			if werr := c.wait(ctx, c.backoffDelay(policyRetries)); werr != nil {
				return nil, werr
			}
			policyRetries++
			continue
		}

		c.logResponse(resp, traceID)
		return resp, NewHTTPError(
			fmt.Sprintf("HTTP request failed with status %d", resp.StatusCode),
			resp.StatusCode,
			resp.Body,
		)
	}
}

// backoffDelay returns the exponential backoff delay for the given attempt,
// using RetryDelay as the base and capping to a reasonable maximum.
func (c *client) backoffDelay(attempt int) time.Duration {
	base := c.config.RetryDelay
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	// Cap attempt to avoid overflow when computing multiplier
	if attempt > 20 { // 2^20 = 1,048,576
		attempt = 20
	}
	// Exponential backoff: base * 2^attempt
	mult := 1 << attempt
	d := base * time.Duration(mult)
	// Cap to 30 seconds to avoid excessive sleeps
	const maxBackoff = 30 * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}
	// Full jitter: random duration in [0, d)
	if d <= 0 {
		return base
	}
	maxN := big.NewInt(int64(d))
	n, err := crand.Int(crand.Reader, maxN)
	if err != nil {
		// On RNG failure, fall back to the full delay
		return d
	}
	return time.Duration(n.Int64())
}

// wait sleeps for d unless the context is done first.
func (c *client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return NewNetworkError("request aborted while waiting to retry", ctx.Err())
	}
}

// validateRequest validates the request before sending
func (c *client) validateRequest(req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request")
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url")
	}
	return nil
}

// traceID resolves the trace ID for this call: extractor, context, then
// generator fallback.
func (c *client) traceID(ctx context.Context) string {
	if c.config.TraceIDExtractor != nil {
		if id, ok := c.config.TraceIDExtractor(ctx); ok {
			return id
		}
	}
	if id, ok := couriertrace.IDFromContext(ctx); ok {
		return id
	}
	if c.config.NewTraceID != nil {
		return c.config.NewTraceID()
	}
	return couriertrace.EnsureTraceID(ctx)
}

// applyHeaders applies headers to the HTTP request
func (c *client) applyHeaders(httpReq *nethttp.Request, req *Request) {
	// Apply default headers first
	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}

	// Apply request-specific headers (these override defaults)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	// Set Content-Type if not already set and body is present
	if httpReq.Header.Get("Content-Type") == "" && req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
}

// applyAuth applies authentication to the HTTP request
func (c *client) applyAuth(httpReq *nethttp.Request, req *Request) {
	// Request-specific auth takes precedence
	auth := req.Auth
	if auth == nil {
		auth = c.config.BasicAuth
	}

	if auth != nil {
		httpReq.SetBasicAuth(auth.Username, auth.Password)
	}
}

// applyTrace stamps trace propagation headers onto the request.
func (c *client) applyTrace(ctx context.Context, httpReq *nethttp.Request, traceID string) {
	header := c.config.TraceIDHeader
	if header == "" {
		header = HeaderXRequestID
	}
	if httpReq.Header.Get(header) == "" {
		httpReq.Header.Set(header, traceID)
	}

	if !c.config.EnableW3CTrace {
		return
	}
	if httpReq.Header.Get(HeaderTraceParent) == "" {
		if tp, ok := couriertrace.ParentFromContext(ctx); ok {
			httpReq.Header.Set(HeaderTraceParent, tp)
		} else {
			httpReq.Header.Set(HeaderTraceParent, couriertrace.GenerateTraceParent())
		}
	}
	if ts, ok := couriertrace.StateFromContext(ctx); ok && httpReq.Header.Get(HeaderTraceState) == "" {
		httpReq.Header.Set(HeaderTraceState, ts)
	}
}

// buildRequest constructs an *http.Request, applies headers/auth/trace,
// runs request interceptors, and finally the request adapter.
func (c *client) buildRequest(ctx context.Context, method string, req *Request, traceID string) (*nethttp.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, NewNetworkError("failed to create HTTP request", err)
	}

	c.applyHeaders(httpReq, req)
	c.applyAuth(httpReq, req)
	c.applyTrace(ctx, httpReq, traceID)

	if err := c.runRequestInterceptors(ctx, httpReq); err != nil {
		return nil, NewInterceptorError("request interceptor failed", "request", err)
	}

	return c.adapt(ctx, httpReq)
}

// adaptResult carries a RequestAdapter completion back to the Do loop.
type adaptResult struct {
	req *nethttp.Request
	err error
}

// adapt runs the configured RequestAdapter, bridging its completion
// callback back to the synchronous request path. A deferred completion
// blocks only this request's goroutine.
func (c *client) adapt(ctx context.Context, httpReq *nethttp.Request) (*nethttp.Request, error) {
	if c.adapter == nil {
		return httpReq, nil
	}

	done := make(chan adaptResult, 1)
	c.adapter.Adapt(ctx, httpReq, func(adapted *nethttp.Request, err error) {
		done <- adaptResult{req: adapted, err: err}
	})

	select {
	case res := <-done:
		if res.err != nil {
			return nil, NewInterceptorError("request adapter failed", "adapt", res.err)
		}
		return res.req, nil
	case <-ctx.Done():
		// A late completion lands in the buffered channel and is dropped.
		return nil, NewNetworkError("request aborted while awaiting adaptation", ctx.Err())
	}
}

// consultRetrier asks the configured retrier for a decision about a failed
// attempt. The second return value reports whether a retrier was consulted.
func (c *client) consultRetrier(ctx context.Context, attempt *Attempt) (RetryDecision, bool) {
	if c.retrier == nil {
		return RetryDecision{}, false
	}

	done := make(chan RetryDecision, 1)
	c.retrier.Retry(ctx, attempt, func(decision RetryDecision) {
		done <- decision
	})

	select {
	case decision := <-done:
		return decision, true
	case <-ctx.Done():
		return DoNotRetryWithError(NewNetworkError("request aborted while awaiting retry decision", ctx.Err())), true
	}
}

// buildResponse runs response interceptors, reads body, and builds a Response.
func (c *client) buildResponse(ctx context.Context, start time.Time, callCount int64, httpReq *nethttp.Request, httpResp *nethttp.Response) (*Response, error) {
	defer httpResp.Body.Close()

	if err := c.runResponseInterceptors(ctx, httpReq, httpResp); err != nil {
		return nil, NewInterceptorError("response interceptor failed", "response", err)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	elapsed := time.Since(start)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Headers:    httpResp.Header,
		Stats: Stats{
			ElapsedTime: elapsed,
			CallCount:   callCount,
		},
	}, nil
}

func (c *client) isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *client) isRetryableStatus(code int) bool {
	return code >= 500 && code < 600
}

// runRequestInterceptors executes all request interceptors
func (c *client) runRequestInterceptors(ctx context.Context, req *nethttp.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponseInterceptors executes all response interceptors
func (c *client) runResponseInterceptors(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}
