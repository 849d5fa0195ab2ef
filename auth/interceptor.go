package auth

import (
	"context"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/calidris/go-courier/httpclient"
	"github.com/calidris/go-courier/logger"
)

// pendingAdapt is an adapt operation parked while a refresh is in flight.
// Entries live for at most one refresh cycle.
type pendingAdapt struct {
	ctx        context.Context
	req        *nethttp.Request
	completion func(*nethttp.Request, error)
}

// interceptorState is the interceptor's mutable core. Every field is read
// and written only while Interceptor.mu is held. isRefreshing is true
// exactly while a Refresh call has been issued to the Authenticator and
// its completion has not yet run; the pending queues are non-empty only
// during that window (plus the instant between completion and drain).
type interceptorState[C Credential] struct {
	credential        C
	hasCredential     bool
	isRefreshing      bool
	refreshTimestamps []time.Time
	pendingAdapts     []pendingAdapt
	pendingRetries    []func(httpclient.RetryDecision)
}

// Interceptor attaches credentials to outbound requests and coordinates
// credential refreshes across concurrent requests. It implements the
// httpclient RequestAdapter and RequestRetrier contracts.
//
// At most one refresh runs at a time. Adapt and retry operations arriving
// during a refresh are queued and resolved in arrival order (within each
// category) once the refresh completes. Construct one interceptor per
// credential scope and share it across the request pipelines that need it.
type Interceptor[C Credential] struct {
	authenticator Authenticator[C]
	window        *RefreshWindow
	log           logger.Logger
	now           func() time.Time

	mu sync.Mutex
	st interceptorState[C]
}

// Option configures an Interceptor.
type Option[C Credential] func(*Interceptor[C])

// WithCredential sets the initial credential.
func WithCredential[C Credential](credential C) Option[C] {
	return func(it *Interceptor[C]) {
		it.st.credential = credential
		it.st.hasCredential = true
	}
}

// WithRefreshWindow bounds how often the credential may be refreshed.
// Without a window, refreshes are never considered excessive.
func WithRefreshWindow[C Credential](window RefreshWindow) Option[C] {
	return func(it *Interceptor[C]) {
		it.window = &window
	}
}

// NewInterceptor creates an interceptor orchestrating the given
// authenticator.
func NewInterceptor[C Credential](authenticator Authenticator[C], log logger.Logger, opts ...Option[C]) *Interceptor[C] {
	it := &Interceptor[C]{
		authenticator: authenticator,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Credential returns the current credential, if one is set.
func (it *Interceptor[C]) Credential() (C, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.st.credential, it.st.hasCredential
}

// SetCredential replaces the current credential.
func (it *Interceptor[C]) SetCredential(credential C) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.st.credential = credential
	it.st.hasCredential = true
}

// ClearCredential removes the current credential. Subsequent adapt calls
// fail with ErrMissingCredential until a new one is set.
func (it *Interceptor[C]) ClearCredential() {
	it.mu.Lock()
	defer it.mu.Unlock()
	var zero C
	it.st.credential = zero
	it.st.hasCredential = false
}

// Adapt attaches a valid credential to req and completes with the adapted
// request. When the credential needs refreshing (or a refresh is already
// in flight) the completion is deferred until the refresh resolves.
func (it *Interceptor[C]) Adapt(ctx context.Context, req *nethttp.Request, completion func(*nethttp.Request, error)) {
	it.mu.Lock()

	if it.st.isRefreshing {
		it.st.pendingAdapts = append(it.st.pendingAdapts, pendingAdapt{ctx: ctx, req: req, completion: completion})
		it.mu.Unlock()
		return
	}

	if !it.st.hasCredential {
		it.mu.Unlock()
		completion(nil, ErrMissingCredential)
		return
	}

	credential := it.st.credential
	if credential.RequiresRefresh() {
		it.st.pendingAdapts = append(it.st.pendingAdapts, pendingAdapt{ctx: ctx, req: req, completion: completion})
		it.refreshLocked(ctx, credential)
		return
	}

	it.mu.Unlock()
	it.authenticator.Apply(credential, req)
	completion(req, nil)
}

// Retry decides whether a failed request should be reissued. Auth failures
// caused by the current credential trigger a refresh; the completion is
// deferred until that refresh resolves. Failures the authenticator does
// not classify as authentication errors are declined so other retry
// policy can handle them.
func (it *Interceptor[C]) Retry(ctx context.Context, attempt *httpclient.Attempt, completion func(httpclient.RetryDecision)) {
	// Without a sent request and a received response there is no way to
	// classify the failure.
	if attempt == nil || attempt.Request == nil || attempt.Response == nil {
		completion(httpclient.DoNotRetry())
		return
	}

	if !it.authenticator.DidFailDueToAuthenticationError(attempt.Request, attempt.Response, attempt.Err) {
		completion(httpclient.DoNotRetry())
		return
	}

	it.mu.Lock()
	if !it.st.hasCredential {
		it.mu.Unlock()
		completion(httpclient.DoNotRetryWithError(ErrMissingCredential))
		return
	}
	credential := it.st.credential
	it.mu.Unlock()

	if !it.authenticator.IsAuthenticated(attempt.Request, credential) {
		// A newer credential was installed while this request was in
		// flight; the failure is stale, reissue without refreshing.
		completion(httpclient.Retry())
		return
	}

	it.mu.Lock()
	it.st.pendingRetries = append(it.st.pendingRetries, completion)
	if it.st.isRefreshing {
		it.mu.Unlock()
		return
	}
	// Re-read under the lock: a refresh may have finished since the
	// staleness check and installed a newer credential.
	it.refreshLocked(ctx, it.st.credential)
}

// refreshLocked starts a credential refresh. The caller must hold mu;
// refreshLocked releases it before calling the Authenticator, so a
// completion fired synchronously on the same stack re-acquires the lock
// without deadlocking.
func (it *Interceptor[C]) refreshLocked(ctx context.Context, credential C) {
	now := it.now()
	if it.window != nil && !it.window.allows(it.st.refreshTimestamps, now) {
		adapts, retries := it.takeQueuesLocked()
		it.mu.Unlock()
		it.log.Warn().
			Dur("window", it.window.Interval).
			Int("max_attempts", it.window.MaximumAttempts).
			Msg("credential refresh suppressed: window exhausted")
		go it.failPending(adapts, retries, ErrExcessiveRefresh)
		return
	}

	it.st.refreshTimestamps = append(it.st.refreshTimestamps, now)
	it.st.isRefreshing = true
	it.mu.Unlock()

	it.log.Debug().Msg("credential refresh started")

	// The refresh outlives the request that triggered it: other queued
	// requests depend on its result, so a single caller's cancellation
	// must not abort it.
	refreshCtx := context.WithoutCancel(ctx)
	it.authenticator.Refresh(refreshCtx, credential, func(fresh C, err error) {
		if err != nil {
			it.refreshDidFail(err)
			return
		}
		it.refreshDidSucceed(fresh)
	})
}

// refreshDidSucceed installs the fresh credential and resolves every
// queued operation. Queued adapts are re-run and now see the fresh
// credential; queued retries are told to reissue their requests.
func (it *Interceptor[C]) refreshDidSucceed(credential C) {
	it.mu.Lock()
	it.st.credential = credential
	it.st.hasCredential = true
	adapts, retries := it.takeQueuesLocked()
	it.st.isRefreshing = false
	it.mu.Unlock()

	it.log.Debug().
		Int("queued_adapts", len(adapts)).
		Int("queued_retries", len(retries)).
		Msg("credential refreshed")

	// Drain on a fresh goroutine so queued work never runs on the
	// authenticator's callback stack or under the state lock.
	go func() {
		for _, op := range adapts {
			it.Adapt(op.ctx, op.req, op.completion)
		}
		for _, retry := range retries {
			retry(httpclient.Retry())
		}
	}()
}

// refreshDidFail broadcasts the refresh failure to every queued operation.
func (it *Interceptor[C]) refreshDidFail(cause error) {
	it.mu.Lock()
	adapts, retries := it.takeQueuesLocked()
	it.st.isRefreshing = false
	it.mu.Unlock()

	it.log.Warn().
		Err(cause).
		Int("queued_adapts", len(adapts)).
		Int("queued_retries", len(retries)).
		Msg("credential refresh failed")

	go it.failPending(adapts, retries, cause)
}

// takeQueuesLocked snapshots and clears both pending queues. Must be
// called with mu held.
func (it *Interceptor[C]) takeQueuesLocked() ([]pendingAdapt, []func(httpclient.RetryDecision)) {
	adapts := it.st.pendingAdapts
	retries := it.st.pendingRetries
	it.st.pendingAdapts = nil
	it.st.pendingRetries = nil
	return adapts, retries
}

// failPending completes queued operations with the refresh failure cause,
// wrapped to distinguish the adapt path from the retry path.
func (it *Interceptor[C]) failPending(adapts []pendingAdapt, retries []func(httpclient.RetryDecision), cause error) {
	for _, op := range adapts {
		op.completion(nil, &AdaptError{Err: cause})
	}
	for _, retry := range retries {
		retry(httpclient.DoNotRetryWithError(&RetryError{Err: cause}))
	}
}
