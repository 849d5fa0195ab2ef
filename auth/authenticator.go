package auth

import (
	"context"
	nethttp "net/http"
)

// Credential is opaque authentication material with a staleness check.
// Credentials are values: the Interceptor replaces its credential wholesale
// on refresh and never mutates one in place.
type Credential interface {
	// RequiresRefresh reports whether the credential is expired or close
	// enough to expiring that it should be refreshed before use. It must
	// be cheap and side-effect-free.
	RequiresRefresh() bool
}

// Authenticator implements the credential-type-specific logic the
// Interceptor orchestrates.
//
// Implementations may be called from arbitrary goroutines and must be safe
// for concurrent use. The Interceptor holds no internal locks while calling
// any of these methods.
type Authenticator[C Credential] interface {
	// Apply attaches credential material (e.g. a bearer header) to req.
	// It must be idempotent and must not have side effects beyond
	// mutating req.
	Apply(credential C, req *nethttp.Request)

	// Refresh exchanges credential for a fresh one and invokes completion
	// exactly once with the result, either synchronously before returning
	// or later from any goroutine. The supplied context is detached from
	// any single request's cancellation.
	Refresh(ctx context.Context, credential C, completion func(C, error))

	// DidFailDueToAuthenticationError reports whether the completed
	// request/response pair represents an authentication rejection
	// (e.g. HTTP 401) as opposed to some other failure.
	DidFailDueToAuthenticationError(req *nethttp.Request, resp *nethttp.Response, err error) bool

	// IsAuthenticated reports whether req was stamped with credential.
	// A false result on a failed request means a newer credential was
	// installed after the request was sent, so the failure is stale and
	// the request can simply be reissued.
	IsAuthenticated(req *nethttp.Request, credential C) bool
}
