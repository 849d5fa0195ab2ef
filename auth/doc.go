// Package auth provides credential management for the HTTP client
// pipeline: an Interceptor that attaches credentials to outbound requests,
// decides whether authentication failures should be retried, and
// coordinates credential refreshes across concurrent requests.
//
// The Interceptor guarantees that at most one refresh is in flight at a
// time. Requests arriving while a refresh is pending are queued and
// resolved, in arrival order, once the refresh completes. A RefreshWindow
// bounds how often refreshes may run, so a server that keeps rejecting a
// freshly refreshed credential cannot drive an unbounded refresh loop.
//
// Authenticator implementations own the credential-type-specific logic:
// attaching material to a request, exchanging a stale credential for a
// fresh one, and classifying failures. See the Authenticator contract for
// the threading and exactly-once requirements placed on implementations.
//
// There is no interceptor-level timeout on refresh: an Authenticator whose
// Refresh never completes stalls every queued request indefinitely.
// Implementations should bound their refresh calls (e.g. with
// context.WithTimeout) accordingly.
package auth
