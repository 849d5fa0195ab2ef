package oauth2

import (
	"context"
	nethttp "net/http"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/calidris/go-courier/auth"
	"github.com/calidris/go-courier/httpclient"
	"github.com/calidris/go-courier/logger"
)

// DefaultRefreshTimeout bounds a single token-endpoint round trip so a
// hung refresh cannot stall queued requests indefinitely.
const DefaultRefreshTimeout = 30 * time.Second

// Authenticator exchanges stale bearer credentials for fresh ones through
// an OAuth2 token endpoint.
type Authenticator struct {
	config         *xoauth2.Config
	refreshTimeout time.Duration
}

// Compile-time checks that the OAuth2 pieces satisfy the pipeline contracts.
var (
	_ auth.Authenticator[*Credential] = (*Authenticator)(nil)
	_ httpclient.RequestAdapter       = (*auth.Interceptor[*Credential])(nil)
	_ httpclient.RequestRetrier       = (*auth.Interceptor[*Credential])(nil)
)

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithRefreshTimeout overrides the per-refresh timeout.
func WithRefreshTimeout(timeout time.Duration) AuthenticatorOption {
	return func(a *Authenticator) {
		a.refreshTimeout = timeout
	}
}

// NewAuthenticator creates an Authenticator refreshing through the given
// OAuth2 configuration.
func NewAuthenticator(config *xoauth2.Config, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		config:         config,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewInterceptor wires an OAuth2 authenticator into an auth.Interceptor
// seeded with token.
func NewInterceptor(config *xoauth2.Config, token *xoauth2.Token, log logger.Logger, opts ...auth.Option[*Credential]) *auth.Interceptor[*Credential] {
	opts = append([]auth.Option[*Credential]{
		auth.WithCredential(&Credential{Token: token}),
	}, opts...)
	return auth.NewInterceptor(NewAuthenticator(config), log, opts...)
}

// Apply stamps the bearer token onto the request's Authorization header.
func (a *Authenticator) Apply(credential *Credential, req *nethttp.Request) {
	credential.Token.SetAuthHeader(req)
}

// Refresh exchanges the credential's refresh token for a fresh token.
// The exchange runs on its own goroutine and invokes completion exactly
// once.
func (a *Authenticator) Refresh(ctx context.Context, credential *Credential, completion func(*Credential, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, a.refreshTimeout)
		defer cancel()

		// TokenSource only exchanges when the supplied token is invalid;
		// backdating the expiry forces the exchange even for tokens that
		// carry no expiry of their own.
		stale := *credential.Token
		stale.Expiry = time.Now().Add(-time.Minute)

		fresh, err := a.config.TokenSource(ctx, &stale).Token()
		if err != nil {
			completion(nil, err)
			return
		}
		completion(&Credential{Token: fresh, ExpiryMargin: credential.ExpiryMargin}, nil)
	}()
}

// DidFailDueToAuthenticationError classifies HTTP 401 responses as
// authentication rejections.
func (a *Authenticator) DidFailDueToAuthenticationError(_ *nethttp.Request, resp *nethttp.Response, _ error) bool {
	return resp != nil && resp.StatusCode == nethttp.StatusUnauthorized
}

// IsAuthenticated reports whether req carries this credential's bearer
// token.
func (a *Authenticator) IsAuthenticated(req *nethttp.Request, credential *Credential) bool {
	if credential == nil || credential.Token == nil {
		return false
	}
	return req.Header.Get("Authorization") == credential.Token.Type()+" "+credential.Token.AccessToken
}
