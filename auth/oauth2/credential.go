// Package oauth2 provides an Authenticator backed by an OAuth2 token
// endpoint, for use with the auth.Interceptor.
package oauth2

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	xoauth2 "golang.org/x/oauth2"
)

// DefaultExpiryMargin is how long before expiry a token is treated as
// stale when no margin is configured.
const DefaultExpiryMargin = 30 * time.Second

// Credential wraps an OAuth2 token. Credentials are immutable: a refresh
// produces a new Credential rather than mutating this one.
type Credential struct {
	Token *xoauth2.Token
	// ExpiryMargin is how long before expiry the token counts as stale
	// (DefaultExpiryMargin when zero).
	ExpiryMargin time.Duration
}

// RequiresRefresh reports whether the token is missing, expired, or
// within the expiry margin. Opaque tokens without any expiry information
// are never considered stale; the server's 401 drives their refresh.
func (c *Credential) RequiresRefresh() bool {
	if c == nil || c.Token == nil || c.Token.AccessToken == "" {
		return true
	}

	expiry := c.Token.Expiry
	if expiry.IsZero() {
		expiry = jwtExpiry(c.Token.AccessToken)
		if expiry.IsZero() {
			return false
		}
	}

	margin := c.ExpiryMargin
	if margin <= 0 {
		margin = DefaultExpiryMargin
	}
	return time.Until(expiry) <= margin
}

// jwtExpiry extracts the exp claim from a JWT access token. The signature
// is deliberately not verified: the resource server validates the token,
// the client only needs the timestamp to schedule refreshes.
func jwtExpiry(accessToken string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
