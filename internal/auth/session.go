// Package auth provides the signed-in identity the journal partitions its
// cache by, and the session lifecycle events other components react to.
//
// Tokens are issued by the remote service. The client does not verify
// signatures; it only reads the subject and expiry so it can key local state
// and attach the token to outgoing calls.
package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Session is a parsed session token.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// Expired reports whether the session has an expiry at or before now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// ParseToken reads the subject and expiry of a JWT session token.
func ParseToken(token string) (Session, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("%w: malformed session token: %v", common.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return Session{}, fmt.Errorf("%w: session token has no subject", common.ErrUnauthorized)
	}

	s := Session{Token: token, UserID: claims.Subject}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}
