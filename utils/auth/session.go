package auth

import (
	"time"

	"github.com/sahilchouksey/learnhub-api/model"
)

// Session is the authenticated caller of a request. It is built from
// validated claims by the auth middleware and passed explicitly to services.
type Session struct {
	UserID    uint
	Email     string
	Role      model.Role
	Admin     bool
	TokenID   string
	ExpiresAt time.Time
}

// NewSession builds a session from validated access token claims
func NewSession(claims *Claims) *Session {
	s := &Session{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		Admin:   claims.Admin,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}
