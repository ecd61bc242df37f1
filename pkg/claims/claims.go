package claims

import (
	"context"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

type contextKey string

const (
	TokenContextKey contextKey = "token"
)

// Identity is the part of a user that gets copied into a session token.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

func (c *Claims) UserID() string {
	return c.Subject
}

func (c *Claims) IssuedAtTime() time.Time {
	return time.Unix(c.IssuedAt, 0).UTC()
}

func (c *Claims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0).UTC()
}

func (c *Claims) Identity() Identity {
	return Identity{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
}

// FromContext returns the claims the route guard attached to the request context.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(TokenContextKey).(*Claims)
	if !ok || c == nil || c.Subject == "" {
		return nil, false
	}
	return c, true
}
