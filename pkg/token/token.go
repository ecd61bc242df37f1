package token

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"calendarium/pkg/claims"
)

const (
	// TTL is the lifetime of every issued session token.
	TTL = 7 * 24 * time.Hour

	MinSecretLen = 32
)

var (
	// ErrInvalid covers malformed, badly signed and expired tokens alike.
	ErrInvalid = errors.New("invalid token")
	ErrSecret  = fmt.Errorf("jwt secret must be set and at least %d characters", MinSecretLen)
)

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) { c.ttl = ttl }
}

// Codec issues and validates HS256 session tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(secret string, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecret
	}

	c := &Codec{
		secret: []byte(secret),
		ttl:    TTL,
		now:    time.Now,
		parser: &jwt.Parser{
			ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
			// exp is checked against the codec clock in Validate
			SkipClaimsValidation: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Codec) Issue(id claims.Identity) (string, error) {
	if c == nil || len(c.secret) < MinSecretLen {
		return "", ErrSecret
	}

	now := c.now().UTC()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims.Claims{
		Email: id.Email,
		Role:  id.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   id.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(c.ttl).Unix(),
		},
	})

	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token signing: %w", err)
	}
	return signed, nil
}

func (c *Codec) Validate(tokenString string) (*claims.Claims, error) {
	if c == nil || len(c.secret) < MinSecretLen {
		return nil, ErrSecret
	}
	if tokenString == "" {
		return nil, ErrInvalid
	}

	var parsed claims.Claims
	tok, err := c.parser.ParseWithClaims(tokenString, &parsed, c.keyFunc)
	if err != nil || tok == nil || !tok.Valid {
		return nil, ErrInvalid
	}

	if parsed.Subject == "" || parsed.ExpiresAt == 0 {
		return nil, ErrInvalid
	}
	if c.now().Unix() > parsed.ExpiresAt {
		return nil, ErrInvalid
	}

	return &parsed, nil
}

func (c *Codec) keyFunc(tok *jwt.Token) (interface{}, error) {
	method, ok := tok.Method.(*jwt.SigningMethodHMAC)
	if !ok || method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
	}
	return c.secret, nil
}
