package session

import (
	"net/http"
	"time"

	"calendarium/pkg/token"
)

const (
	CookieName = "calendarium_session"
	CookiePath = "/"

	// MaxAge mirrors token.TTL so the cookie never outlives the token it carries.
	MaxAge = int(token.TTL / time.Second)
)

// Policy is the attribute set under which the session token travels.
type Policy struct {
	Name     string
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// Options returns the cookie attributes for the deployment. Secure is only set
// in production so the cookie still works over plain http in development.
func Options(production bool) Policy {
	return Policy{
		Name:     CookieName,
		Path:     CookiePath,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   MaxAge,
	}
}

func (s Policy) Cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     s.Path,
		MaxAge:   s.MaxAge,
		HttpOnly: s.HttpOnly,
		Secure:   s.Secure,
		SameSite: s.SameSite,
	}
}

func (s Policy) Set(w http.ResponseWriter, signed string) {
	http.SetCookie(w, s.Cookie(signed))
}

// Clear overwrites the session cookie with an empty value and Max-Age=0.
func (s Policy) Clear(w http.ResponseWriter) {
	c := s.Cookie("")
	// net/http renders a negative MaxAge as "Max-Age=0"; zero would omit it
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func TokenFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
