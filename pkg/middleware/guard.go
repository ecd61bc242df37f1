package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"calendarium/pkg/claims"
	"calendarium/pkg/session"
)

const (
	LandingPath   = "/"
	ProtectedPath = "/dashboard"
)

type Action int

const (
	Pass Action = iota
	RedirectToProtected
	RedirectToLanding
)

func (a Action) String() string {
	switch a {
	case RedirectToProtected:
		return "redirect-to-protected"
	case RedirectToLanding:
		return "redirect-to-landing"
	default:
		return "pass"
	}
}

type TokenValidator interface {
	Validate(token string) (*claims.Claims, error)
}

// Guard decides, before any route handler runs, whether a request to the
// landing page or the protected area is let through or redirected.
type Guard struct {
	Tokens    TokenValidator
	Cookie    session.Policy
	Logger    *slog.Logger
	Landing   string
	Protected []string
	// Home is where a signed-in visitor of the landing page is sent.
	Home string
}

func NewGuard(tokens TokenValidator, cookie session.Policy, logger *slog.Logger) *Guard {
	return &Guard{
		Tokens:    tokens,
		Cookie:    cookie,
		Logger:    logger,
		Landing:   LandingPath,
		Protected: []string{ProtectedPath},
		Home:      ProtectedPath,
	}
}

// Decide is the guard's transition table.
func (g *Guard) Decide(path string, hasValidSession bool) Action {
	switch {
	case path == g.Landing && hasValidSession:
		return RedirectToProtected
	case g.isProtected(path) && !hasValidSession:
		return RedirectToLanding
	default:
		return Pass
	}
}

func (g *Guard) isProtected(path string) bool {
	for _, p := range g.Protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != g.Landing && !g.isProtected(path) {
			next.ServeHTTP(w, r)
			return
		}

		c := g.session(r)

		switch g.Decide(path, c != nil) {
		case RedirectToProtected:
			http.Redirect(w, r, g.Home, http.StatusTemporaryRedirect)
		case RedirectToLanding:
			g.Cookie.Clear(w)
			g.Logger.Debug("guard", "path", path, "action", RedirectToLanding.String())
			http.Redirect(w, r, g.Landing, http.StatusTemporaryRedirect)
		default:
			if c != nil {
				r = r.WithContext(context.WithValue(r.Context(), claims.TokenContextKey, c))
			}
			next.ServeHTTP(w, r)
		}
	})
}

// session treats a missing cookie and an invalid token the same way.
func (g *Guard) session(r *http.Request) *claims.Claims {
	signed, ok := session.TokenFromRequest(r)
	if !ok {
		return nil
	}
	c, err := g.Tokens.Validate(signed)
	if err != nil {
		return nil
	}
	return c
}
