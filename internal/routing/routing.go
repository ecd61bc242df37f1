package routing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"calendarium/pkg/claims"
	"calendarium/pkg/handlers"
	"calendarium/pkg/middleware"
	"calendarium/pkg/session"
	"calendarium/pkg/token"
	"calendarium/pkg/user"
)

const (
	landingPage   = "index.html"
	dashboardPage = "dashboard.html"

	shutdownTimeout = 10 * time.Second
)

type Deps struct {
	Users     user.ServiceInterface
	Tokens    *token.Codec
	Cookie    session.Policy
	Logger    *slog.Logger
	StaticDir string
}

// NewRouter wires the auth API and the pages behind the route guard.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, d.Cookie, d.Logger)

	/* auth routers */
	authRouter := r.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost).Name("login")
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost).Name("register")
	authRouter.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost).Name("logout")
	authRouter.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet).Name("me")

	/* pages */
	r.HandleFunc("/", servePage(d.StaticDir, landingPage, d.Logger)).Methods(http.MethodGet).Name("landing")
	r.HandleFunc("/dashboard", servePage(d.StaticDir, dashboardPage, d.Logger)).Methods(http.MethodGet).Name("dashboard")
	r.PathPrefix("/dashboard/").HandlerFunc(servePage(d.StaticDir, dashboardPage, d.Logger)).Methods(http.MethodGet)

	ServeStaticFiles(r, d.StaticDir)
	ServeFallback(r)

	guard := middleware.NewGuard(d.Tokens, d.Cookie, d.Logger)
	return middleware.Panic(d.Logger)(guard.Middleware(r))
}

func ServeStaticFiles(r *mux.Router, staticDir string) {
	fs := http.FileServer(http.Dir(staticDir))
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))
}

func ServeFallback(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))
			return
		}
		http.NotFound(w, r)
	})
}

func servePage(staticDir, page string, logger *slog.Logger) http.HandlerFunc {
	path := filepath.Join(staticDir, "html", page)
	return func(w http.ResponseWriter, r *http.Request) {
		if c, ok := claims.FromContext(r.Context()); ok {
			logger.Debug("page", "page", page, "user", c.UserID())
		}
		http.ServeFile(w, r, path)
	}
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("server is shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
