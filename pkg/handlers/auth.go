package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"calendarium/pkg/claims"
	"calendarium/pkg/session"
	"calendarium/pkg/user"
	"calendarium/pkg/validation"
)

const landingPath = "/"

type TokenCodec interface {
	Issue(id claims.Identity) (string, error)
	Validate(token string) (*claims.Claims, error)
}

type AuthHandler struct {
	Service   user.ServiceInterface
	Validator *validation.Validator
	Tokens    TokenCodec
	Cookie    session.Policy
	Logger    *slog.Logger
}

func NewAuthHandler(service user.ServiceInterface, tokens TokenCodec, cookie session.Policy, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		Service:   service,
		Validator: validation.New(),
		Tokens:    tokens,
		Cookie:    cookie,
		Logger:    logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req validation.LoginInput
	if ok := DecodeJSONBody(w, r, h.Logger, &req); !ok {
		return
	}

	in, err := h.Validator.Login(req)
	if err != nil {
		h.writeValidation(w, "login", err)
		return
	}

	u, err := h.Service.Login(r.Context(), in.Email, in.Password)
	if errors.Is(err, user.ErrInvalidCredentials) {
		h.Logger.Info("login", "result", "rejected")
		writeError(w, h.Logger, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		h.internal(w, "login", err)
		return
	}

	signed, err := h.Tokens.Issue(u.Identity())
	if err != nil {
		h.internal(w, "token signing", err)
		return
	}

	h.Cookie.Set(w, signed)
	if ok := writeJSON(w, h.Logger, http.StatusOK, u.Public()); ok {
		h.Logger.Info("login", "user", u.ID)
	}
}

// Register creates the account only; the client logs in afterwards.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req validation.RegisterInput
	if ok := DecodeJSONBody(w, r, h.Logger, &req); !ok {
		return
	}

	in, err := h.Validator.Register(req)
	if err != nil {
		h.writeValidation(w, "register", err)
		return
	}

	u, err := h.Service.Register(r.Context(), in)
	if errors.Is(err, user.ErrEmailTaken) {
		writeError(w, h.Logger, http.StatusConflict, msgEmailTaken)
		return
	}
	if err != nil {
		h.internal(w, "register", err)
		return
	}

	if ok := writeJSON(w, h.Logger, http.StatusCreated, u.Public()); ok {
		h.Logger.Info("register", "user", u.ID)
	}
}

// Logout only drops the client's copy of the token; the token itself stays
// valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookie.Clear(w)
	http.Redirect(w, r, landingPath, http.StatusSeeOther)
}

// Me answers from the token claims without reading the user store.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	signed, ok := session.TokenFromRequest(r)
	if !ok {
		writeError(w, h.Logger, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	c, err := h.Tokens.Validate(signed)
	if err != nil {
		writeError(w, h.Logger, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	writeJSON(w, h.Logger, http.StatusOK, c.Identity())
}

func (h *AuthHandler) writeValidation(w http.ResponseWriter, action string, err error) {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		h.internal(w, action, err)
		return
	}
	writeJSON(w, h.Logger, http.StatusBadRequest, map[string]any{
		typeError:   msgValidation,
		typeDetails: fieldErrs,
	})
}

func (h *AuthHandler) internal(w http.ResponseWriter, action string, err error) {
	h.Logger.Error(action, "error", err.Error())
	writeError(w, h.Logger, http.StatusInternalServerError, msgInternal)
}
