package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"calendarium/pkg/claims"
	"calendarium/pkg/handlers"
	"calendarium/pkg/session"
	"calendarium/pkg/token"
	"calendarium/pkg/user"
	"calendarium/pkg/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockService struct {
	mock.Mock
}

func (m *mockService) Register(_ context.Context, in validation.RegisterInput) (*user.User, error) {
	args := m.Called(in)
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockService) Login(_ context.Context, email, password string) (*user.User, error) {
	args := m.Called(email, password)
	return args.Get(0).(*user.User), args.Error(1)
}

var created = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

var ana = &user.User{
	ID:        "id",
	Name:      "Ana",
	Surname:   "Ruiz",
	Email:     "ana@x.com",
	Password:  "$2a$10$secret-hash",
	Role:      user.RoleUser,
	CreatedAt: created,
}

func newHandler(t *testing.T, m *mockService) (*handlers.AuthHandler, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
	return handlers.NewAuthHandler(m, codec, session.Options(false), logger), codec
}

func TestLoginHandler(t *testing.T) {
	m := new(mockService)
	handler, codec := newHandler(t, m)

	m.On("Login", "ana@x.com", "Passw0rd").Return(ana, nil)
	m.On("Login", "ghost@x.com", "Passw0rd").Return((*user.User)(nil), user.ErrInvalidCredentials)
	m.On("Login", "ana@x.com", "wrong").Return((*user.User)(nil), user.ErrInvalidCredentials)
	m.On("Login", "broken@x.com", "Passw0rd").Return((*user.User)(nil), errors.New("db is down"))

	tests := []struct {
		name           string
		body           string
		contentType    string
		expectedStatus int
		expectedBody   string
		expectCookie   bool
	}{
		{
			name:           "Successful login",
			body:           `{"email":"ANA@x.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":"id","email":"ana@x.com","role":"user","createdAt":"2026-03-01T09:30:00Z"}`,
			expectCookie:   true,
		},
		{
			name:           "Unknown email",
			body:           `{"email":"ghost@x.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Invalid email or password"}`,
		},
		{
			name:           "Wrong password",
			body:           `{"email":"ana@x.com","password":"wrong"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Invalid email or password"}`,
		},
		{
			name:           "Storage failure",
			body:           `{"email":"broken@x.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Internal server error"}`,
		},
		{
			name:           "Validation failure",
			body:           `{"email":"nope","password":""}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","details":{"email":["Invalid email address"],"password":["Password is required"]}}`,
		},
		{
			name:           "Bad Content-Type",
			body:           `{"email":"ana@x.com","password":"Passw0rd"}`,
			contentType:    "plain/text",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid Content-Type"}`,
		},
		{
			name:           "Bad JSON",
			body:           `{"email" oops "ana@x.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"bad json"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(test.body))
			if test.contentType != "" {
				req.Header.Set("Content-Type", test.contentType)
			} else {
				req.Header.Set("Content-Type", "application/json; charset=utf-8")
			}

			rr := httptest.NewRecorder()

			handler.Login(rr, req)

			assert.Equal(t, test.expectedStatus, rr.Code)
			assert.JSONEq(t, test.expectedBody, rr.Body.String())
			assert.NotContains(t, rr.Body.String(), "secret-hash")

			cookies := rr.Result().Cookies()
			if !test.expectCookie {
				assert.Empty(t, cookies)
				return
			}

			require.Len(t, cookies, 1)
			assert.Equal(t, session.CookieName, cookies[0].Name)
			assert.True(t, cookies[0].HttpOnly)
			assert.Equal(t, session.MaxAge, cookies[0].MaxAge)

			c, err := codec.Validate(cookies[0].Value)
			require.NoError(t, err)
			assert.Equal(t, ana.Identity(), c.Identity())
		})
	}

	m.AssertExpectations(t)
}

func TestLoginHandler_AntiEnumeration(t *testing.T) {
	m := new(mockService)
	handler, _ := newHandler(t, m)

	m.On("Login", "ghost@x.com", "Passw0rd").Return((*user.User)(nil), user.ErrInvalidCredentials)
	m.On("Login", "ana@x.com", "Wrong0000").Return((*user.User)(nil), user.ErrInvalidCredentials)

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.Login(rr, req)
		return rr
	}

	unknown := do(`{"email":"ghost@x.com","password":"Passw0rd"}`)
	wrong := do(`{"email":"ana@x.com","password":"Wrong0000"}`)

	assert.Equal(t, unknown.Code, wrong.Code)
	assert.Equal(t, unknown.Body.Bytes(), wrong.Body.Bytes())
}

func TestRegisterHandler(t *testing.T) {
	m := new(mockService)
	handler, _ := newHandler(t, m)

	form := validation.RegisterInput{Name: "Ana", Surname: "Ruiz", Email: "ana@x.com", Password: "Passw0rd"}
	taken := form
	taken.Email = "taken@x.com"
	broken := form
	broken.Email = "broken@x.com"

	m.On("Register", form).Return(ana, nil)
	m.On("Register", taken).Return((*user.User)(nil), user.ErrEmailTaken)
	m.On("Register", broken).Return((*user.User)(nil), errors.New("unexpected error"))

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Successful registration",
			body:           `{"name":"Ana","surname":"Ruiz","email":"ANA@X.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusCreated,
			expectedBody:   `{"id":"id","email":"ana@x.com","role":"user","createdAt":"2026-03-01T09:30:00Z"}`,
		},
		{
			name:           "Email already registered",
			body:           `{"name":"Ana","surname":"Ruiz","email":"taken@x.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"Email already registered"}`,
		},
		{
			name:           "Unexpected error",
			body:           `{"name":"Ana","surname":"Ruiz","email":"broken@x.com","password":"Passw0rd"}`,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Internal server error"}`,
		},
		{
			name:           "Weak password",
			body:           `{"name":"Ana","surname":"Ruiz","email":"ana@x.com","password":"password"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Validation failed","details":{"password":["Password must contain at least one uppercase letter","Password must contain at least one number"]}}`,
		},
		{
			name:           "Bad JSON",
			body:           `{"name" oops}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"bad json"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(test.body))
			req.Header.Set("Content-Type", "application/json")

			rr := httptest.NewRecorder()

			handler.Register(rr, req)

			assert.Equal(t, test.expectedStatus, rr.Code)
			assert.JSONEq(t, test.expectedBody, rr.Body.String())
			assert.Empty(t, rr.Result().Cookies())
		})
	}

	m.AssertExpectations(t)
}

func TestLogoutHandler(t *testing.T) {
	handler, _ := newHandler(t, new(mockService))

	for _, withCookie := range []bool{true, false} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
		if withCookie {
			req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "whatever"})
		}
		rr := httptest.NewRecorder()

		handler.Logout(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/", rr.Header().Get("Location"))
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.CookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Contains(t, rr.Header().Get("Set-Cookie"), "Max-Age=0")
	}
}

func TestMeHandler(t *testing.T) {
	handler, codec := newHandler(t, new(mockService))

	valid, err := codec.Issue(claims.Identity{ID: "id", Email: "ana@x.com", Role: "user"})
	require.NoError(t, err)

	tests := []struct {
		name           string
		cookie         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Valid session",
			cookie:         valid,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":"id","email":"ana@x.com","role":"user"}`,
		},
		{
			name:           "No cookie",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Unauthorized"}`,
		},
		{
			name:           "Tampered token",
			cookie:         valid + "x",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"error":"Unauthorized"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if test.cookie != "" {
				req.AddCookie(&http.Cookie{Name: session.CookieName, Value: test.cookie})
			}
			rr := httptest.NewRecorder()

			handler.Me(rr, req)

			assert.Equal(t, test.expectedStatus, rr.Code)
			assert.JSONEq(t, test.expectedBody, rr.Body.String())
		})
	}
}

func TestPublicUserNeverCarriesHash(t *testing.T) {
	raw, err := json.Marshal(ana.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	raw, err = json.Marshal(ana)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestErrorResponseWriteFailureIsLogged(t *testing.T) {
	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{}))
	handler := handlers.NewAuthHandler(new(mockService), codec, session.Options(false), logger)

	w := brokenWriter{httptest.NewRecorder()}
	handler.Me(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, logs.String(), "failed to write error response")
	assert.Contains(t, logs.String(), "connection reset")
}
