package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arenapanel/internal/access"
	"arenapanel/internal/auth"
	"arenapanel/internal/config"
	"arenapanel/internal/database"
	"arenapanel/internal/models"
	"arenapanel/internal/repository"
	"arenapanel/internal/service"
	"arenapanel/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	rootEmail    = "root@example.com"
	rootPassword = "changeme123"
)

type testEnv struct {
	ts    *httptest.Server
	db    *database.DB
	deps  Deps
	token string
}

func newTestEnv(t *testing.T, mutate ...func(*config.APIConfig)) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := config.APIAuthConfig{
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		Issuer:           "arenapanel-test",
		SessionTTL:       3600,
		BcryptCost:       bcrypt.MinCost,
		LoginAttempts:    5,
		LoginWindow:      60,
		OpenRegistration: true,
	}
	apiCfg := config.APIConfig{Auth: authCfg, HTTP: config.APIHTTPConfig{AllowedOrigins: []string{"https://panel.example.com"}}}
	for _, m := range mutate {
		m(&apiCfg)
	}

	tokens, err := auth.NewTokenManager(authCfg.JWTSecret, authCfg.Issuer)
	require.NoError(t, err)

	uploadsDir := t.TempDir()
	store, err := storage.NewLocalStore(uploadsDir, "/uploads")
	require.NoError(t, err)

	users := service.NewUserService(db, authCfg, &logger)
	require.NoError(t, users.EnsureSuperadmins(context.Background(), []config.BootstrapUser{
		{Name: "Root", Email: rootEmail, Password: rootPassword},
	}))

	deps := Deps{
		Auth:       service.NewAuthService(db, repository.NewMemorySessionStore(), tokens, nil, authCfg, &logger),
		Bookings:   service.NewBookingService(db, db, nil, nil, config.BookingsConfig{MaxBookingDays: 90}, &logger),
		Spaces:     service.NewSpaceService(db, &logger),
		Tickets:    service.NewTicketService(db, nil, &logger),
		Users:      users,
		Uploads:    service.NewUploadService(store, models.MaxUploadBytes, &logger),
		UploadsDir: uploadsDir,
		Ready:      db.PingContext,
	}

	srv := NewHTTPServer(apiCfg, deps, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	env := &testEnv{ts: ts, db: db, deps: deps}
	env.token = env.login(t, rootEmail, rootPassword)
	return env
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res service.LoginResult
	decodeBody(t, resp, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *testEnv) createSpace(t *testing.T) *models.Space {
	t.Helper()
	body := map[string]any{
		"name":           "Quadra Central",
		"modality":       "Futsal",
		"price_per_hour": 40,
		"opening_time":   "08:00",
		"closing_time":   "22:00",
		"max_capacity":   10,
		"available":      true,
	}
	resp := e.do(t, http.MethodPost, "/api/v1/spaces", e.token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var space models.Space
	decodeBody(t, resp, &space)
	require.NotZero(t, space.ID)
	return &space
}

func bookingDay() string {
	return time.Now().AddDate(0, 0, 7).Format(models.DateFormat)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGuestIsRejected(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/bookings", "/api/v1/spaces", "/api/v1/tickets", "/api/v1/users"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp := env.do(t, http.MethodGet, "/api/v1/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBadTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/bookings", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, string(service.AuthInvalidToken), body.Code)

	// a stale token must not block logging in again
	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "not-a-token", map[string]string{"email": rootEmail, "password": rootPassword})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/auth/session", env.token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body sessionResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Session.Authenticated)
	assert.Equal(t, models.RoleSuperadmin, body.Session.Role)
	require.NotNil(t, body.User)
	assert.Equal(t, rootEmail, body.User.Email)
	assert.True(t, body.Permissions[access.ActionDelete])
	assert.True(t, body.Permissions[access.ActionAssignRole])

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", env.token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/auth/session", env.token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": rootEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": rootEmail})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": rootEmail, "extra": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are refused")
}

func TestRegisterGivesNoPanelAccess(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name": "Ana", "email": "ANA@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	token := env.login(t, "ana@example.com", "password123")
	resp = env.do(t, http.MethodGet, "/api/v1/bookings", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var body errorBody
	decodeBody(t, resp, &body)
	assert.Equal(t, "insufficient_role", body.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.APIConfig) {
		c.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 2}
	})

	// the login in newTestEnv used one token of the client's bucket
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.ts.URL+"/api/v1/bookings", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://panel.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://panel.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/v1/nothing", env.token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/bookings/abc", env.token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
