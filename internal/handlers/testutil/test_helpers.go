package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/api"
	"github.com/charlesng35/innkeep/internal/app"
	iauth "github.com/charlesng35/innkeep/internal/auth"
	sharedtestutil "github.com/charlesng35/innkeep/internal/database/testutil"
	"github.com/charlesng35/innkeep/internal/middleware"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/realtime"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/crypto"
	"github.com/charlesng35/innkeep/pkg/response"
)

// DefaultPassword is used by CreateUser and CreateSuperadmin.
const DefaultPassword = "password123"

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Store  *repository.Store
	Router *gin.Engine
	JWT    *iauth.JWTService
	Hub    *realtime.Hub
	Config *app.Config
}

// Option adjusts the configuration before the router is built.
type Option func(*app.Config)

// WithLoginRateLimit throttles POST /api/auth/login.
func WithLoginRateLimit(requests int, window time.Duration) Option {
	return func(cfg *app.Config) {
		cfg.Server.LoginRateLimit = app.RateLimitRule{Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations, seed
// data and the permission catalogue applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())
	store, err := repository.NewStore(db)
	require.NoError(t, err)
	_, err = services.Bootstrap(context.Background(), store, services.SuperadminAccount{})
	require.NoError(t, err)

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	hub := realtime.NewHub()
	router, err := api.NewRouter(api.Options{
		DB:        db,
		JWT:       jwtSvc,
		Config:    cfg,
		Publisher: realtime.NewBookingBoard(hub),
		Hub:       hub,
		RateStore: middleware.NewMemoryRateStore(),
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Store:  store,
		Router: router,
		JWT:    jwtSvc,
		Hub:    hub,
		Config: cfg,
	}
}

// CreateUser inserts an active user with DefaultPassword and no roles.
func (e *Env) CreateUser(username string) *models.User {
	e.T.Helper()

	hashed, err := crypto.HashPassword(DefaultPassword)
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(e.T, e.Store.Users.Create(context.Background(), user))
	return user
}

// CreateUserWithGlobalRole inserts a user holding the named global role.
func (e *Env) CreateUserWithGlobalRole(username, roleName string) *models.User {
	e.T.Helper()

	ctx := context.Background()
	role, err := e.Store.Roles.FindByName(ctx, roleName, nil)
	require.NoError(e.T, err)

	user := e.CreateUser(username)
	require.NoError(e.T, e.Store.Users.SetGlobalRole(ctx, user.ID, &role.ID))
	user.GlobalRoleID = &role.ID
	return user
}

// CreateSuperadmin inserts a superadmin user.
func (e *Env) CreateSuperadmin(username string) *models.User {
	e.T.Helper()
	return e.CreateUserWithGlobalRole(username, models.RoleSuperadmin)
}

// TokenFor issues an access token without going through login.
func (e *Env) TokenFor(user *models.User) string {
	e.T.Helper()
	issued, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:            user.ID,
		Username:          user.Username,
		MustResetPassword: user.MustResetPassword,
	})
	require.NoError(e.T, err)
	return issued.Token
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	AccessToken       string      `json:"access_token"`
	TokenType         string      `json:"token_type"`
	ExpiresAt         time.Time   `json:"expires_at"`
	MustResetPassword bool        `json:"must_reset_password"`
	User              models.User `json:"user"`
}

// Login authenticates with the given credentials and returns the issued token.
func (e *Env) Login(identifier, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, "Bearer", result.TokenType)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// MustSucceed asserts the status code and a successful envelope, decoding the
// data into dest when it is non-nil.
func MustSucceed[T any](t *testing.T, w *httptest.ResponseRecorder, status int, dest *T) APIResponse {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	if dest != nil {
		DecodeInto(t, resp.Data, dest)
	}
	return resp
}

// MustFail asserts the status code and error code of a failed request.
func MustFail(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	if code != "" {
		require.Equal(t, code, resp.Error.Code)
	}
}
