package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/handlers/testutil"
	"github.com/charlesng35/innkeep/internal/models"
)

func TestLoginIssuesToken(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateSuperadmin("root")

	result := env.Login("root", testutil.DefaultPassword)
	require.False(t, result.MustResetPassword)
	require.Equal(t, "root", result.User.Username)

	w := env.Request(http.MethodGet, "/api/auth/me", nil, result.AccessToken)
	var me models.User
	testutil.MustSucceed(t, w, http.StatusOK, &me)
	require.Equal(t, "root", me.Username)
	require.NotNil(t, me.GlobalRoleID)
}

func TestLoginByEmail(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("alice")

	result := env.Login("alice@example.com", testutil.DefaultPassword)
	require.Equal(t, "alice", result.User.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateUser("alice")

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "alice",
		"password":   "wrong-password",
	}, "")
	testutil.MustFail(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	w = env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "nobody",
		"password":   "wrong-password",
	}, "")
	testutil.MustFail(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestLoginRejectsMalformedPayload(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{"identifier": "alice"}, "")
	testutil.MustFail(t, w, http.StatusBadRequest, "VALIDATION_FAILED")
}

func TestLoginRateLimited(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithLoginRateLimit(2, time.Minute))

	body := map[string]string{"identifier": "nobody", "password": "whatever1"}
	for i := 0; i < 2; i++ {
		w := env.Request(http.MethodPost, "/api/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := env.Request(http.MethodPost, "/api/auth/login", body, "")
	testutil.MustFail(t, w, http.StatusTooManyRequests, "RATE_LIMITED")
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/hotels", nil, "")
	testutil.MustFail(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = env.Request(http.MethodGet, "/api/hotels", nil, "not-a-token")
	testutil.MustFail(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestPasswordResetFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateSuperadmin("root")
	rootToken := env.TokenFor(root)

	w := env.Request(http.MethodPost, "/api/users", map[string]any{
		"username":            "clerk",
		"email":               "clerk@example.com",
		"password":            "initial-pass",
		"must_reset_password": true,
	}, rootToken)
	testutil.MustSucceed[models.User](t, w, http.StatusCreated, nil)

	login := env.Login("clerk", "initial-pass")
	require.True(t, login.MustResetPassword)

	w = env.Request(http.MethodGet, "/api/hotels", nil, login.AccessToken)
	testutil.MustFail(t, w, http.StatusForbidden, "PASSWORD_RESET_REQUIRED")

	w = env.Request(http.MethodGet, "/api/auth/me", nil, login.AccessToken)
	testutil.MustSucceed[models.User](t, w, http.StatusOK, nil)

	w = env.Request(http.MethodPost, "/api/auth/password", map[string]string{
		"current_password": "initial-pass",
		"new_password":     "initial-pass",
	}, login.AccessToken)
	testutil.MustFail(t, w, http.StatusBadRequest, "VALIDATION_FAILED")

	w = env.Request(http.MethodPost, "/api/auth/password", map[string]string{
		"current_password": "wrong-pass",
		"new_password":     "changed-pass",
	}, login.AccessToken)
	testutil.MustFail(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	var fresh testutil.LoginResult
	w = env.Request(http.MethodPost, "/api/auth/password", map[string]string{
		"current_password": "initial-pass",
		"new_password":     "changed-pass",
	}, login.AccessToken)
	testutil.MustSucceed(t, w, http.StatusOK, &fresh)
	require.False(t, fresh.MustResetPassword)
	require.NotEmpty(t, fresh.AccessToken)

	w = env.Request(http.MethodGet, "/api/hotels", nil, fresh.AccessToken)
	testutil.MustSucceed[[]models.Hotel](t, w, http.StatusOK, nil)

	relogin := env.Login("clerk", "changed-pass")
	require.False(t, relogin.MustResetPassword)
}
