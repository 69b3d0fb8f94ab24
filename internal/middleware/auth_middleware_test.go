package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/innkeep/internal/auditctx"
	iauth "github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/pkg/response"
)

func newJWT(t *testing.T) *iauth.JWTService {
	t.Helper()
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	return jwtSvc
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)

	issued, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: 42, Username: "frontdesk"})
	require.NoError(t, err)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		actor, ok := auditctx.FromContext(c.Request.Context())
		require.True(t, ok)
		userID, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":    userID,
			"username":   actor.Username,
			"request_id": actor.RequestID,
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	req.Header.Set(RequestIDHeader, "trace-1")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.EqualValues(t, 42, payload["user_id"])
	require.Equal(t, "frontdesk", payload["username"])
	require.Equal(t, "trace-1", payload["request_id"])
}

func TestPasswordResetGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := newJWT(t)

	pending, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: 7, MustResetPassword: true})
	require.NoError(t, err)
	clear, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: 8})
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api", Auth(jwtSvc), PasswordResetGate("/api/auth/me"))
	api.GET("/auth/me", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/hotels", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusOK, call("/api/auth/me", pending.Token).Code)

	w := call("/api/hotels", pending.Token)
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "PASSWORD_RESET_REQUIRED", resp.Error.Code)

	require.Equal(t, http.StatusOK, call("/api/hotels", clear.Token).Code)
}
