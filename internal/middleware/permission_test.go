package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type authorizerFunc func(userID uint, hotelID *uint, action, resource string) (bool, error)

func (f authorizerFunc) Authorize(_ context.Context, userID uint, hotelID *uint, action, resource string) (bool, error) {
	return f(userID, hotelID, action, resource)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authz := authorizerFunc(func(userID uint, hotelID *uint, action, resource string) (bool, error) {
		require.Nil(t, hotelID)
		require.Equal(t, "read", action)
		require.Equal(t, "audit", resource)
		switch userID {
		case 1:
			return true, nil
		case 2:
			return false, nil
		}
		return false, errors.New("boom")
	})

	serve := func(userID uint) int {
		r := gin.New()
		r.GET("/audit", func(c *gin.Context) {
			if userID != 0 {
				c.Set(CtxUserIDKey, userID)
			}
			c.Next()
		}, RequirePermission(authz, "read", "audit"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/audit", nil))
		return w.Code
	}

	require.Equal(t, http.StatusOK, serve(1))
	require.Equal(t, http.StatusForbidden, serve(2))
	require.Equal(t, http.StatusInternalServerError, serve(3))
	require.Equal(t, http.StatusUnauthorized, serve(0))
}
