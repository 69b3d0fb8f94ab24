package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/response"
)

// Authorizer is the permission check RequirePermission relies on.
type Authorizer interface {
	Authorize(ctx context.Context, userID uint, hotelID *uint, action, resource string) (bool, error)
}

// RequirePermission rejects the request unless the authenticated user holds
// (action, resource) in the global context. Routes scoped to a hotel are
// authorized by the services instead.
func RequirePermission(authz Authorizer, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		allowed, err := authz.Authorize(c.Request.Context(), userID, nil, action, resource)
		if err != nil {
			response.Error(c, errors.ErrInternalServer.WithInternal(err))
			c.Abort()
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
