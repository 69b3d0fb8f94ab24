package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/charlesng35/innkeep/internal/auth"
	"github.com/charlesng35/innkeep/internal/auditctx"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/realtime"
	"github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/logger"
	"github.com/charlesng35/innkeep/pkg/response"
)

// StreamAuthorizer is the permission check used for stream subscriptions.
type StreamAuthorizer interface {
	Authorize(ctx context.Context, userID uint, hotelID *uint, action, resource string) (bool, error)
}

// RealtimeHandler upgrades HTTP connections into authenticated WebSocket streams.
type RealtimeHandler struct {
	hub   *realtime.Hub
	jwt   *iauth.JWTService
	authz StreamAuthorizer
}

func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService, authz StreamAuthorizer) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, jwt: jwt, authz: authz}
}

// Stream validates the caller and joins the booking board. Browsers cannot
// set headers on websocket requests, so the token may come in the query.
//
// GET /ws?streams=hotel.1.bookings,hotel.2.bookings
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil || h.authz == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		authz := c.GetHeader("Authorization")
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			token = strings.TrimSpace(authz[7:])
		}
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil || claims.UserID == 0 {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	if claims.MustResetPassword {
		response.Error(c, errors.ErrPasswordResetRequired)
		return
	}

	ctx := auditctx.WithActor(requestContext(c), auditctx.Actor{
		UserID:    claims.UserID,
		Username:  claims.Username,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	h.hub.Serve(claims.UserID, gatherStreams(c), h.authorizeStream, c.Writer, c.Request.WithContext(ctx))
}

// authorizeStream admits subscribers of a hotel booking stream who may read
// bookings in that hotel. Unknown stream names are refused.
func (h *RealtimeHandler) authorizeStream(ctx context.Context, userID uint, stream string) bool {
	hotelID, ok := realtime.ParseHotelBookingsStream(stream)
	if !ok {
		return false
	}
	allowed, err := h.authz.Authorize(ctx, userID, &hotelID, permissions.ActionRead, permissions.ResourceBooking)
	if err != nil {
		logger.WithModule("realtime").Warn("stream authorization failed",
			zap.Uint("user_id", userID),
			zap.String("stream", stream),
			zap.Error(err))
		return false
	}
	return allowed
}

func gatherStreams(c *gin.Context) []string {
	var streams []string

	for _, queryStream := range c.QueryArray("stream") {
		if normalized := normalizeStream(queryStream); normalized != "" {
			streams = append(streams, normalized)
		}
	}

	raw := c.Query("streams")
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if normalized := normalizeStream(part); normalized != "" {
				streams = append(streams, normalized)
			}
		}
	}

	return uniqueStreams(streams)
}

func normalizeStream(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func uniqueStreams(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
