package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/repository"
	appErrors "github.com/charlesng35/innkeep/pkg/errors"
	"github.com/charlesng35/innkeep/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// idParam parses a positive numeric path parameter. An error response is
// written when it is malformed.
func idParam(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

// uintQuery reads an optional numeric query parameter.
func uintQuery(c *gin.Context, key string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.Error(c, appErrors.NewBadRequest("invalid "+key))
		return nil, false
	}
	v := uint(id)
	return &v, true
}

func boolQuery(c *gin.Context, key string) *bool {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// timeQuery accepts RFC3339 timestamps or plain dates.
func timeQuery(c *gin.Context, key string) *time.Time {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func pageQuery(c *gin.Context) (page, perPage int) {
	return parseIntQuery(c, "page", repository.DefaultPage), parseIntQuery(c, "per_page", repository.DefaultPageSize)
}

func writePage[T any](c *gin.Context, result repository.PageResult[T]) {
	items := result.Items
	if items == nil {
		items = []T{}
	}
	response.SuccessWithMeta(c, http.StatusOK, items, response.NewMeta(result.Page, result.PageSize, result.Total))
}

func writeList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	response.Success(c, http.StatusOK, items)
}
