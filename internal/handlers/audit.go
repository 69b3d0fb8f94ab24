package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/innkeep/internal/services"
	"github.com/charlesng35/innkeep/pkg/response"
)

type AuditHandler struct {
	svc *services.AuditService
}

func NewAuditHandler(svc *services.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)

	userID, ok := uintQuery(c, "user_id")
	if !ok {
		return
	}
	hotelID, ok := uintQuery(c, "hotel_id")
	if !ok {
		return
	}

	filters := services.AuditFilters{
		UserID:   userID,
		HotelID:  hotelID,
		Action:   strings.TrimSpace(c.Query("action")),
		Result:   strings.TrimSpace(c.Query("result")),
		Resource: strings.TrimSpace(c.Query("resource")),
		Since:    timeQuery(c, "since"),
		Until:    timeQuery(c, "until"),
	}

	logs, err := h.svc.List(requestContext(c), services.AuditListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}
	writePage(c, logs)
}
