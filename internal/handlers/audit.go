package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmjalil96/claimsdesk/internal/services"
	"github.com/jmjalil96/claimsdesk/pkg/response"
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	filters := services.AuditFilters{
		ActorID:  c.Query("actor_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Result:   c.Query("result"),
	}
	if since := c.Query("since"); since != "" {
		if parsed, err := time.Parse(time.RFC3339, since); err == nil {
			filters.Since = &parsed
		}
	}
	if until := c.Query("until"); until != "" {
		if parsed, err := time.Parse(time.RFC3339, until); err == nil {
			filters.Until = &parsed
		}
	}

	logs, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  filters,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, paginationMeta(page, perPage, total))
}
