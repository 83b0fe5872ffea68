package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/repository"
	"rfqportal/internal/service"
	"rfqportal/pkg/pagination"
	"rfqportal/pkg/response"
)

type AuditHandler struct {
	auditService service.AuditService
	guard        Guard
}

func NewAuditHandler(auditService service.AuditService, guard Guard) *AuditHandler {
	return &AuditHandler{auditService: auditService, guard: guard}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs", h.guard.Authenticate, h.guard.Require(authz.ActionReadAny, authz.ResourceAuditLog))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated records with users pre-loaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Filter by action"
// @Param        entity_id  query     string  false  "Filter by entity ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Items per page (default 50, max 200)"
// @Success      200        {object}  response.Response{data=pagination.Page{items=[]service.AuditLogResponse}}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{Action: c.Query("action"), EntityID: c.Query("entity_id")}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(logs, total)))
}
