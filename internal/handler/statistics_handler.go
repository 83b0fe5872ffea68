package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/response"
)

type StatisticsHandler struct {
	statsService service.StatisticsService
	guard        Guard
}

func NewStatisticsHandler(statsService service.StatisticsService, guard Guard) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService, guard: guard}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/statistics", h.guard.Authenticate, h.guard.Require(authz.ActionReadAny, authz.ResourceRFQ), h.GetPipelineSummary)
}

// GetPipelineSummary
// @Summary      Pipeline statistics
// @Description  RFQ counts per progress state in workflow order, sales funnel count and invoice totals per currency
// @Tags         statistics
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=model.PipelineSummary}
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetPipelineSummary(c *gin.Context) {
	summary, err := h.statsService.GetPipelineSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
