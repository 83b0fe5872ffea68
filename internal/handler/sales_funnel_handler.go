package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/pagination"
	"rfqportal/pkg/response"
)

type SalesFunnelHandler struct {
	funnelService service.SalesFunnelService
	guard         Guard
}

func NewSalesFunnelHandler(funnelService service.SalesFunnelService, guard Guard) *SalesFunnelHandler {
	return &SalesFunnelHandler{funnelService: funnelService, guard: guard}
}

// RegisterRoutes leaves creation to the workflow gate, which checks the
// baseline permission itself before the RFQ progress rule.
func (h *SalesFunnelHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/sales-funnels", h.guard.Authenticate)
	{
		group.GET("", h.guard.Require(authz.ActionReadAny, authz.ResourceSalesFunnel), h.ListSalesFunnels)
		group.GET("/:id", h.guard.Require(authz.ActionReadAny, authz.ResourceSalesFunnel), h.GetSalesFunnel)
		group.POST("", h.CreateSalesFunnel)
		group.PUT("/:id", h.guard.Require(authz.ActionUpdateAny, authz.ResourceSalesFunnel), h.UpdateSalesFunnel)
		group.DELETE("/:id", h.guard.Require(authz.ActionDeleteAny, authz.ResourceSalesFunnel), h.DeleteSalesFunnel)
	}
}

// ListSalesFunnels
// @Summary      List sales funnels
// @Tags         sales-funnels
// @Produce      json
// @Security     BearerAuth
// @Param        rfq_id  query     string  false  "Filter by RFQ ID"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 50, max 200)"
// @Success      200     {object}  response.Response{data=pagination.Page{items=[]service.SalesFunnelResponse}}
// @Router       /api/sales-funnels [get]
func (h *SalesFunnelHandler) ListSalesFunnels(c *gin.Context) {
	p := pagination.Parse(c)
	funnels, total, err := h.funnelService.ListSalesFunnels(c.Request.Context(), c.Query("rfq_id"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(funnels, total)))
}

// GetSalesFunnel
// @Summary      Get sales funnel
// @Tags         sales-funnels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sales funnel ID"
// @Success      200  {object}  response.Response{data=service.SalesFunnelResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/sales-funnels/{id} [get]
func (h *SalesFunnelHandler) GetSalesFunnel(c *gin.Context) {
	funnel, err := h.funnelService.GetSalesFunnel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, funnel))
}

// CreateSalesFunnel opens a funnel for an RFQ that reached a hand-off state
// @Summary      Create sales funnel
// @Description  Allowed when the RFQ is "Sent to Salesperson (100%)" or "Sent to Customer (Done)", or the caller holds an exempt role. Otherwise 403 with kind WorkflowGateDenied.
// @Tags         sales-funnels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSalesFunnelRequest  true  "Sales funnel"
// @Success      201      {object}  response.Response{data=service.SalesFunnelResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response  "Unauthorized or WorkflowGateDenied"
// @Failure      404      {object}  response.Response  "RFQ not found"
// @Router       /api/sales-funnels [post]
func (h *SalesFunnelHandler) CreateSalesFunnel(c *gin.Context) {
	var req service.CreateSalesFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	funnel, err := h.funnelService.CreateSalesFunnel(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, funnel))
}

// UpdateSalesFunnel
// @Summary      Update sales funnel
// @Description  Stamps last_updated
// @Tags         sales-funnels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Sales funnel ID"
// @Param        payload  body      service.UpdateSalesFunnelRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.SalesFunnelResponse}
// @Router       /api/sales-funnels/{id} [put]
func (h *SalesFunnelHandler) UpdateSalesFunnel(c *gin.Context) {
	var req service.UpdateSalesFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	funnel, err := h.funnelService.UpdateSalesFunnel(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, funnel))
}

// DeleteSalesFunnel
// @Summary      Delete sales funnel
// @Tags         sales-funnels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sales funnel ID"
// @Success      200  {object}  response.Response
// @Router       /api/sales-funnels/{id} [delete]
func (h *SalesFunnelHandler) DeleteSalesFunnel(c *gin.Context) {
	if err := h.funnelService.DeleteSalesFunnel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Sales funnel deleted successfully"}))
}
