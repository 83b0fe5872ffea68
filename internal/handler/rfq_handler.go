package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/pagination"
	"rfqportal/pkg/response"
)

type RFQHandler struct {
	rfqService service.RFQService
	guard      Guard
}

func NewRFQHandler(rfqService service.RFQService, guard Guard) *RFQHandler {
	return &RFQHandler{rfqService: rfqService, guard: guard}
}

// RegisterRoutes guards create and read with the own scope; the service
// narrows to the actor's records when the any scope is missing.
func (h *RFQHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/rfqs", h.guard.Authenticate)
	{
		group.GET("", h.guard.Require(authz.ActionReadOwn, authz.ResourceRFQ), h.ListRFQs)
		group.GET("/:id", h.guard.Require(authz.ActionReadOwn, authz.ResourceRFQ), h.GetRFQ)
		group.POST("", h.guard.Require(authz.ActionCreateOwn, authz.ResourceRFQ), h.CreateRFQ)
		group.PUT("/:id", h.guard.Require(authz.ActionUpdateAny, authz.ResourceRFQ), h.UpdateRFQ)
		group.PATCH("/:id/progress", h.guard.Require(authz.ActionUpdateAny, authz.ResourceRFQ), h.UpdateProgress)
		group.DELETE("/:id", h.guard.Require(authz.ActionDeleteAny, authz.ResourceRFQ), h.DeleteRFQ)
	}
}

// ListRFQs
// @Summary      List RFQs
// @Tags         rfqs
// @Produce      json
// @Security     BearerAuth
// @Param        q            query     string  false  "Search location, remarks or customer name"
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        progress     query     string  false  "Progress state"
// @Param        date_from    query     string  false  "Receive date from (YYYY-MM-DD)"
// @Param        date_to      query     string  false  "Receive date to (YYYY-MM-DD)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 50, max 200)"
// @Success      200          {object}  response.Response{data=pagination.Page{items=[]service.RFQResponse}}
// @Router       /api/rfqs [get]
func (h *RFQHandler) ListRFQs(c *gin.Context) {
	var query service.RFQListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)
	rfqs, total, err := h.rfqService.ListRFQs(c.Request.Context(), query, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(rfqs, total)))
}

// GetRFQ
// @Summary      Get RFQ
// @Tags         rfqs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "RFQ ID"
// @Success      200  {object}  response.Response{data=service.RFQResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/rfqs/{id} [get]
func (h *RFQHandler) GetRFQ(c *gin.Context) {
	rfq, err := h.rfqService.GetRFQ(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rfq))
}

// CreateRFQ
// @Summary      Create RFQ
// @Description  Creates an RFQ with its prepared-by people in one transaction. Progress defaults to "Waiting for Drawing".
// @Tags         rfqs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RFQRequest  true  "RFQ"
// @Success      201      {object}  response.Response{data=service.RFQResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/rfqs [post]
func (h *RFQHandler) CreateRFQ(c *gin.Context) {
	var req service.RFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rfq, err := h.rfqService.CreateRFQ(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rfq))
}

// UpdateRFQ
// @Summary      Update RFQ
// @Tags         rfqs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "RFQ ID"
// @Param        payload  body      service.RFQRequest  true  "RFQ"
// @Success      200      {object}  response.Response{data=service.RFQResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/rfqs/{id} [put]
func (h *RFQHandler) UpdateRFQ(c *gin.Context) {
	var req service.RFQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rfq, err := h.rfqService.UpdateRFQ(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rfq))
}

// UpdateProgress moves an RFQ to another workflow state
// @Summary      Update RFQ progress
// @Description  Changes are audited and broadcast as rfq.progress_changed events
// @Tags         rfqs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "RFQ ID"
// @Param        payload  body      service.UpdateProgressRequest  true  "New progress"
// @Success      200      {object}  response.Response{data=service.RFQResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/rfqs/{id}/progress [patch]
func (h *RFQHandler) UpdateProgress(c *gin.Context) {
	var req service.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rfq, err := h.rfqService.UpdateProgress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rfq))
}

// DeleteRFQ
// @Summary      Delete RFQ
// @Tags         rfqs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "RFQ ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/rfqs/{id} [delete]
func (h *RFQHandler) DeleteRFQ(c *gin.Context) {
	if err := h.rfqService.DeleteRFQ(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "RFQ deleted successfully"}))
}
