package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/pagination"
	"rfqportal/pkg/response"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	guard          Guard
}

func NewInvoiceHandler(invoiceService service.InvoiceService, guard Guard) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService, guard: guard}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/invoices", h.guard.Authenticate)
	{
		group.GET("", h.guard.Require(authz.ActionReadAny, authz.ResourceInvoice), h.ListInvoices)
		group.GET("/:id", h.guard.Require(authz.ActionReadAny, authz.ResourceInvoice), h.GetInvoice)
		group.POST("", h.guard.Require(authz.ActionCreateAny, authz.ResourceInvoice), h.CreateInvoice)
		group.PUT("/:id", h.guard.Require(authz.ActionUpdateAny, authz.ResourceInvoice), h.UpdateInvoice)
		group.DELETE("/:id", h.guard.Require(authz.ActionDeleteAny, authz.ResourceInvoice), h.DeleteInvoice)
	}
}

// ListInvoices
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        currency     query     string  false  "AUD or USD"
// @Param        date_from    query     string  false  "Invoice date from (YYYY-MM-DD)"
// @Param        date_to      query     string  false  "Invoice date to (YYYY-MM-DD)"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 50, max 200)"
// @Success      200          {object}  response.Response{data=pagination.Page{items=[]service.InvoiceResponse}}
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var query service.InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	p := pagination.Parse(c)
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), query, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(invoices, total)))
}

// GetInvoice
// @Summary      Get invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// CreateInvoice
// @Summary      Create invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.InvoiceRequest  true  "Invoice"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, inv))
}

// UpdateInvoice
// @Summary      Update invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Invoice ID"
// @Param        payload  body      service.InvoiceRequest  true  "Invoice"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Router       /api/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	inv, err := h.invoiceService.UpdateInvoice(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, inv))
}

// DeleteInvoice
// @Summary      Delete invoice
// @Tags         invoices
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Router       /api/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Invoice deleted successfully"}))
}
