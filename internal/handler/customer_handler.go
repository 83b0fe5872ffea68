package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/pagination"
	"rfqportal/pkg/response"
)

type CustomerHandler struct {
	customerService service.CustomerService
	guard           Guard
}

func NewCustomerHandler(customerService service.CustomerService, guard Guard) *CustomerHandler {
	return &CustomerHandler{customerService: customerService, guard: guard}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/customers", h.guard.Authenticate)
	{
		group.GET("", h.guard.Require(authz.ActionReadOwn, authz.ResourceCustomer), h.ListCustomers)
		group.GET("/:id", h.guard.Require(authz.ActionReadOwn, authz.ResourceCustomer), h.GetCustomer)
		group.POST("", h.guard.Require(authz.ActionCreateAny, authz.ResourceCustomer), h.CreateCustomer)
		group.PUT("/:id", h.guard.Require(authz.ActionUpdateAny, authz.ResourceCustomer), h.UpdateCustomer)
		group.DELETE("/:id", h.guard.Require(authz.ActionDeleteAny, authz.ResourceCustomer), h.DeleteCustomer)
	}
}

// ListCustomers
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        q      query     string  false  "Search name, email or code"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Items per page (default 50, max 200)"
// @Success      200    {object}  response.Response{data=pagination.Page{items=[]service.CustomerResponse}}
// @Router       /api/customers [get]
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	p := pagination.Parse(c)
	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), c.Query("q"), p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p.Wrap(customers, total)))
}

// GetCustomer
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// CreateCustomer
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.customerService.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// UpdateCustomer
// @Summary      Update customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Customer"
// @Success      200      {object}  response.Response{data=service.CustomerResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// DeleteCustomer
// @Summary      Delete customer
// @Description  Fails with 409 while RFQs or invoices still reference the customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/customers/{id} [delete]
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customerService.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Customer deleted successfully"}))
}
