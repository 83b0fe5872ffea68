package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/service"
	"rfqportal/pkg/response"
)

type RoleHandler struct {
	roleService service.RoleService
	guard       Guard
}

func NewRoleHandler(roleService service.RoleService, guard Guard) *RoleHandler {
	return &RoleHandler{roleService: roleService, guard: guard}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := h.guard.Require(authz.ActionReadAny, authz.ResourceRole)
	write := h.guard.Require(authz.ActionUpdateAny, authz.ResourceRole)

	group := router.Group("", h.guard.Authenticate)
	{
		group.GET("/roles", read, h.ListRoles)
		group.GET("/permissions", read, h.ListPermissions)
		group.GET("/roles/:id/permissions", read, h.GetRolePermissions)
		group.POST("/roles/:id/permissions", write, h.AssignPermissions)
		group.GET("/role-permissions", read, h.ListGrants)
		group.GET("/authz/status", read, h.Status)
		group.POST("/authz/reload", write, h.Reload)
	}
}

// ListRoles returns all roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// ListPermissions returns the permission catalogue
// @Summary      List permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleService.ListPermissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// GetRolePermissions returns one role and its permissions
// @Summary      Get role permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id}/permissions [get]
func (h *RoleHandler) GetRolePermissions(c *gin.Context) {
	role, err := h.roleService.GetRolePermissions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// AssignPermissions replaces a role's permissions and rebuilds the grant table
// @Summary      Assign role permissions
// @Description  Replaces the role's permission set. The authorization table is rebuilt and other instances are notified.
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                            true  "Role ID"
// @Param        payload  body      service.AssignPermissionsRequest  true  "Permission IDs"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/roles/{id}/permissions [post]
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	var req service.AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := h.roleService.AssignPermissions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// ListGrants returns every (role, action, resource) triple in the store
// @Summary      List role permissions
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.GrantRow}
// @Router       /api/role-permissions [get]
func (h *RoleHandler) ListGrants(c *gin.Context) {
	rows, err := h.roleService.ListGrants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rows))
}

// Status reports where the active grant table came from
// @Summary      Authorization status
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=authz.Status}
// @Router       /api/authz/status [get]
func (h *RoleHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.roleService.Status(c.Request.Context())))
}

// Reload rebuilds the grant table from the store
// @Summary      Reload grants
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=authz.Status}
// @Router       /api/authz/reload [post]
func (h *RoleHandler) Reload(c *gin.Context) {
	st, err := h.roleService.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, st))
}
