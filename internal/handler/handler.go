package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/authz"
	"rfqportal/internal/middleware"
	"rfqportal/internal/service"
	"rfqportal/pkg/response"
)

// Guard bundles the authentication middleware and the decision engine every
// protected route group uses.
type Guard struct {
	Authenticate gin.HandlerFunc
	Decider      middleware.Decider
}

// Require returns a middleware demanding action on resource.
func (g Guard) Require(action authz.Action, resource authz.Resource) gin.HandlerFunc {
	return middleware.Authorize(g.Decider, action, resource)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}
	status, body := response.FromError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, body)
}
