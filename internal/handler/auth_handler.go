package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rfqportal/internal/middleware"
	"rfqportal/internal/service"
	"rfqportal/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	guard       Guard
	cookies     middleware.CookieConfig
	limiter     gin.HandlerFunc
}

// NewAuthHandler sets up the login flow endpoints. limiter guards the public routes.
func NewAuthHandler(authService service.AuthService, guard Guard, cookies middleware.CookieConfig, limiter gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{authService: authService, guard: guard, cookies: cookies, limiter: limiter}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	if h.limiter != nil {
		auth.Use(h.limiter)
	}
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/verify-otp", h.VerifyOTP)
	}

	me := router.Group("/users", h.guard.Authenticate)
	{
		me.GET("/me", h.GetMe)
		me.POST("/logout", h.Logout)
	}
}

// Register creates an account
// @Summary      Register user
// @Description  Creates an account with the user role. Any requested role is ignored; roles are granted through PUT /api/users/{id}.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login checks the password and emails a one-time code
// @Summary      Login user
// @Description  Verifies email and password, then sends a one-time code to the user's email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// VerifyOTP exchanges the one-time code for an access token
// @Summary      Verify one-time code
// @Description  Consumes the pending code and returns an access token, also set as an HttpOnly cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VerifyOTPRequest  true  "Email and code"
// @Success      200      {object}  response.Response{data=service.AuthResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response  "NoPendingSession or InvalidOrExpiredCode"
// @Router       /api/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req service.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.authService.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookies.SetTokenCookie(c, res.Token, res.ExpiresAt)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetMe returns the current user with effective permissions
// @Summary      Get current user
// @Description  Get the currently authenticated user and the permissions its roles grant
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/users/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// Logout revokes the stored token and clears the cookie
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response
// @Router       /api/users/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.cookies.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}
