package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rfqportal/internal/authz"
	"rfqportal/internal/credential"
	"rfqportal/pkg/response"
)

const (
	// AccessTokenCookie carries the credential for browser clients.
	AccessTokenCookie = "access_token"

	ctxUserID    = "userID"
	ctxUserRoles = "userRoles"
)

// TokenVerifier decodes a signed access token.
type TokenVerifier interface {
	Verify(token string) (*credential.Claims, error)
}

// RoleResolver normalises the raw role claim.
type RoleResolver interface {
	Resolve(raw any) ([]string, error)
}

// SessionValidator checks that a token has not been revoked by logout.
type SessionValidator interface {
	ValidateSession(ctx context.Context, userID uuid.UUID, token string) error
}

// Decider is the authorization engine's decision entry point.
type Decider interface {
	Decide(roles []string, action authz.Action, resource authz.Resource) error
}

// CookieConfig decides cookie attributes. Production runs cross-site behind TLS.
type CookieConfig struct {
	Secure bool
}

func (cc CookieConfig) sameSite() http.SameSite {
	if cc.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetTokenCookie stores the access token as an HttpOnly cookie.
func (cc CookieConfig) SetTokenCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(cc.sameSite())
	c.SetCookie(AccessTokenCookie, token, maxAge, "/", "", cc.Secure, true)
}

// ClearTokenCookie removes the access token cookie.
func (cc CookieConfig) ClearTokenCookie(c *gin.Context) {
	c.SetSameSite(cc.sameSite())
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", cc.Secure, true)
}

// Authenticator turns a bearer token or cookie into an authz.Actor on the request context.
type Authenticator struct {
	verifier TokenVerifier
	resolver RoleResolver
	sessions SessionValidator
}

// NewAuthenticator builds the middleware. sessions may be nil to skip the revocation check.
func NewAuthenticator(verifier TokenVerifier, resolver RoleResolver, sessions SessionValidator) *Authenticator {
	return &Authenticator{verifier: verifier, resolver: resolver, sessions: sessions}
}

// TokenFromRequest prefers the Authorization header and falls back to the cookie.
func TokenFromRequest(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if tokenString, err := c.Cookie(AccessTokenCookie); err == nil && tokenString != "" {
		return tokenString, true
	}
	return "", false
}

// Authenticate rejects requests without a valid, unrevoked token and a
// recognised role. On success the actor is available through authz.ActorFrom.
func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := TokenFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		actor, err := a.Identify(c.Request.Context(), tokenString)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ctxUserID, actor.UserID.String())
		c.Set(ctxUserRoles, actor.Roles)
		c.Request = c.Request.WithContext(authz.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// Identify validates tokenString and resolves its actor.
func (a *Authenticator) Identify(ctx context.Context, tokenString string) (authz.Actor, error) {
	claims, err := a.verifier.Verify(tokenString)
	if err != nil {
		return authz.Actor{}, err
	}
	roles, err := a.resolver.Resolve(claims.RawRole)
	if err != nil {
		return authz.Actor{}, err
	}
	if a.sessions != nil {
		if err := a.sessions.ValidateSession(ctx, claims.UserID, tokenString); err != nil {
			return authz.Actor{}, err
		}
	}
	return authz.Actor{UserID: claims.UserID, Email: claims.Email, Roles: roles}, nil
}

// Authorize requires the authenticated actor to hold action on resource.
func Authorize(decider Decider, action authz.Action, resource authz.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := authz.ActorFrom(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if err := decider.Decide(actor.Roles, action, resource); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// abortWithError maps authentication failures to 401 and everything else
// through the error taxonomy.
func abortWithError(c *gin.Context, err error) {
	if errors.Is(err, credential.ErrInvalidToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return
	}
	if errors.Is(err, credential.ErrSessionRevoked) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Session has been revoked"))
		return
	}
	status, body := response.FromError(err)
	c.AbortWithStatusJSON(status, body)
}
