package security

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sqlpanel/pkg/response"
)

const (
	contextUserID   = "user_id"
	contextUsername = "username"

	// Used when authentication is disabled.
	headerUserID   = "X-User-ID"
	headerUsername = "X-User-Name"

	AnonymousUserID = "anonymous"
)

// Caller identifies who issued a request.
type Caller struct {
	ID          string
	DisplayName string
}

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	jwtManager *JWTManager
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtManager *JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth creates a middleware that requires authentication
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				err.Error(),
				response.CorrelationID(c),
			))
			return
		}

		claims, err := am.jwtManager.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.UnauthorizedResponse(
				"Invalid or expired token",
				response.CorrelationID(c),
			))
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextUsername, claims.Username)
		c.Next()
	}
}

// TrustHeaders identifies callers from plain headers. It is installed instead
// of RequireAuth when authentication is switched off.
func TrustHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(headerUserID)
		if userID == "" {
			userID = AnonymousUserID
		}
		c.Set(contextUserID, userID)
		c.Set(contextUsername, c.GetHeader(headerUsername))
		c.Next()
	}
}

// GetCaller returns the identity stored by one of the middlewares above.
func GetCaller(c *gin.Context) Caller {
	caller := Caller{ID: AnonymousUserID}
	if id := c.GetString(contextUserID); id != "" {
		caller.ID = id
	}
	caller.DisplayName = c.GetString(contextUsername)
	if caller.DisplayName == "" {
		caller.DisplayName = caller.ID
	}
	return caller
}
