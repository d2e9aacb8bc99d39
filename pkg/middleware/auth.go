package middleware

import (
	"strings"

	"realtime-chat-demo/backend/pkg/errors"
	"realtime-chat-demo/backend/pkg/jwt"
	"realtime-chat-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization is required"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.Warn("Invalid JWT token", "error", err.Error())
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		// Add claims to context
		c.Set("claims", claims)
		c.Set("userId", claims.UserID)

		c.Next()
	}
}

// bearerToken extracts the JWT from the Authorization header, falling back
// to the token query parameter for websocket upgrades, where browsers
// cannot set custom headers.
func bearerToken(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if token != "" {
		return strings.TrimPrefix(token, "Bearer ")
	}
	return c.Query("token")
}
