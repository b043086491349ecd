package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/services"
	"github.com/ohs25-2-misoten/agaru-up-api/shared/auth"
)

// Context keys set by Auth.
const (
	ContextKeyDeviceID = "deviceID"
	ContextKeyUser     = "user"
)

// Auth requires a valid bearer token and exposes its claims on the context.
func Auth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
				"code":  services.ErrCodeUnauthorized,
				"type":  services.ErrTypeUnauthorized,
			})
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
				"code":  services.ErrCodeUnauthorized,
				"type":  services.ErrTypeUnauthorized,
			})
			return
		}

		c.Set(ContextKeyDeviceID, claims.DeviceID)
		c.Set(ContextKeyUser, claims.User)
		c.Next()
	}
}
