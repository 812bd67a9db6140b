package middleware

import (
	"crypto/subtle"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
)

// AdminAPIKey grants a service admin identity to requests whose X-API-KEY
// matches key. Requests without the header fall through to token auth; an
// empty key disables the gate.
func AdminAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-KEY")
		if key == "" || apiKey == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) != 1 {
			c.Error(apperrors.Unauthorized("invalid or missing API key"))
			c.Abort()
			return
		}
		auth.SetIdentity(c, auth.Identity{Role: models.RoleAdmin, Service: true})
		c.Next()
	}
}
