package middleware

import (
	"errors"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	// Browsers cannot set headers on a websocket handshake.
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

// resolveIdentity verifies the bearer token and loads the user it names.
// The role is read from the database so demotions apply immediately.
func resolveIdentity(c *gin.Context, db *gorm.DB, tokens *auth.TokenIssuer) (auth.Identity, error) {
	raw := bearerToken(c)
	if raw == "" {
		return auth.Identity{}, apperrors.Unauthorized("no token")
	}
	claims, err := tokens.Parse(raw)
	if errors.Is(err, auth.ErrTokenExpired) {
		return auth.Identity{}, apperrors.Unauthorized("token expired")
	}
	if err != nil {
		return auth.Identity{}, apperrors.Unauthorized("invalid token")
	}

	var user models.User
	err = db.WithContext(c.Request.Context()).Select("id", "email", "role").First(&user, "id = ?", claims.Subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.Identity{}, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return auth.Identity{}, err
	}
	return auth.Identity{UserID: user.ID, Role: user.Role, Email: user.Email}, nil
}

// RequireAuth rejects the request with 401 unless it carries a valid token.
func RequireAuth(db *gorm.DB, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := auth.IdentityFrom(c); ok {
			c.Next()
			return
		}
		id, err := resolveIdentity(c, db, tokens)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		auth.SetIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth attaches the identity when the token is valid and carries on
// anonymously otherwise.
func OptionalAuth(db *gorm.DB, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := resolveIdentity(c, db, tokens); err == nil {
			auth.SetIdentity(c, id)
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth or AdminAPIKey.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c)
		if !ok {
			c.Error(apperrors.Unauthorized("no token"))
			c.Abort()
			return
		}
		if !id.IsAdmin() {
			c.Error(apperrors.Forbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
