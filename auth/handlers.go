package auth

import (
	"net/http"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func respondWithToken(c *gin.Context, tokens *TokenIssuer, status int, user *models.User) {
	token, err := tokens.Issue(user.ID, user.Role)
	if err != nil {
		c.Error(apperrors.Internal("token generation failed", err))
		return
	}
	c.JSON(status, gin.H{"token": token, "user": user})
}

// POST /api/auth/register
func Register(db *gorm.DB, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RegisterInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		user, err := RegisterUser(c.Request.Context(), db, in)
		if err != nil {
			c.Error(err)
			return
		}
		respondWithToken(c, tokens, http.StatusCreated, user)
	}
}

// POST /api/auth/login
func Login(db *gorm.DB, tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in LoginInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		user, err := Authenticate(c.Request.Context(), db, in.Email, in.Password)
		if err != nil {
			c.Error(err)
			return
		}
		respondWithToken(c, tokens, http.StatusOK, user)
	}
}

// GET /api/auth/profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := LoadUser(c.Request.Context(), db, CurrentIdentity(c).UserID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// PUT /api/auth/profile
func UpdateProfileHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ProfileInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		user, err := UpdateProfile(c.Request.Context(), db, CurrentIdentity(c).UserID, in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
