package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AymenMB/wud-sub001/auth"
)

// SetupAuthRoutes registers all "/api/auth/*" endpoints.
func SetupAuthRoutes(api *gin.RouterGroup, deps Dependencies) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", auth.Register(deps.DB, deps.Tokens))
		authGroup.POST("/login", auth.Login(deps.DB, deps.Tokens))
		authGroup.POST("/google", auth.GoogleLogin(deps.DB, deps.Tokens, deps.Google))

		profile := authGroup.Group("/profile", deps.requireUser())
		profile.GET("", auth.GetProfile(deps.DB))
		profile.PUT("", auth.UpdateProfileHandler(deps.DB))
	}
}
