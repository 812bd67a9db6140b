package routes

import (
	"github.com/gin-gonic/gin"

	admincontroller "github.com/AymenMB/wud-sub001/controllers/admin"
	usercontroller "github.com/AymenMB/wud-sub001/controllers/user"
	"github.com/AymenMB/wud-sub001/middleware"
)

// SetupAdminRoutes registers all "/api/admin/*" endpoints. A valid X-API-KEY
// authenticates as the service admin, otherwise an admin JWT is required.
func SetupAdminRoutes(api *gin.RouterGroup, deps Dependencies) {
	db := deps.DB
	lowStock := deps.Config.LowStockThreshold

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAPIKey(deps.Config.AdminAPIKey), deps.requireUser(), middleware.RequireAdmin())
	{
		// ─────────── Dashboard ───────────
		adminGroup.GET("/stats", admincontroller.GetStats(db, lowStock))
		adminGroup.GET("/overview", admincontroller.GetOverview(db, lowStock))

		// ─────────── User Management ───────────
		adminGroup.GET("/users", usercontroller.ListUsers(db))
		adminGroup.GET("/users/:id", usercontroller.GetUser(db))
		adminGroup.PUT("/users/:id/role", usercontroller.UpdateUserRole(db))
	}
}
