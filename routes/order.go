package routes

import (
	"github.com/gin-gonic/gin"

	ordercontroller "github.com/AymenMB/wud-sub001/controllers/order"
	"github.com/AymenMB/wud-sub001/middleware"
)

// SetupOrderRoutes registers checkout, order history and the admin order views.
func SetupOrderRoutes(api *gin.RouterGroup, deps Dependencies) {
	db, hub := deps.DB, deps.Orders

	orders := api.Group("/orders", deps.requireUser())
	{
		orders.POST("", ordercontroller.PlaceOrder(db, deps.Config.Shipping, hub))
		orders.GET("/myorders", ordercontroller.ListMyOrders(db))
		orders.GET("/:id", ordercontroller.GetOrder(db)) // owner or admin

		admin := orders.Group("/admin", middleware.RequireAdmin())
		{
			admin.GET("/allorders", ordercontroller.ListAllOrders(db))
			admin.PUT("/:id/status", ordercontroller.UpdateOrderStatus(db, hub))
			// real-time feed of created and updated orders
			admin.GET("/ws", hub.Handler())
		}
	}
}
