package routes

import (
	"github.com/gin-gonic/gin"

	cartcontroller "github.com/AymenMB/wud-sub001/controllers/cart"
	wishlistcontroller "github.com/AymenMB/wud-sub001/controllers/wishlist"
)

// SetupUserRoutes registers the per-user cart and wishlist. Requires JWT.
func SetupUserRoutes(api *gin.RouterGroup, deps Dependencies) {
	db := deps.DB

	cart := api.Group("/cart", deps.requireUser())
	{
		cart.GET("", cartcontroller.GetCart(db))
		cart.DELETE("", cartcontroller.ClearCart(db))
		cart.POST("/items", cartcontroller.AddCartItem(db))
		cart.PUT("/items", cartcontroller.UpdateCartItem(db))
		cart.DELETE("/items/:productId", cartcontroller.DeleteCartItem(db)) // ?variantName=&variantValue=
	}

	wishlist := api.Group("/wishlist", deps.requireUser())
	{
		wishlist.GET("", wishlistcontroller.GetWishlist(db))
		wishlist.DELETE("", wishlistcontroller.ClearWishlist(db))
		wishlist.POST("/items", wishlistcontroller.AddWishlistItem(db))
		wishlist.DELETE("/items/:productId", wishlistcontroller.DeleteWishlistItem(db))
	}
}
