package routes

import (
	"github.com/gin-gonic/gin"

	productcontroller "github.com/AymenMB/wud-sub001/controllers/product"
)

// SetupCatalogRoutes registers "/api/products/*" and "/api/categories/*".
func SetupCatalogRoutes(api *gin.RouterGroup, deps Dependencies) {
	db, store := deps.DB, deps.Uploads
	admin := deps.adminOnly()

	products := api.Group("/products")
	{
		products.GET("", productcontroller.GetProducts(db))
		products.GET("/:id", productcontroller.GetProduct(db)) // id or slug

		products.POST("", deps.asAdmin(productcontroller.CreateProduct(db, store))...)
		products.PUT("/:id", deps.asAdmin(productcontroller.UpdateProduct(db, store))...)
		products.DELETE("/:id", deps.asAdmin(productcontroller.DeleteProduct(db, store))...)

		productAdmin := products.Group("/admin", admin...)
		{
			productAdmin.GET("", productcontroller.GetAdminProducts(db))
			productAdmin.GET("/export", productcontroller.ExportProductsToExcel(db))
			productAdmin.POST("/import", productcontroller.ImportProductsFromExcel(db))
			productAdmin.GET("/:id", productcontroller.GetProductByID(db))
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(db, store))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(db, store))
		}
	}

	categories := api.Group("/categories")
	{
		categories.GET("", productcontroller.GetCategories(db))
		categories.GET("/:id", productcontroller.GetCategory(db)) // id or slug

		categories.POST("", deps.asAdmin(productcontroller.CreateCategory(db, store))...)
		categories.PUT("/:id", deps.asAdmin(productcontroller.UpdateCategory(db, store))...)
		categories.DELETE("/:id", deps.asAdmin(productcontroller.DeleteCategory(db, store))...)
	}
}
