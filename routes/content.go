package routes

import (
	"github.com/gin-gonic/gin"

	blogcontroller "github.com/AymenMB/wud-sub001/controllers/blog"
	customrequestcontroller "github.com/AymenMB/wud-sub001/controllers/customrequest"
	newslettercontroller "github.com/AymenMB/wud-sub001/controllers/newsletter"
	"github.com/AymenMB/wud-sub001/middleware"
)

// SetupContentRoutes registers the blog, custom request and newsletter groups.
func SetupContentRoutes(api *gin.RouterGroup, deps Dependencies) {
	db := deps.DB
	admin := deps.adminOnly()

	blog := api.Group("/blog")
	{
		blog.GET("/posts", blogcontroller.GetPosts(db))
		blog.GET("/posts/:slug", blogcontroller.GetPost(db))

		posts := blog.Group("/admin/posts", admin...)
		posts.GET("", blogcontroller.GetAdminPosts(db))
		posts.POST("", blogcontroller.CreatePost(db))
		posts.GET("/:id", blogcontroller.GetAdminPost(db))
		posts.PUT("/:id", blogcontroller.UpdatePost(db))
		posts.DELETE("/:id", blogcontroller.DeletePost(db))
	}

	requests := api.Group("/custom-requests")
	{
		// guests may submit; a valid token links the request to the account
		requests.POST("", middleware.OptionalAuth(db, deps.Tokens), customrequestcontroller.CreateCustomRequest(db))

		manage := requests.Group("/admin", admin...)
		manage.GET("", customrequestcontroller.ListCustomRequests(db))
		manage.GET("/:id", customrequestcontroller.GetCustomRequest(db))
		manage.PUT("/:id", customrequestcontroller.UpdateCustomRequest(db))
		manage.DELETE("/:id", customrequestcontroller.DeleteCustomRequest(db))
	}

	newsletter := api.Group("/newsletter")
	{
		newsletter.POST("/subscribe", newslettercontroller.Subscribe(db))
		newsletter.POST("/unsubscribe", newslettercontroller.Unsubscribe(db))

		subs := newsletter.Group("/admin/subscriptions", admin...)
		subs.GET("", newslettercontroller.ListSubscriptions(db))
		subs.DELETE("/:id", newslettercontroller.DeleteSubscription(db))
	}
}
