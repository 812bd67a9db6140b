package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/config"
	ordercontroller "github.com/AymenMB/wud-sub001/controllers/order"
	"github.com/AymenMB/wud-sub001/middleware"
	"github.com/AymenMB/wud-sub001/uploads"
)

// Dependencies carries everything the route groups hand to their handlers.
// Google may be nil, in which case Google sign-in answers 503.
type Dependencies struct {
	DB      *gorm.DB
	Config  config.Config
	Tokens  *auth.TokenIssuer
	Uploads *uploads.Store
	Orders  *ordercontroller.Hub
	Google  auth.GoogleVerifier
}

func (d Dependencies) requireUser() gin.HandlerFunc {
	return middleware.RequireAuth(d.DB, d.Tokens)
}

func (d Dependencies) adminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{d.requireUser(), middleware.RequireAdmin()}
}

// asAdmin guards a single admin route that lives inside a public group.
func (d Dependencies) asAdmin(h gin.HandlerFunc) []gin.HandlerFunc {
	return append(d.adminOnly(), h)
}

// SetupRoutes is the single entry-point that wires every /api group.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	middleware.RegisterJSONTagNames()

	api := r.Group("/api")

	// 1️⃣ Public auth routes, profile behind JWT
	SetupAuthRoutes(api, deps)

	// 2️⃣ Catalog: public reads, admin writes
	SetupCatalogRoutes(api, deps)

	// 3️⃣ Cart and wishlist (JWT)
	SetupUserRoutes(api, deps)

	// 4️⃣ Checkout, order history and the admin order feed
	SetupOrderRoutes(api, deps)

	// 5️⃣ Blog, custom requests, newsletter
	SetupContentRoutes(api, deps)

	// 6️⃣ Dashboard and user management (API key or admin JWT)
	SetupAdminRoutes(api, deps)
}
