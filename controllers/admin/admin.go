package admincontroller

import (
	"context"
	"log"
	"net/http"

	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// revenueStatuses are the orders counted as earned.
var revenueStatuses = []models.OrderStatus{
	models.OrderStatusPaid,
	models.OrderStatusShipped,
	models.OrderStatusDelivered,
}

type Stats struct {
	Products          int64                        `json:"products"`
	PublishedProducts int64                        `json:"publishedProducts"`
	LowStockProducts  int64                        `json:"lowStockProducts"`
	Categories        int64                        `json:"categories"`
	Users             int64                        `json:"users"`
	Orders            int64                        `json:"orders"`
	OrdersByStatus    map[models.OrderStatus]int64 `json:"ordersByStatus"`
	Revenue           decimal.Decimal              `json:"revenue"`
	PendingRequests   int64                        `json:"pendingCustomRequests"`
	ActiveSubscribers int64                        `json:"activeSubscribers"`
	BlogPosts         int64                        `json:"blogPosts"`
}

type ProductSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Views int             `json:"views"`
}

type Overview struct {
	RecentOrders     []models.Order   `json:"recentOrders"`
	RecentUsers      []models.User    `json:"recentUsers"`
	MostViewed       []ProductSummary `json:"mostViewedProducts"`
	LowStockProducts []ProductSummary `json:"lowStockProducts"`
}

const overviewSize = 5

func collectStats(ctx context.Context, db *gorm.DB, lowStock int) (*Stats, error) {
	db = db.WithContext(ctx)
	stats := &Stats{OrdersByStatus: map[models.OrderStatus]int64{}, Revenue: decimal.Zero}

	counts := []struct {
		dst *int64
		q   *gorm.DB
	}{
		{&stats.Products, db.Model(&models.Product{})},
		{&stats.PublishedProducts, db.Model(&models.Product{}).Where("is_published = ?", true)},
		{&stats.LowStockProducts, db.Model(&models.Product{}).Where("stock <= ?", lowStock)},
		{&stats.Categories, db.Model(&models.Category{})},
		{&stats.Users, db.Model(&models.User{})},
		{&stats.Orders, db.Model(&models.Order{})},
		{&stats.PendingRequests, db.Model(&models.CustomRequest{}).
			Where("status IN ?", []models.RequestStatus{models.RequestStatusNew, models.RequestStatusInReview})},
		{&stats.ActiveSubscribers, db.Model(&models.NewsletterSubscription{}).Where("active = ?", true)},
		{&stats.BlogPosts, db.Model(&models.BlogPost{})},
	}
	for _, c := range counts {
		if err := c.q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var byStatus []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, s := range models.OrderStatuses {
		stats.OrdersByStatus[s] = 0
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	var revenue struct{ Total decimal.NullDecimal }
	if err := db.Model(&models.Order{}).Where("status IN ?", revenueStatuses).
		Select("SUM(total_amount) AS total").Scan(&revenue).Error; err != nil {
		return nil, err
	}
	if revenue.Total.Valid {
		stats.Revenue = revenue.Total.Decimal
	}
	return stats, nil
}

func collectOverview(ctx context.Context, db *gorm.DB, lowStock int) (*Overview, error) {
	db = db.WithContext(ctx)
	ov := &Overview{}

	if err := db.Preload("Items").Preload("User").Order("created_at DESC").Limit(overviewSize).Find(&ov.RecentOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at DESC").Limit(overviewSize).Find(&ov.RecentUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Order("views DESC").Order("name").Limit(overviewSize).Find(&ov.MostViewed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Where("stock <= ?", lowStock).
		Order("stock").Order("name").Limit(overviewSize).Find(&ov.LowStockProducts).Error; err != nil {
		return nil, err
	}
	if ov.RecentOrders == nil {
		ov.RecentOrders = []models.Order{}
	}
	if ov.RecentUsers == nil {
		ov.RecentUsers = []models.User{}
	}
	if ov.MostViewed == nil {
		ov.MostViewed = []ProductSummary{}
	}
	if ov.LowStockProducts == nil {
		ov.LowStockProducts = []ProductSummary{}
	}
	return ov, nil
}

// GET /api/admin/stats
func GetStats(db *gorm.DB, lowStock int) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := collectStats(c.Request.Context(), db, lowStock)
		if err != nil {
			log.Println("❌ Failed to compute dashboard stats:", err)
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GET /api/admin/overview
func GetOverview(db *gorm.DB, lowStock int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ov, err := collectOverview(c.Request.Context(), db, lowStock)
		if err != nil {
			log.Println("❌ Failed to build dashboard overview:", err)
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, ov)
	}
}
