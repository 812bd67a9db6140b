package ordercontroller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/config"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var orderPageOptions = pagination.Options{
	DefaultPageSize: 10,
	MaxPageSize:     100,
	DefaultSort:     pagination.Sort{Field: "created_at", Desc: true},
	Fields: map[string]string{
		"createdAt":   "created_at",
		"totalAmount": "total_amount",
		"status":      "status",
		"orderNumber": "order_number",
	},
}

type StatusInput struct {
	Status        string  `json:"status" binding:"required"`
	PaymentStatus *string `json:"paymentStatus"`
	AdminNotes    *string `json:"adminNotes"`
}

// AdminOrderQuery filters the admin listing. Search matches the order
// number or the customer's email.
type AdminOrderQuery struct {
	Status string
	UserID string
	Search string
}

func parseStatusFilter(raw string) (models.OrderStatus, error) {
	if raw == "" {
		return "", nil
	}
	status, ok := models.ParseOrderStatus(raw)
	if !ok {
		return "", apperrors.Invalid("status", "is not a valid order status")
	}
	return status, nil
}

func loadOrder(db *gorm.DB, id string) (*models.Order, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("order")
	}
	var order models.Order
	err := db.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("created_at").Order("id") }).
		Preload("User").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func listMyOrders(ctx context.Context, db *gorm.DB, userID string, status models.OrderStatus, p pagination.Params) (pagination.Page[models.Order], error) {
	q := db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	var orders []models.Order
	if err := p.Apply(q.Preload("Items")).Find(&orders).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.NewPage(orders, p, total), nil
}

// getOrder is readable by its owner and by admins.
func getOrder(ctx context.Context, db *gorm.DB, id string, who auth.Identity) (*models.Order, error) {
	order, err := loadOrder(db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if order.UserID != who.UserID && !who.IsAdmin() {
		return nil, apperrors.Forbidden("not authorized to view this order")
	}
	return order, nil
}

func listAllOrders(ctx context.Context, db *gorm.DB, f AdminOrderQuery, p pagination.Params) (pagination.Page[models.Order], error) {
	q := db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		emails := db.Session(&gorm.Session{NewDB: true}).Model(&models.User{}).
			Select("id").Where("LOWER(email) LIKE ?", like)
		q = q.Where("LOWER(order_number) LIKE ? OR user_id IN (?)", like, emails)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	var orders []models.Order
	if err := p.Apply(q.Preload("Items").Preload("User")).Find(&orders).Error; err != nil {
		return pagination.Page[models.Order]{}, err
	}
	return pagination.NewPage(orders, p, total), nil
}

// restock returns every line of the order to the location it was taken
// from. Locations that no longer exist are skipped.
func restock(tx *gorm.DB, order *models.Order) error {
	for _, item := range order.Items {
		var res *gorm.DB
		if item.StockOptionID != nil {
			res = tx.Model(&models.VariantOption{}).
				Where("id = ? AND stock IS NOT NULL", *item.StockOptionID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		} else {
			res = tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity))
		}
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("⚠️ Restock skipped for order %s: %q is gone", order.OrderNumber, item.Name)
		}
	}
	return nil
}

// updateOrderStatus applies an admin transition. Cancelling or refunding
// an undelivered order puts its stock back.
func updateOrderStatus(ctx context.Context, db *gorm.DB, id string, in StatusInput) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(in.Status)
	if !ok {
		return nil, apperrors.Invalid("status", "is not a valid order status")
	}
	var payment models.PaymentStatus
	if in.PaymentStatus != nil {
		if payment, ok = models.ParsePaymentStatus(*in.PaymentStatus); !ok {
			return nil, apperrors.Invalid("paymentStatus", "is not a valid payment status")
		}
	}

	var updated *models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(next) {
			return apperrors.Invalid("status", fmt.Sprintf("cannot change from %s to %s", order.Status, next))
		}

		updates := map[string]interface{}{}
		if next != order.Status {
			if order.Status.Restocks(next) {
				if err := restock(tx, order); err != nil {
					return err
				}
			}
			updates["status"] = next
			if next == models.OrderStatusPaid && payment == "" {
				payment = models.PaymentStatusSucceeded
			}
		}
		if payment != "" {
			updates["payment_status"] = payment
		}
		if in.AdminNotes != nil {
			updates["admin_notes"] = strings.TrimSpace(*in.AdminNotes)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		updated, err = loadOrder(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// POST /api/orders
func PlaceOrder(db *gorm.DB, rates config.ShippingRates, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in CheckoutInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		order, err := placeOrder(c.Request.Context(), db, rates, auth.CurrentIdentity(c).UserID, in)
		if err != nil {
			c.Error(err)
			return
		}
		log.Printf("📝 Order %s placed (%s)", order.OrderNumber, order.TotalAmount.StringFixed(2))
		hub.Broadcast(EventOrderCreated, order)
		c.JSON(http.StatusCreated, order)
	}
}

// GET /api/orders/myorders?status=&page=&pageSize=
func ListMyOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := parseStatusFilter(c.Query("status"))
		if err != nil {
			c.Error(err)
			return
		}
		params, err := pagination.Parse(c, orderPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listMyOrders(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, status, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GET /api/orders/:id
func GetOrder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := getOrder(c.Request.Context(), db, c.Param("id"), auth.CurrentIdentity(c))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /api/orders/admin/allorders?status=&user=&search=
func ListAllOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := parseStatusFilter(c.Query("status"))
		if err != nil {
			c.Error(err)
			return
		}
		params, err := pagination.Parse(c, orderPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		f := AdminOrderQuery{
			Status: string(status),
			UserID: strings.TrimSpace(c.Query("user")),
			Search: strings.TrimSpace(c.Query("search")),
		}
		page, err := listAllOrders(c.Request.Context(), db, f, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// PUT /api/orders/admin/:id/status
func UpdateOrderStatus(db *gorm.DB, hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in StatusInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		order, err := updateOrderStatus(c.Request.Context(), db, c.Param("id"), in)
		if err != nil {
			c.Error(err)
			return
		}
		hub.Broadcast(EventOrderUpdated, order)
		c.JSON(http.StatusOK, order)
	}
}
