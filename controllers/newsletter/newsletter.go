package newslettercontroller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var subscriptionPageOptions = pagination.Options{
	DefaultPageSize: 50,
	MaxPageSize:     500,
	DefaultSort:     pagination.Sort{Field: "subscribed_at", Desc: true},
	Fields: map[string]string{
		"email":        "email",
		"subscribedAt": "subscribed_at",
	},
}

type EmailInput struct {
	Email string `json:"email" binding:"required,email"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// subscribe is idempotent and reactivates a previous subscription.
func subscribe(ctx context.Context, db *gorm.DB, email string) (*models.NewsletterSubscription, bool, error) {
	email = normalizeEmail(email)
	var sub models.NewsletterSubscription
	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&sub).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			sub = models.NewsletterSubscription{Email: email, Active: true, SubscribedAt: time.Now()}
			created = true
			return tx.Create(&sub).Error
		case err != nil:
			return err
		case sub.Active:
			return nil
		}
		sub.Active = true
		sub.SubscribedAt = time.Now()
		sub.UnsubscribedAt = nil
		return tx.Model(&models.NewsletterSubscription{}).Where("id = ?", sub.ID).
			Updates(map[string]interface{}{"active": true, "subscribed_at": sub.SubscribedAt, "unsubscribed_at": nil}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &sub, created, nil
}

// unsubscribe succeeds for unknown addresses so the endpoint does not reveal
// who is subscribed.
func unsubscribe(ctx context.Context, db *gorm.DB, email string) error {
	now := time.Now()
	return db.WithContext(ctx).Model(&models.NewsletterSubscription{}).
		Where("email = ? AND active = ?", normalizeEmail(email), true).
		Updates(map[string]interface{}{"active": false, "unsubscribed_at": now}).Error
}

func listSubscriptions(ctx context.Context, db *gorm.DB, active *bool, p pagination.Params) (pagination.Page[models.NewsletterSubscription], error) {
	q := db.WithContext(ctx).Model(&models.NewsletterSubscription{})
	if active != nil {
		q = q.Where("active = ?", *active)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.NewsletterSubscription]{}, err
	}
	var subs []models.NewsletterSubscription
	if err := p.Apply(q).Find(&subs).Error; err != nil {
		return pagination.Page[models.NewsletterSubscription]{}, err
	}
	return pagination.NewPage(subs, p, total), nil
}

func deleteSubscription(ctx context.Context, db *gorm.DB, id string) error {
	if !models.IsValidID(id) {
		return apperrors.MalformedID("subscription")
	}
	res := db.WithContext(ctx).Delete(&models.NewsletterSubscription{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("subscription not found")
	}
	return nil
}

// POST /api/newsletter/subscribe
func Subscribe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in EmailInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		sub, created, err := subscribe(c.Request.Context(), db, in.Email)
		if err != nil {
			c.Error(err)
			return
		}
		status := http.StatusOK
		if created {
			log.Printf("📝 New newsletter subscriber: %s", sub.Email)
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"message": "Subscribed to the newsletter", "subscription": sub})
	}
}

// POST /api/newsletter/unsubscribe
func Unsubscribe(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in EmailInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		if err := unsubscribe(c.Request.Context(), db, in.Email); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed from the newsletter"})
	}
}

// GET /api/newsletter/admin/subscriptions?active=true|false
func ListSubscriptions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var active *bool
		switch strings.ToLower(c.Query("active")) {
		case "":
		case "true":
			v := true
			active = &v
		case "false":
			v := false
			active = &v
		default:
			c.Error(apperrors.Invalid("active", "must be true or false"))
			return
		}
		params, err := pagination.Parse(c, subscriptionPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listSubscriptions(c.Request.Context(), db, active, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// DELETE /api/newsletter/admin/subscriptions/:id
func DeleteSubscription(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deleteSubscription(c.Request.Context(), db, id); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Subscription deleted", "id": id})
	}
}
