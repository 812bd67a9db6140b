package productcontroller

import (
	"context"
	"errors"
	"net/http"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// getPublishedProduct finds a published product by id or slug and counts
// the view.
func getPublishedProduct(ctx context.Context, db *gorm.DB, idOrSlug string) (*models.Product, error) {
	q := withDetails(db.WithContext(ctx)).Where("is_published = ?", true)
	if models.IsValidID(idOrSlug) {
		q = q.Where("id = ? OR slug = ?", idOrSlug, idOrSlug)
	} else {
		q = q.Where("slug = ?", idOrSlug)
	}

	var p models.Product
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product not found")
		}
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return nil, err
	}
	p.Views++
	return &p, nil
}

// GET /api/products/:id (id or slug)
func GetProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := getPublishedProduct(c.Request.Context(), db, c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetProductByID returns any product, published or not, without counting
// a view.
// GET /api/products/admin/:id
func GetProductByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := loadProduct(db.WithContext(c.Request.Context()), c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
