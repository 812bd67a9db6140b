package productcontroller

import (
	"context"
	"net/http"

	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// deleteProduct removes the product with its images, variants and category
// links. Cart and wishlist lines pointing at it are left in place and
// skipped when read.
func deleteProduct(ctx context.Context, db *gorm.DB, id string) (*models.Product, error) {
	var deleted *models.Product
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProduct(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(p).Association("Categories").Clear(); err != nil {
			return err
		}
		if err := deleteVariants(tx, p.ID); err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.ProductImage{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Product{}, "id = ?", p.ID).Error; err != nil {
			return err
		}
		deleted = p
		return nil
	})
	return deleted, err
}

// DELETE /api/products/:id and /api/products/admin/:id
func DeleteProduct(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := deleteProduct(c.Request.Context(), db, c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		for _, img := range product.Images {
			store.Remove(img.URL)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully", "id": product.ID})
	}
}
