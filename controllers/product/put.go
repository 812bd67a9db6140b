package productcontroller

import (
	"context"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// updateProduct applies a partial update. The slug follows the name, and
// images, variants and categories are only replaced when supplied.
func updateProduct(ctx context.Context, db *gorm.DB, id string, in ProductInput) (*models.Product, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProduct(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name != p.Name {
				slug, err := uniqueSlug(tx, "products", models.Slugify(name), p.ID)
				if err != nil {
					return err
				}
				updates["name"] = name
				updates["slug"] = slug
			}
		}
		if in.SKU != nil {
			sku := strings.TrimSpace(*in.SKU)
			if sku != p.SKU {
				if err := ensureUniqueSKU(tx, sku, p.ID); err != nil {
					return err
				}
				updates["sku"] = sku
			}
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Price != nil {
			updates["price"] = in.Price.Round(2)
		}
		if in.Stock != nil {
			updates["stock"] = *in.Stock
		}
		if in.Tags != nil {
			updates["tags"] = cleanList(*in.Tags)
		}
		if in.Materials != nil {
			updates["materials"] = cleanList(*in.Materials)
		}
		if in.IsPublished != nil {
			updates["is_published"] = *in.IsPublished
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.CategoryIDs != nil {
			categories, err := loadCategories(tx, *in.CategoryIDs)
			if err != nil {
				return err
			}
			if err := setCategories(tx, p, categories); err != nil {
				return err
			}
		}
		if in.Images != nil {
			if err := replaceImages(tx, p.ID, *in.Images); err != nil {
				return err
			}
		}
		if in.Variants != nil {
			if err := replaceVariants(tx, p.ID, *in.Variants); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loadProduct(db.WithContext(ctx), id)
}

// PUT /api/products/:id and /api/products/admin/:id
func UpdateProduct(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ProductInput
		files, err := bindBody(c, &in, "images")
		if err != nil {
			c.Error(err)
			return
		}
		// Uploaded files are added to the current images unless the body
		// sends its own list.
		if len(files) > 0 && in.Images == nil {
			current, err := loadProduct(db.WithContext(c.Request.Context()), c.Param("id"))
			if err != nil {
				c.Error(err)
				return
			}
			images := make([]models.ImageInput, 0, len(current.Images))
			for _, img := range current.Images {
				images = append(images, models.ImageInput{URL: img.URL, AltText: img.AltText})
			}
			in.Images = &images
		}

		saved, err := attachUploads(store, &in, files)
		if err != nil {
			c.Error(err)
			return
		}
		product, err := updateProduct(c.Request.Context(), db, c.Param("id"), in)
		if err != nil {
			discardUploads(store, saved)
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}
