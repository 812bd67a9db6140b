package productcontroller

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func createProduct(ctx context.Context, db *gorm.DB, in ProductInput) (*models.Product, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	var id string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sku := strings.TrimSpace(*in.SKU)
		if err := ensureUniqueSKU(tx, sku, ""); err != nil {
			return err
		}

		var categories []models.Category
		if in.CategoryIDs != nil {
			var err error
			if categories, err = loadCategories(tx, *in.CategoryIDs); err != nil {
				return err
			}
		}

		name := strings.TrimSpace(*in.Name)
		slug, err := uniqueSlug(tx, "products", models.Slugify(name), "")
		if err != nil {
			return err
		}

		p := models.Product{
			Name:      name,
			Slug:      slug,
			SKU:       sku,
			Price:     in.Price.Round(2),
			Tags:      models.StringList{},
			Materials: models.StringList{},
		}
		if in.Description != nil {
			p.Description = strings.TrimSpace(*in.Description)
		}
		if in.Stock != nil {
			p.Stock = *in.Stock
		}
		if in.Tags != nil {
			p.Tags = cleanList(*in.Tags)
		}
		if in.Materials != nil {
			p.Materials = cleanList(*in.Materials)
		}
		if in.IsPublished != nil {
			p.IsPublished = *in.IsPublished
		}

		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("sku", "sku already exists")
			}
			return err
		}
		if len(categories) > 0 {
			if err := setCategories(tx, &p, categories); err != nil {
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
		id = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loadProduct(db.WithContext(ctx), id)
}

// attachUploads stores posted image files and appends their urls to the
// input's image list.
func attachUploads(store *uploads.Store, in *ProductInput, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	urls, err := store.SaveImages("products", files)
	if err != nil {
		return nil, err
	}
	var images []models.ImageInput
	if in.Images != nil {
		images = append(images, *in.Images...)
	}
	for _, u := range urls {
		images = append(images, models.ImageInput{URL: u})
	}
	in.Images = &images
	return urls, nil
}

func discardUploads(store *uploads.Store, urls []string) {
	for _, u := range urls {
		store.Remove(u)
	}
}

// CreateProduct accepts JSON, or multipart with a "data" JSON field and
// "images" files.
// POST /api/products
func CreateProduct(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ProductInput
		files, err := bindBody(c, &in, "images")
		if err != nil {
			c.Error(err)
			return
		}
		saved, err := attachUploads(store, &in, files)
		if err != nil {
			c.Error(err)
			return
		}
		product, err := createProduct(c.Request.Context(), db, in)
		if err != nil {
			discardUploads(store, saved)
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}
