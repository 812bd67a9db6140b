package productcontroller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"gorm.io/gorm"
)

// withDetails preloads everything a product response shows, in display order.
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Variants.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func loadProduct(db *gorm.DB, id string) (*models.Product, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("product")
	}
	var p models.Product
	if err := withDetails(db).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("product not found")
		}
		return nil, err
	}
	return &p, nil
}

// uniqueSlug returns base, or base suffixed with -2, -3... when another row
// of table already holds it.
func uniqueSlug(tx *gorm.DB, table, base, excludeID string) (string, error) {
	slug := base
	for n := 2; ; n++ {
		q := tx.Table(table).Where("slug = ?", slug)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		var count int64
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func ensureUniqueSKU(tx *gorm.DB, sku, excludeID string) error {
	q := tx.Model(&models.Product{}).Where("sku = ?", sku)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.Conflict("sku", fmt.Sprintf("sku %q already exists", sku))
	}
	return nil
}

// loadCategories resolves ids and fails when any of them is unknown.
func loadCategories(tx *gorm.DB, ids []string) ([]models.Category, error) {
	unique := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		if !models.IsValidID(id) {
			return nil, apperrors.Invalid("categories", fmt.Sprintf("%q is not a valid category id", id))
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	var categories []models.Category
	if err := tx.Where("id IN ?", unique).Find(&categories).Error; err != nil {
		return nil, err
	}
	if len(categories) != len(unique) {
		return nil, apperrors.Invalid("categories", fmt.Sprintf("%d of %d categories do not exist", len(unique)-len(categories), len(unique)))
	}
	return categories, nil
}

func setCategories(tx *gorm.DB, p *models.Product, categories []models.Category) error {
	assoc := tx.Model(p).Association("Categories")
	if len(categories) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(categories)
}

func replaceImages(tx *gorm.DB, productID string, inputs []models.ImageInput) error {
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	if len(inputs) == 0 {
		return nil
	}
	images := make([]models.ProductImage, 0, len(inputs))
	for i, in := range inputs {
		images = append(images, models.ProductImage{ProductID: productID, Image: in.Image(), Position: i})
	}
	return tx.Create(&images).Error
}

func deleteVariants(tx *gorm.DB, productID string) error {
	variantIDs := tx.Model(&models.ProductVariant{}).Select("id").Where("product_id = ?", productID)
	if err := tx.Where("variant_id IN (?)", variantIDs).Delete(&models.VariantOption{}).Error; err != nil {
		return err
	}
	return tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error
}

// replaceVariants rewrites the variant groups level by level so each row
// gets its own id.
func replaceVariants(tx *gorm.DB, productID string, inputs []VariantInput) error {
	if err := deleteVariants(tx, productID); err != nil {
		return err
	}
	for i, in := range inputs {
		variant := models.ProductVariant{ProductID: productID, Name: strings.TrimSpace(in.Name), Position: i}
		if err := tx.Omit("Options").Create(&variant).Error; err != nil {
			return err
		}
		if len(in.Options) == 0 {
			continue
		}
		options := make([]models.VariantOption, 0, len(in.Options))
		for j, opt := range in.Options {
			options = append(options, models.VariantOption{
				VariantID:  variant.ID,
				Value:      strings.TrimSpace(opt.Value),
				PriceDelta: opt.PriceDelta,
				Stock:      opt.Stock,
				Position:   j,
			})
		}
		if err := tx.Create(&options).Error; err != nil {
			return err
		}
	}
	return nil
}

func cleanList(in []string) models.StringList {
	out := models.StringList{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
