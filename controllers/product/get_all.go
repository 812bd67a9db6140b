package productcontroller

import (
	"context"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var productPageOptions = pagination.Options{
	DefaultPageSize: 12,
	MaxPageSize:     100,
	DefaultSort:     pagination.Sort{Field: "created_at", Desc: true},
	Fields: map[string]string{
		"price":     "price",
		"name":      "name",
		"sku":       "sku",
		"stock":     "stock",
		"views":     "views",
		"createdAt": "created_at",
		"updatedAt": "updated_at",
	},
	Presets: map[string]pagination.Sort{
		"price_asc":  {Field: "price"},
		"price_desc": {Field: "price", Desc: true},
		"name_asc":   {Field: "name"},
		"name_desc":  {Field: "name", Desc: true},
		"newest":     {Field: "created_at", Desc: true},
	},
}

// ProductQuery holds the catalog filters. Published nil means any status.
type ProductQuery struct {
	Search    string
	Category  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Published *bool
}

func parseProductQuery(c *gin.Context, admin bool) (ProductQuery, error) {
	q := ProductQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
	}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return q, apperrors.Invalid(key, "must be a number")
		}
		*dst = &d
	}

	if !admin {
		published := true
		q.Published = &published
		return q, nil
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("status"))) {
	case "":
	case "published":
		published := true
		q.Published = &published
	case "draft":
		published := false
		q.Published = &published
	default:
		return q, apperrors.Invalid("status", "must be one of: published, draft")
	}
	return q, nil
}

func (q ProductQuery) apply(db *gorm.DB) *gorm.DB {
	if q.Published != nil {
		db = db.Where("is_published = ?", *q.Published)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where(
			"LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(tags) LIKE ? OR LOWER(materials) LIKE ?",
			like, like, like, like, like,
		)
	}
	if q.Category != "" {
		members := db.Session(&gorm.Session{NewDB: true}).
			Table("product_categories").
			Select("product_categories.product_id").
			Joins("JOIN categories ON categories.id = product_categories.category_id").
			Where("categories.id = ? OR categories.slug = ?", q.Category, q.Category)
		db = db.Where("id IN (?)", members)
	}
	if q.MinPrice != nil {
		db = db.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("price <= ?", *q.MaxPrice)
	}
	return db
}

func listProducts(ctx context.Context, db *gorm.DB, q ProductQuery, p pagination.Params) (pagination.Page[models.Product], error) {
	base := q.apply(db.WithContext(ctx).Model(&models.Product{})).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	var products []models.Product
	if err := p.Apply(withDetails(base)).Find(&products).Error; err != nil {
		return pagination.Page[models.Product]{}, err
	}
	return pagination.NewPage(products, p, total), nil
}

func listHandler(db *gorm.DB, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := parseProductQuery(c, admin)
		if err != nil {
			c.Error(err)
			return
		}
		params, err := pagination.Parse(c, productPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listProducts(c.Request.Context(), db, q, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GetProducts lists published products.
// GET /api/products?search=&category=&minPrice=&maxPrice=&sort=&page=&pageSize=
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return listHandler(db, false)
}

// GetAdminProducts lists every product; status=published|draft filters.
// GET /api/products/admin
func GetAdminProducts(db *gorm.DB) gin.HandlerFunc {
	return listHandler(db, true)
}
