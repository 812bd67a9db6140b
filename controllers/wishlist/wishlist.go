package wishlistcontroller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemInput struct {
	ProductID string `json:"productId" binding:"required"`
}

type ItemView struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	InStock   bool            `json:"inStock"`
	AddedAt   time.Time       `json:"addedAt"`
}

type View struct {
	ID    string     `json:"id"`
	Items []ItemView `json:"items"`
}

// insertWishlist creates the user's wishlist unless one exists, without
// failing the surrounding transaction on a lost race.
func insertWishlist(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.Wishlist{UserID: userID}).Error
}

func wishlistFor(tx *gorm.DB, userID string) (*models.Wishlist, error) {
	var list models.Wishlist
	err := tx.Where("user_id = ?", userID).Take(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err = insertWishlist(tx, userID); err == nil {
			err = tx.Where("user_id = ?", userID).Take(&list).Error
		}
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Where("wishlist_id = ?", list.ID).Order("added_at").Order("id").Find(&list.Items).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// buildView resolves products; unpublished or deleted ones are left out.
func buildView(ctx context.Context, db *gorm.DB, list *models.Wishlist) (*View, error) {
	view := &View{ID: list.ID, Items: []ItemView{}}
	if len(list.Items) == 0 {
		return view, nil
	}
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		ids = append(ids, item.ProductID)
	}
	var products []models.Product
	if err := db.WithContext(ctx).Preload("Images").
		Where("id IN ? AND is_published = ?", ids, true).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, item := range list.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, ItemView{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Price:     p.Price,
			Image:     p.PrimaryImage(),
			InStock:   p.Stock > 0,
			AddedAt:   item.AddedAt,
		})
	}
	return view, nil
}

func viewWishlist(ctx context.Context, db *gorm.DB, userID string) (*View, error) {
	list, err := wishlistFor(db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return buildView(ctx, db, list)
}

// addItem is a no-op when the product is already listed.
func addItem(ctx context.Context, db *gorm.DB, userID, productID string) (*View, error) {
	if !models.IsValidID(productID) {
		return nil, apperrors.MalformedID("product")
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Where("id = ? AND is_published = ?", productID, true).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NotFound("product not found")
		}
		list, err := wishlistFor(tx, userID)
		if err != nil {
			return err
		}
		item := models.WishlistItem{WishlistID: list.ID, ProductID: productID, AddedAt: time.Now()}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return viewWishlist(ctx, db, userID)
}

func removeItem(ctx context.Context, db *gorm.DB, userID, productID string) (*View, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := wishlistFor(tx, userID)
		if err != nil {
			return err
		}
		return tx.Where("wishlist_id = ? AND product_id = ?", list.ID, productID).Delete(&models.WishlistItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return viewWishlist(ctx, db, userID)
}

func clearWishlist(ctx context.Context, db *gorm.DB, userID string) (*View, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := wishlistFor(tx, userID)
		if err != nil {
			return err
		}
		return tx.Where("wishlist_id = ?", list.ID).Delete(&models.WishlistItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return viewWishlist(ctx, db, userID)
}

// GET /api/wishlist
func GetWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := viewWishlist(c.Request.Context(), db, auth.CurrentIdentity(c).UserID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// POST /api/wishlist/items
func AddWishlistItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ItemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		view, err := addItem(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, in.ProductID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DELETE /api/wishlist/items/:productId
func DeleteWishlistItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := removeItem(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, c.Param("productId"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DELETE /api/wishlist
func ClearWishlist(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := clearWishlist(c.Request.Context(), db, auth.CurrentIdentity(c).UserID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
