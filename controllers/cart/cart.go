package cartcontroller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemInput struct {
	ProductID       string                  `json:"productId" binding:"required"`
	Quantity        int                     `json:"quantity" binding:"required,min=1"`
	SelectedVariant *models.SelectedVariant `json:"selectedVariant"`
}

type QuantityInput struct {
	ProductID       string                  `json:"productId" binding:"required"`
	Quantity        *int                    `json:"quantity" binding:"required,min=0"`
	SelectedVariant *models.SelectedVariant `json:"selectedVariant"`
}

func normalizeVariant(sel *models.SelectedVariant) *models.SelectedVariant {
	if sel.IsZero() {
		return nil
	}
	return &models.SelectedVariant{
		Name:        strings.TrimSpace(sel.Name),
		OptionValue: strings.TrimSpace(sel.OptionValue),
	}
}

// insertCart creates the user's cart unless one exists. Losing a race is
// not an error, so the surrounding transaction stays usable.
func insertCart(tx *gorm.DB, userID string) error {
	return tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.Cart{UserID: userID}).Error
}

// cartFor returns the user's cart with its lines, creating it on first use.
func cartFor(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where("user_id = ?", userID).Take(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err = insertCart(tx, userID); err == nil {
			err = tx.Where("user_id = ?", userID).Take(&cart).Error
		}
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Where("cart_id = ?", cart.ID).Order("added_at").Order("id").Find(&cart.Items).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// purchasable loads a published product with its variants.
func purchasable(tx *gorm.DB, productID string) (*models.Product, error) {
	if !models.IsValidID(productID) {
		return nil, apperrors.MalformedID("product")
	}
	var p models.Product
	err := tx.Preload("Variants.Options").Where("id = ? AND is_published = ?", productID, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("product not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// checkStock resolves sel on p and rejects quantity above the effective
// stock.
func checkStock(p *models.Product, sel *models.SelectedVariant, quantity int) error {
	avail, err := p.Resolve(sel)
	if err != nil {
		return apperrors.Validation(err.Error(), map[string]string{"selectedVariant": err.Error()})
	}
	if quantity > avail.Stock {
		return apperrors.Validation(fmt.Sprintf(
			"insufficient stock for %q: requested %d, available %d", p.Name, quantity, avail.Stock,
		), nil)
	}
	return nil
}

func viewCart(ctx context.Context, db *gorm.DB, userID string) (*View, error) {
	cart, err := cartFor(db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return buildView(ctx, db, cart)
}

// addItem adds quantity to the line identified by product and variant.
// The cumulative quantity must fit the effective stock.
func addItem(ctx context.Context, db *gorm.DB, userID string, in ItemInput) (*View, error) {
	sel := normalizeVariant(in.SelectedVariant)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		p, err := purchasable(tx, in.ProductID)
		if err != nil {
			return err
		}

		line := cart.FindItem(p.ID, sel)
		quantity := in.Quantity
		if line != nil {
			quantity += line.Quantity
		}
		if err := checkStock(p, sel, quantity); err != nil {
			return err
		}

		if line != nil {
			return tx.Model(&models.CartItem{}).Where("id = ?", line.ID).
				Updates(map[string]interface{}{"quantity": quantity, "added_at": time.Now()}).Error
		}
		item := models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: quantity, AddedAt: time.Now()}
		if sel != nil {
			item.VariantName, item.VariantValue = sel.Name, sel.OptionValue
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return viewCart(ctx, db, userID)
}

// updateItemQuantity overwrites a line's quantity; zero removes the line.
func updateItemQuantity(ctx context.Context, db *gorm.DB, userID string, in QuantityInput) (*View, error) {
	sel := normalizeVariant(in.SelectedVariant)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		line := cart.FindItem(in.ProductID, sel)
		if line == nil {
			return apperrors.NotFound("cart item not found")
		}
		if *in.Quantity == 0 {
			return tx.Delete(&models.CartItem{}, "id = ?", line.ID).Error
		}

		p, err := purchasable(tx, in.ProductID)
		if err != nil {
			return err
		}
		if err := checkStock(p, sel, *in.Quantity); err != nil {
			return err
		}
		return tx.Model(&models.CartItem{}).Where("id = ?", line.ID).Update("quantity", *in.Quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return viewCart(ctx, db, userID)
}

// removeItem is a no-op when the line is already gone.
func removeItem(ctx context.Context, db *gorm.DB, userID, productID string, sel *models.SelectedVariant) (*View, error) {
	sel = normalizeVariant(sel)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		q := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID)
		if sel == nil {
			q = q.Where("variant_name = ? AND variant_value = ?", "", "")
		} else {
			q = q.Where("variant_name = ? AND variant_value = ?", sel.Name, sel.OptionValue)
		}
		return q.Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return viewCart(ctx, db, userID)
}

func clearCart(ctx context.Context, db *gorm.DB, userID string) (*View, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := cartFor(tx, userID)
		if err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return viewCart(ctx, db, userID)
}

// GET /api/cart
func GetCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := viewCart(c.Request.Context(), db, auth.CurrentIdentity(c).UserID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// POST /api/cart/items
func AddCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in ItemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		view, err := addItem(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// PUT /api/cart/items
func UpdateCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in QuantityInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		view, err := updateItemQuantity(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DELETE /api/cart/items/:productId?variantName=&variantValue=
func DeleteCartItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sel := &models.SelectedVariant{Name: c.Query("variantName"), OptionValue: c.Query("variantValue")}
		view, err := removeItem(c.Request.Context(), db, auth.CurrentIdentity(c).UserID, c.Param("productId"), sel)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// DELETE /api/cart
func ClearCart(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := clearCart(c.Request.Context(), db, auth.CurrentIdentity(c).UserID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}
