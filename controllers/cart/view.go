package cartcontroller

import (
	"context"
	"time"

	"github.com/AymenMB/wud-sub001/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LineView is a cart line priced against the current catalog.
type LineView struct {
	ItemID          string                  `json:"itemId"`
	ProductID       string                  `json:"productId"`
	Name            string                  `json:"name"`
	Slug            string                  `json:"slug"`
	SKU             string                  `json:"sku"`
	Image           string                  `json:"image"`
	Quantity        int                     `json:"quantity"`
	SelectedVariant *models.SelectedVariant `json:"selectedVariant,omitempty"`
	UnitPrice       decimal.Decimal         `json:"unitPrice"`
	LineTotal       decimal.Decimal         `json:"lineTotal"`
	AvailableStock  int                     `json:"availableStock"`
	// Available is false when the selected option is gone or the stock no
	// longer covers the quantity.
	Available bool      `json:"available"`
	AddedAt   time.Time `json:"addedAt"`
}

type View struct {
	ID            string          `json:"id"`
	Items         []LineView      `json:"items"`
	ItemCount     int             `json:"itemCount"`
	TotalQuantity int             `json:"totalQuantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// buildView prices every line at read time. Lines whose product was
// deleted or unpublished are left out of the response but stay stored.
func buildView(ctx context.Context, db *gorm.DB, cart *models.Cart) (*View, error) {
	view := &View{ID: cart.ID, Items: []LineView{}, Subtotal: decimal.Zero, UpdatedAt: cart.UpdatedAt}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	var products []models.Product
	err := db.WithContext(ctx).
		Preload("Images").
		Preload("Variants.Options").
		Where("id IN ? AND is_published = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, item := range cart.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			continue
		}
		line := LineView{
			ItemID:          item.ID,
			ProductID:       p.ID,
			Name:            p.Name,
			Slug:            p.Slug,
			SKU:             p.SKU,
			Image:           p.PrimaryImage(),
			Quantity:        item.Quantity,
			SelectedVariant: item.Variant(),
			UnitPrice:       p.Price,
			LineTotal:       decimal.Zero,
			AddedAt:         item.AddedAt,
		}
		if avail, err := p.Resolve(item.Variant()); err == nil {
			line.UnitPrice = avail.UnitPrice
			line.LineTotal = avail.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			line.AvailableStock = avail.Stock
			line.Available = item.Quantity <= avail.Stock
			view.Subtotal = view.Subtotal.Add(line.LineTotal)
		}
		view.Items = append(view.Items, line)
		view.TotalQuantity += item.Quantity
	}
	view.ItemCount = len(view.Items)
	return view, nil
}
