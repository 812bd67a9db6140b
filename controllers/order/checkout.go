package ordercontroller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/config"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultPaymentMethod = "cash_on_delivery"

var errInsufficientStock = errors.New("insufficient stock")

type CheckoutInput struct {
	ShippingAddress *models.PostalAddress `json:"shippingAddress"`
	BillingAddress  *models.PostalAddress `json:"billingAddress"`
	ShippingMethod  string                `json:"shippingMethod"`
	PaymentMethod   string                `json:"paymentMethod" binding:"max=30"`
	Notes           string                `json:"notes" binding:"max=2000"`
}

// stockLocation is the row a line's stock is taken from: an option with
// its own count, or the product.
type stockLocation struct {
	optionID  string
	productID string
}

func (l stockLocation) key() string {
	if l.optionID != "" {
		return "option:" + l.optionID
	}
	return "product:" + l.productID
}

type reservation struct {
	location stockLocation
	name     string
	stock    int
	quantity int
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// shippingCost prices method against the subtotal. A positive free
// threshold waives the cost once reached.
func shippingCost(rates config.ShippingRates, method models.ShippingMethod, subtotal decimal.Decimal) decimal.Decimal {
	if rates.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(rates.FreeThreshold) {
		return decimal.Zero
	}
	if method == models.ShippingExpress {
		return rates.Express
	}
	return rates.Standard
}

func checkAddress(field string, addr models.PostalAddress) error {
	missing := addr.Missing()
	if len(missing) == 0 {
		return nil
	}
	fields := make(map[string]string, len(missing))
	for _, m := range missing {
		fields[field+"."+m] = "is required"
	}
	return apperrors.Validation(fmt.Sprintf("%s is incomplete: %s required", field, strings.Join(missing, ", ")), fields)
}

// resolveAddresses picks the shipping address from the request, then the
// user's default, then the first stored one. Billing falls back to
// shipping.
func resolveAddresses(user *models.User, in CheckoutInput) (shipping, billing models.PostalAddress, err error) {
	switch {
	case in.ShippingAddress != nil && !in.ShippingAddress.IsZero():
		shipping = *in.ShippingAddress
	default:
		addr, ok := user.DefaultAddress()
		if !ok {
			return shipping, billing, apperrors.Invalid("shippingAddress", "is required")
		}
		shipping = addr
	}
	if shipping.FullName == "" {
		shipping.FullName = user.Name
	}
	if err := checkAddress("shippingAddress", shipping); err != nil {
		return shipping, billing, err
	}

	billing = shipping
	if in.BillingAddress != nil && !in.BillingAddress.IsZero() {
		billing = *in.BillingAddress
		if err := checkAddress("billingAddress", billing); err != nil {
			return shipping, billing, err
		}
	}
	return shipping, billing, nil
}

// buildLines snapshots every cart line and collects how much each stock
// location must give up.
func buildLines(items []models.CartItem, products map[string]*models.Product) ([]models.OrderItem, map[string]*reservation, decimal.Decimal, error) {
	lines := make([]models.OrderItem, 0, len(items))
	reservations := map[string]*reservation{}
	subtotal := decimal.Zero

	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, nil, subtotal, apperrors.Validation(
				fmt.Sprintf("a product in your cart is no longer available (%s)", item.ProductID), nil)
		}
		sel := item.Variant()
		avail, err := p.Resolve(sel)
		if err != nil {
			return nil, nil, subtotal, apperrors.Validation(
				fmt.Sprintf("%q: selected variant is no longer available (%v)", p.Name, err), nil)
		}
		if item.Quantity > avail.Stock {
			return nil, nil, subtotal, apperrors.Validation(fmt.Sprintf(
				"insufficient stock for %q: requested %d, available %d (short by %d)",
				p.Name, item.Quantity, avail.Stock, item.Quantity-avail.Stock,
			), nil)
		}

		loc := stockLocation{productID: p.ID}
		if avail.Option != nil {
			loc = stockLocation{optionID: avail.Option.ID}
		}
		r, ok := reservations[loc.key()]
		if !ok {
			r = &reservation{location: loc, name: p.Name, stock: avail.Stock}
			reservations[loc.key()] = r
		}
		r.quantity += item.Quantity

		lineTotal := avail.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		line := models.OrderItem{
			ProductID:          p.ID,
			Name:               p.Name,
			SKU:                p.SKU,
			Image:              p.PrimaryImage(),
			Quantity:           item.Quantity,
			Price:              avail.UnitPrice,
			LineTotal:          lineTotal,
			VariantName:        item.VariantName,
			VariantValue:       item.VariantValue,
			VariantDescription: sel.Describe(),
		}
		if avail.Option != nil {
			id := avail.Option.ID
			line.StockOptionID = &id
		}
		lines = append(lines, line)
		subtotal = subtotal.Add(lineTotal)
	}

	// Lines sharing a location must fit together.
	for _, r := range reservations {
		if r.quantity > r.stock {
			return nil, nil, subtotal, apperrors.Validation(fmt.Sprintf(
				"insufficient stock for %q: requested %d, available %d (short by %d)",
				r.name, r.quantity, r.stock, r.quantity-r.stock,
			), nil)
		}
	}
	return lines, reservations, subtotal, nil
}

// decrement takes quantity from a location only if enough is left.
func decrement(tx *gorm.DB, loc stockLocation, quantity int) error {
	var res *gorm.DB
	if loc.optionID != "" {
		res = tx.Model(&models.VariantOption{}).
			Where("id = ? AND stock IS NOT NULL AND stock >= ?", loc.optionID, quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	} else {
		res = tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", loc.productID, quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errInsufficientStock
	}
	return nil
}

// placeOrder turns the user's cart into an order. The order insert, every
// stock decrement and the cart clear commit together or not at all.
func placeOrder(ctx context.Context, db *gorm.DB, rates config.ShippingRates, userID string, in CheckoutInput) (*models.Order, error) {
	method, ok := models.ParseShippingMethod(in.ShippingMethod)
	if !ok {
		return nil, apperrors.Invalid("shippingMethod", "must be one of: standard, express")
	}

	var order models.Order
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Preload("Items", func(q *gorm.DB) *gorm.DB { return q.Order("added_at").Order("id") }).
			Where("user_id = ?", userID).First(&cart).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if len(cart.Items) == 0 {
			return apperrors.Validation("cart is empty", nil)
		}

		var user models.User
		if err := tx.Preload("Addresses", models.AddressOrder).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Unauthorized("user no longer exists")
			}
			return err
		}

		ids := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			ids = append(ids, item.ProductID)
		}
		var found []models.Product
		if err := tx.Preload("Images").Preload("Variants.Options").
			Where("id IN ? AND is_published = ?", ids, true).Find(&found).Error; err != nil {
			return err
		}
		products := make(map[string]*models.Product, len(found))
		for i := range found {
			products[found[i].ID] = &found[i]
		}

		lines, reservations, subtotal, err := buildLines(cart.Items, products)
		if err != nil {
			return err
		}
		shipping, billing, err := resolveAddresses(&user, in)
		if err != nil {
			return err
		}

		cost := shippingCost(rates, method, subtotal)
		paymentMethod := strings.TrimSpace(in.PaymentMethod)
		if paymentMethod == "" {
			paymentMethod = defaultPaymentMethod
		}
		order = models.Order{
			OrderNumber:     newOrderNumber(time.Now()),
			UserID:          user.ID,
			Items:           lines,
			Subtotal:        subtotal,
			ShippingMethod:  method,
			ShippingCost:    cost,
			TotalAmount:     subtotal.Add(cost),
			ShippingAddress: shipping,
			BillingAddress:  billing,
			PaymentMethod:   paymentMethod,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		// Fixed order keeps concurrent checkouts from deadlocking.
		keys := make([]string, 0, len(reservations))
		for k := range reservations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			r := reservations[k]
			if err := decrement(tx, r.location, r.quantity); err != nil {
				if errors.Is(err, errInsufficientStock) {
					return apperrors.Validation(fmt.Sprintf("insufficient stock for %q", r.name), nil)
				}
				return err
			}
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
