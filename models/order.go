package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string
type ShippingMethod string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"

	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusDelivered: {OrderStatusRefunded},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range OrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// Staying in the same status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Restocks reports whether moving from s to next returns goods to stock.
func (s OrderStatus) Restocks(next OrderStatus) bool {
	if s == next || s == OrderStatusDelivered || s.IsTerminal() {
		return false
	}
	return next == OrderStatusCancelled || next == OrderStatusRefunded
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch p := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); p {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed:
		return p, true
	}
	return "", false
}

// ParseShippingMethod defaults to standard when s is empty.
func ParseShippingMethod(s string) (ShippingMethod, bool) {
	switch m := ShippingMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ShippingStandard, true
	case ShippingStandard, ShippingExpress:
		return m, true
	}
	return "", false
}

type Order struct {
	Base
	OrderNumber     string          `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`
	UserID          string          `gorm:"size:36;index;not null" json:"userId"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items           []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingMethod  ShippingMethod  `gorm:"size:20;not null" json:"shippingMethod"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shippingCost"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	ShippingAddress PostalAddress   `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	BillingAddress  PostalAddress   `gorm:"embedded;embeddedPrefix:billing_" json:"billingAddress"`
	PaymentMethod   string          `gorm:"size:30" json:"paymentMethod"`
	Status          OrderStatus     `gorm:"size:20;not null;index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"size:20;not null" json:"paymentStatus"`
	Notes           string          `gorm:"type:text" json:"notes"`
	AdminNotes      string          `gorm:"type:text" json:"adminNotes"`
}

// OrderItem is frozen at checkout and never re-derived from the product.
type OrderItem struct {
	Base
	OrderID            string          `gorm:"size:36;index;not null" json:"-"`
	ProductID          string          `gorm:"size:36;index;not null" json:"productId"`
	Name               string          `gorm:"size:255;not null" json:"name"`
	SKU                string          `gorm:"column:sku;size:100" json:"sku"`
	Image              string          `gorm:"size:512" json:"image"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	Price              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"lineTotal"`
	VariantName        string          `gorm:"size:100" json:"variantName,omitempty"`
	VariantValue       string          `gorm:"size:100" json:"variantValue,omitempty"`
	VariantDescription string          `gorm:"size:255" json:"variantDescription,omitempty"`
	// StockOptionID is the variant option whose stock was decremented, if any.
	StockOptionID *string `gorm:"size:36" json:"-"`
}
