package models

import "time"

type Cart struct {
	Base
	UserID string     `gorm:"size:36;uniqueIndex;not null" json:"userId"` // one cart per user
	Items  []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	Base
	CartID       string    `gorm:"size:36;index;not null" json:"-"`
	ProductID    string    `gorm:"size:36;index;not null" json:"productId"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	VariantName  string    `gorm:"size:100" json:"variantName,omitempty"`
	VariantValue string    `gorm:"size:100" json:"variantValue,omitempty"`
	AddedAt      time.Time `json:"addedAt"`
}

// Variant returns the line's selection, nil when it has none.
func (i *CartItem) Variant() *SelectedVariant {
	if i.VariantName == "" && i.VariantValue == "" {
		return nil
	}
	return &SelectedVariant{Name: i.VariantName, OptionValue: i.VariantValue}
}

// Matches reports whether the line is identified by productID and sel.
func (i *CartItem) Matches(productID string, sel *SelectedVariant) bool {
	if i.ProductID != productID {
		return false
	}
	if sel.IsZero() {
		return i.VariantName == "" && i.VariantValue == ""
	}
	return i.VariantName == sel.Name && i.VariantValue == sel.OptionValue
}

// FindItem returns the line matching productID and sel.
func (c *Cart) FindItem(productID string, sel *SelectedVariant) *CartItem {
	for i := range c.Items {
		if c.Items[i].Matches(productID, sel) {
			return &c.Items[i]
		}
	}
	return nil
}
