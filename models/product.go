package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrOptionNotFound  = errors.New("variant option not found")
)

type Product struct {
	Base
	Name        string           `gorm:"size:255;not null" json:"name"`
	Slug        string           `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Description string           `gorm:"type:text" json:"description"`
	SKU         string           `gorm:"column:sku;size:100;uniqueIndex;not null" json:"sku"`
	Price       decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int              `gorm:"not null" json:"stock"`
	Tags        StringList       `json:"tags"`
	Materials   StringList       `json:"materials"`
	IsPublished bool             `gorm:"index" json:"isPublished"`
	Views       int              `gorm:"not null" json:"views"`
	Categories  []Category       `gorm:"many2many:product_categories" json:"categories"`
	Images      []ProductImage   `gorm:"constraint:OnDelete:CASCADE" json:"images"`
	Variants    []ProductVariant `gorm:"constraint:OnDelete:CASCADE" json:"variants"`
}

type ProductImage struct {
	Base
	ProductID string `gorm:"size:36;index;not null" json:"-"`
	Image
	Position int `json:"position"`
}

// ProductVariant is a named axis of customisation such as "Essence de bois".
type ProductVariant struct {
	Base
	ProductID string          `gorm:"size:36;index;not null" json:"-"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Position  int             `json:"position"`
	Options   []VariantOption `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE" json:"options"`
}

// VariantOption may carry its own stock; when it does, that count governs
// availability instead of the product stock.
type VariantOption struct {
	Base
	VariantID  string          `gorm:"size:36;index;not null" json:"-"`
	Value      string          `gorm:"size:100;not null" json:"value"`
	PriceDelta decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"priceDelta"`
	Stock      *int            `json:"stock"`
	Position   int             `json:"position"`
}

// SelectedVariant picks one option of one variant group.
type SelectedVariant struct {
	Name        string `json:"name"`
	OptionValue string `json:"optionValue"`
}

func (s *SelectedVariant) IsZero() bool {
	return s == nil || (strings.TrimSpace(s.Name) == "" && strings.TrimSpace(s.OptionValue) == "")
}

// Describe renders the selection the way it is printed on an order line.
func (s *SelectedVariant) Describe() string {
	if s.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s: %s", s.Name, s.OptionValue)
}

// Availability is what a product offers for one variant selection.
type Availability struct {
	UnitPrice decimal.Decimal
	Stock     int
	// Option is set when the option's own stock is the governing count.
	Option *VariantOption
}

// Resolve computes the unit price and effective stock for sel. An empty
// selection resolves against the product itself.
func (p *Product) Resolve(sel *SelectedVariant) (Availability, error) {
	avail := Availability{UnitPrice: p.Price, Stock: p.Stock}
	if sel.IsZero() {
		return avail, nil
	}
	for i := range p.Variants {
		variant := &p.Variants[i]
		if variant.Name != sel.Name {
			continue
		}
		for j := range variant.Options {
			opt := &variant.Options[j]
			if opt.Value != sel.OptionValue {
				continue
			}
			avail.UnitPrice = p.Price.Add(opt.PriceDelta)
			if opt.Stock != nil {
				avail.Stock = *opt.Stock
				avail.Option = opt
			}
			return avail, nil
		}
		return Availability{}, fmt.Errorf("%w: %q has no option %q", ErrOptionNotFound, sel.Name, sel.OptionValue)
	}
	return Availability{}, fmt.Errorf("%w: %q", ErrVariantNotFound, sel.Name)
}

// EffectiveStock is the stock governing sel, or -1 when sel does not exist.
func (p *Product) EffectiveStock(sel *SelectedVariant) int {
	avail, err := p.Resolve(sel)
	if err != nil {
		return -1
	}
	return avail.Stock
}

// PrimaryImage is the first image by position, if any.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	best := p.Images[0]
	for _, img := range p.Images[1:] {
		if img.Position < best.Position {
			best = img
		}
	}
	return best.URL
}
