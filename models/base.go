package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is embedded by every persisted record.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// IsValidID reports whether id has the shape of a record id.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// All lists every model for migration.
func All() []any {
	return []any{
		&User{},
		&Address{},
		&Category{},
		&Product{},
		&ProductImage{},
		&ProductVariant{},
		&VariantOption{},
		&Cart{},
		&CartItem{},
		&Wishlist{},
		&WishlistItem{},
		&Order{},
		&OrderItem{},
		&BlogPost{},
		&CustomRequest{},
		&NewsletterSubscription{},
	}
}
