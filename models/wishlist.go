package models

import "time"

type Wishlist struct {
	Base
	UserID string         `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Items  []WishlistItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type WishlistItem struct {
	Base
	WishlistID string    `gorm:"size:36;not null;uniqueIndex:idx_wishlist_product" json:"-"`
	ProductID  string    `gorm:"size:36;not null;uniqueIndex:idx_wishlist_product" json:"productId"`
	AddedAt    time.Time `json:"addedAt"`
}
