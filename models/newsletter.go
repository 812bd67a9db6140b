package models

import "time"

type NewsletterSubscription struct {
	Base
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Active         bool       `gorm:"index" json:"active"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt"`
}
