package models

import (
	"strings"

	"gorm.io/gorm"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleClient, RoleAdmin:
		return r, true
	}
	return "", false
}

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	Base
	Name         string    `gorm:"size:255" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Phone        string    `gorm:"size:50" json:"phone"`
	Picture      string    `gorm:"size:512" json:"picture,omitempty"`
	Role         Role      `gorm:"size:20;not null;index" json:"role"`
	Provider     string    `gorm:"size:20;not null" json:"provider"`
	Addresses    []Address `gorm:"constraint:OnDelete:CASCADE" json:"addresses"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// DefaultAddress is the address marked default, else the first one.
func (u *User) DefaultAddress() (PostalAddress, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a.PostalAddress, true
		}
	}
	if len(u.Addresses) > 0 {
		return u.Addresses[0].PostalAddress, true
	}
	return PostalAddress{}, false
}

type PostalAddress struct {
	FullName string `gorm:"size:255" json:"fullName"`
	Street   string `gorm:"size:255" json:"street"`
	City     string `gorm:"size:100" json:"city"`
	State    string `gorm:"size:100" json:"state"`
	Zip      string `gorm:"size:20" json:"zip"`
	Country  string `gorm:"size:100" json:"country"`
	Phone    string `gorm:"size:50" json:"phone"`
}

func (a PostalAddress) IsZero() bool { return a == PostalAddress{} }

// Missing lists the required fields left blank.
func (a PostalAddress) Missing() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"street", a.Street},
		{"city", a.City},
		{"zip", a.Zip},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type Address struct {
	Base
	UserID string `gorm:"size:36;index;not null" json:"-"`
	Label  string `gorm:"size:100" json:"label"`
	PostalAddress
	IsDefault bool `json:"isDefault"`
	// Position is the address's index in the list the user last saved.
	Position int `json:"-"`
}

// AddressOrder is the preload scope that keeps addresses in saved order.
func AddressOrder(q *gorm.DB) *gorm.DB {
	return q.Order("position").Order("created_at").Order("id")
}
