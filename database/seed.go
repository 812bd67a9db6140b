package database

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"gorm.io/gorm"
)

// SeedAdmin creates the bootstrap admin, or promotes the account when the
// email is already registered. Nothing happens when email is empty.
func SeedAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.IsAdmin() {
			return nil
		}
		if err := db.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
			return fmt.Errorf("promote admin: %w", err)
		}
		log.Printf("✅ Promoted %s to admin", email)
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("look up admin: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	admin := models.User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Provider:     models.ProviderLocal,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("✅ Created admin account %s", email)
	return nil
}
