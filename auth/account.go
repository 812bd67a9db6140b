package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"max=50"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AddressInput struct {
	Label string `json:"label"`
	models.PostalAddress
	IsDefault bool `json:"isDefault"`
}

// ProfileInput is a partial update; nil fields are left untouched.
type ProfileInput struct {
	Name            *string         `json:"name"`
	Phone           *string         `json:"phone"`
	CurrentPassword string          `json:"currentPassword"`
	NewPassword     *string         `json:"newPassword"`
	Addresses       *[]AddressInput `json:"addresses"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterUser creates a client account with a hashed password.
func RegisterUser(ctx context.Context, db *gorm.DB, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.Invalid("name", "is required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperrors.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	var taken int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, apperrors.Conflict("email", "email is already registered")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         models.RoleClient,
		Provider:     models.ProviderLocal,
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("email", "email is already registered")
		}
		return nil, err
	}
	user.Addresses = []models.Address{}
	return user, nil
}

// Authenticate returns the same error for an unknown email and a wrong
// password.
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Preload("Addresses", models.AddressOrder).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	return &user, nil
}

func LoadUser(ctx context.Context, db *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Preload("Addresses", models.AddressOrder).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies in to the user. A new password requires the
// current one; an address list replaces the stored one.
func UpdateProfile(ctx context.Context, db *gorm.DB, userID string, in ProfileInput) (*models.User, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user not found")
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.Invalid("name", "cannot be empty")
			}
			updates["name"] = name
		}
		if in.Phone != nil {
			updates["phone"] = strings.TrimSpace(*in.Phone)
		}
		if in.NewPassword != nil {
			if user.PasswordHash != "" && !CheckPassword(user.PasswordHash, in.CurrentPassword) {
				return apperrors.Invalid("currentPassword", "is incorrect")
			}
			if len(*in.NewPassword) < MinPasswordLength {
				return apperrors.Invalid("newPassword", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
			}
			hash, err := HashPassword(*in.NewPassword)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.Addresses != nil {
			return replaceAddresses(tx, user.ID, *in.Addresses)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return LoadUser(ctx, db, userID)
}

func replaceAddresses(tx *gorm.DB, userID string, inputs []AddressInput) error {
	defaults := 0
	for _, a := range inputs {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		return apperrors.Invalid("addresses", "at most one address can be marked default")
	}

	if err := tx.Where("user_id = ?", userID).Delete(&models.Address{}).Error; err != nil {
		return err
	}
	if len(inputs) == 0 {
		return nil
	}
	addresses := make([]models.Address, 0, len(inputs))
	for i, a := range inputs {
		addresses = append(addresses, models.Address{
			UserID:        userID,
			Label:         strings.TrimSpace(a.Label),
			PostalAddress: a.PostalAddress,
			IsDefault:     a.IsDefault,
			Position:      i,
		})
	}
	return tx.Create(&addresses).Error
}
