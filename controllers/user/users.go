package usercontroller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var userPageOptions = pagination.Options{
	DefaultPageSize: 20,
	MaxPageSize:     100,
	DefaultSort:     pagination.Sort{Field: "created_at", Desc: true},
	Fields: map[string]string{
		"createdAt": "created_at",
		"name":      "name",
		"email":     "email",
	},
}

type RoleInput struct {
	Role string `json:"role" binding:"required"`
}

type UserQuery struct {
	Search string
	Role   models.Role
}

func listUsers(ctx context.Context, db *gorm.DB, f UserQuery, p pagination.Params) (pagination.Page[models.User], error) {
	q := db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.User]{}, err
	}
	var users []models.User
	if err := p.Apply(q).Find(&users).Error; err != nil {
		return pagination.Page[models.User]{}, err
	}
	return pagination.NewPage(users, p, total), nil
}

func loadUser(db *gorm.DB, id string) (*models.User, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("user")
	}
	var user models.User
	err := db.Preload("Addresses", models.AddressOrder).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// updateRole changes another account's role. Admins cannot change their
// own role.
func updateRole(ctx context.Context, db *gorm.DB, actor auth.Identity, id string, raw string) (*models.User, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return nil, apperrors.Invalid("role", "must be one of: client, admin")
	}
	if actor.UserID == id {
		return nil, apperrors.Forbidden("you cannot change your own role")
	}

	var updated *models.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, id)
		if err != nil {
			return err
		}
		if user.Role != role {
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("role", role).Error; err != nil {
				return err
			}
			log.Printf("📝 Role of %s changed from %s to %s", user.Email, user.Role, role)
			user.Role = role
		}
		updated = user
		return nil
	})
	return updated, err
}

// GET /api/admin/users?search=&role=
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := UserQuery{Search: strings.TrimSpace(c.Query("search"))}
		if raw := c.Query("role"); raw != "" {
			role, ok := models.ParseRole(raw)
			if !ok {
				c.Error(apperrors.Invalid("role", "must be one of: client, admin"))
				return
			}
			f.Role = role
		}
		params, err := pagination.Parse(c, userPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listUsers(c.Request.Context(), db, f, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GET /api/admin/users/:id
func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := loadUser(db.WithContext(c.Request.Context()), c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// PUT /api/admin/users/:id/role
func UpdateUserRole(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RoleInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		user, err := updateRole(c.Request.Context(), db, auth.CurrentIdentity(c), c.Param("id"), in.Role)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
