package customrequestcontroller

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var requestPageOptions = pagination.Options{
	DefaultPageSize: 20,
	MaxPageSize:     100,
	DefaultSort:     pagination.Sort{Field: "created_at", Desc: true},
	Fields: map[string]string{
		"createdAt": "created_at",
		"status":    "status",
		"name":      "name",
	},
}

type RequestInput struct {
	Name        string           `json:"name" binding:"max=255"`
	Email       string           `json:"email" binding:"omitempty,email"`
	Phone       string           `json:"phone" binding:"max=50"`
	Subject     string           `json:"subject" binding:"max=255"`
	Description string           `json:"description" binding:"required"`
	Budget      *decimal.Decimal `json:"budget"`
}

type UpdateInput struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"adminNotes"`
}

type RequestQuery struct {
	Status models.RequestStatus
	Search string
}

// createRequest attaches the caller's account when there is one; name and
// email then default from the profile.
func createRequest(ctx context.Context, db *gorm.DB, who *auth.Identity, in RequestInput) (*models.CustomRequest, error) {
	req := models.CustomRequest{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       strings.TrimSpace(in.Phone),
		Subject:     strings.TrimSpace(in.Subject),
		Description: strings.TrimSpace(in.Description),
		Status:      models.RequestStatusNew,
	}
	if in.Budget != nil {
		if in.Budget.IsNegative() {
			return nil, apperrors.Invalid("budget", "must be greater than or equal to 0")
		}
		req.Budget = decimal.NewNullDecimal(in.Budget.Round(2))
	}

	if who != nil && who.UserID != "" && !who.Service {
		var user models.User
		if err := db.WithContext(ctx).First(&user, "id = ?", who.UserID).Error; err != nil {
			return nil, err
		}
		id := user.ID
		req.UserID = &id
		if req.Name == "" {
			req.Name = user.Name
		}
		if req.Email == "" {
			req.Email = user.Email
		}
		if req.Phone == "" {
			req.Phone = user.Phone
		}
	}

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "is required"
	}
	if req.Email == "" {
		fields["email"] = "is required"
	}
	if req.Description == "" {
		fields["description"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid custom request", fields)
	}

	if err := db.WithContext(ctx).Omit("User").Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func loadRequest(db *gorm.DB, id string) (*models.CustomRequest, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("custom request")
	}
	var req models.CustomRequest
	err := db.Preload("User").First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("custom request not found")
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func listRequests(ctx context.Context, db *gorm.DB, f RequestQuery, p pagination.Params) (pagination.Page[models.CustomRequest], error) {
	q := db.WithContext(ctx).Model(&models.CustomRequest{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(subject) LIKE ? OR LOWER(description) LIKE ?",
			like, like, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.CustomRequest]{}, err
	}
	var reqs []models.CustomRequest
	if err := p.Apply(q.Preload("User")).Find(&reqs).Error; err != nil {
		return pagination.Page[models.CustomRequest]{}, err
	}
	return pagination.NewPage(reqs, p, total), nil
}

func updateRequest(ctx context.Context, db *gorm.DB, id string, in UpdateInput) (*models.CustomRequest, error) {
	updates := map[string]interface{}{}
	if in.Status != nil {
		status, ok := models.ParseRequestStatus(*in.Status)
		if !ok {
			return nil, apperrors.Invalid("status", "must be one of: new, in_review, quoted, accepted, rejected, completed")
		}
		updates["status"] = status
	}
	if in.AdminNotes != nil {
		updates["admin_notes"] = strings.TrimSpace(*in.AdminNotes)
	}

	var updated *models.CustomRequest
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := loadRequest(tx, id)
		if err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.CustomRequest{}).Where("id = ?", req.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		updated, err = loadRequest(tx, req.ID)
		return err
	})
	return updated, err
}

func deleteRequest(ctx context.Context, db *gorm.DB, id string) error {
	req, err := loadRequest(db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&models.CustomRequest{}, "id = ?", req.ID).Error
}

// POST /api/custom-requests (optional auth)
func CreateCustomRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RequestInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		var who *auth.Identity
		if id, ok := auth.IdentityFrom(c); ok {
			who = &id
		}
		req, err := createRequest(c.Request.Context(), db, who, in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, req)
	}
}

// GET /api/custom-requests/admin?status=&search=
func ListCustomRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := RequestQuery{Search: strings.TrimSpace(c.Query("search"))}
		if raw := c.Query("status"); raw != "" {
			status, ok := models.ParseRequestStatus(raw)
			if !ok {
				c.Error(apperrors.Invalid("status", "is not a valid request status"))
				return
			}
			f.Status = status
		}
		params, err := pagination.Parse(c, requestPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listRequests(c.Request.Context(), db, f, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GET /api/custom-requests/admin/:id
func GetCustomRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := loadRequest(db.WithContext(c.Request.Context()), c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

// PUT /api/custom-requests/admin/:id
func UpdateCustomRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in UpdateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		req, err := updateRequest(c.Request.Context(), db, c.Param("id"), in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, req)
	}
}

// DELETE /api/custom-requests/admin/:id
func DeleteCustomRequest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deleteRequest(c.Request.Context(), db, id); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Custom request deleted", "id": id})
	}
}
