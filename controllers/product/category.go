package productcontroller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/uploads"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryInput is shared by create and update. An empty parentId detaches
// the category from its parent.
type CategoryInput struct {
	Name        *string            `json:"name"`
	Description *string            `json:"description"`
	Image       *models.ImageInput `json:"image"`
	ParentID    *string            `json:"parentId"`
}

func findCategory(db *gorm.DB, idOrSlug string) (*models.Category, error) {
	q := db
	if models.IsValidID(idOrSlug) {
		q = q.Where("id = ? OR slug = ?", idOrSlug, idOrSlug)
	} else {
		q = q.Where("slug = ?", idOrSlug)
	}
	var cat models.Category
	if err := q.First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("category not found")
		}
		return nil, err
	}
	return &cat, nil
}

func loadCategory(db *gorm.DB, id string) (*models.Category, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("category")
	}
	var cat models.Category
	if err := db.First(&cat, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("category not found")
		}
		return nil, err
	}
	return &cat, nil
}

// checkCategoryName validates name and returns its slug, rejecting a name
// or slug already used by another category.
func checkCategoryName(tx *gorm.DB, name, excludeID string) (string, error) {
	if name == "" {
		return "", apperrors.Invalid("name", "is required")
	}
	slug := models.Slugify(name)
	if slug == "" {
		return "", apperrors.Invalid("name", "must contain letters or digits")
	}

	var clash models.Category
	q := tx.Where("name = ? OR slug = ?", name, slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.First(&clash).Error
	switch {
	case err == nil && clash.Name == name:
		return "", apperrors.Conflict("name", fmt.Sprintf("category %q already exists", name))
	case err == nil:
		return "", apperrors.Conflict("slug", fmt.Sprintf("slug %q is already used by category %q", slug, clash.Name))
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}
	return slug, nil
}

func resolveParent(tx *gorm.DB, parentID, selfID string) (*string, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, nil
	}
	if parentID == selfID {
		return nil, apperrors.Invalid("parentId", "a category cannot be its own parent")
	}
	if _, err := loadCategory(tx, parentID); err != nil {
		return nil, apperrors.Invalid("parentId", "parent category does not exist")
	}
	return &parentID, nil
}

func createCategory(ctx context.Context, db *gorm.DB, in CategoryInput) (*models.Category, error) {
	var cat models.Category
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var name string
		if in.Name != nil {
			name = strings.TrimSpace(*in.Name)
		}
		slug, err := checkCategoryName(tx, name, "")
		if err != nil {
			return err
		}
		cat = models.Category{Name: name, Slug: slug}
		if in.Description != nil {
			cat.Description = strings.TrimSpace(*in.Description)
		}
		if in.Image != nil {
			cat.Image = in.Image.Image()
		}
		if in.ParentID != nil {
			if cat.ParentID, err = resolveParent(tx, *in.ParentID, ""); err != nil {
				return err
			}
		}
		return tx.Omit("Children").Create(&cat).Error
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func updateCategory(ctx context.Context, db *gorm.DB, id string, in CategoryInput) (*models.Category, error) {
	var updated *models.Category
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cat, err := loadCategory(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name != cat.Name {
				slug, err := checkCategoryName(tx, name, cat.ID)
				if err != nil {
					return err
				}
				updates["name"] = name
				updates["slug"] = slug
			}
		}
		if in.Description != nil {
			updates["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Image != nil {
			updates["image_url"] = in.Image.URL
			updates["image_alt_text"] = in.Image.AltText
		}
		if in.ParentID != nil {
			parent, err := resolveParent(tx, *in.ParentID, cat.ID)
			if err != nil {
				return err
			}
			updates["parent_id"] = parent
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Category{}).Where("id = ?", cat.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		updated, err = loadCategory(tx, cat.ID)
		return err
	})
	return updated, err
}

// deleteCategory refuses while products or subcategories still point at the
// category.
func deleteCategory(ctx context.Context, db *gorm.DB, id string) (*models.Category, error) {
	var deleted *models.Category
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cat, err := loadCategory(tx, id)
		if err != nil {
			return err
		}

		var products, children int64
		if err := tx.Table("product_categories").Where("category_id = ?", cat.ID).Count(&products).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Category{}).Where("parent_id = ?", cat.ID).Count(&children).Error; err != nil {
			return err
		}
		if products > 0 || children > 0 {
			return apperrors.Validation(fmt.Sprintf(
				"cannot delete category %q: %d product(s) and %d subcategory(ies) still reference it",
				cat.Name, products, children,
			), nil)
		}
		if err := tx.Delete(&models.Category{}, "id = ?", cat.ID).Error; err != nil {
			return err
		}
		deleted = cat
		return nil
	})
	return deleted, err
}

// listCategories returns every category by name, or the roots with their
// descendants nested when tree is set.
func listCategories(ctx context.Context, db *gorm.DB, tree bool) ([]models.Category, error) {
	var all []models.Category
	if err := db.WithContext(ctx).Order("name").Find(&all).Error; err != nil {
		return nil, err
	}
	if !tree {
		return all, nil
	}

	known := map[string]bool{}
	for _, cat := range all {
		known[cat.ID] = true
	}
	byParent := map[string][]models.Category{}
	var roots []models.Category
	for _, cat := range all {
		// Categories whose parent was never found are shown as roots.
		if cat.ParentID == nil || !known[*cat.ParentID] {
			roots = append(roots, cat)
			continue
		}
		byParent[*cat.ParentID] = append(byParent[*cat.ParentID], cat)
	}

	placed := map[string]bool{}
	var attach func(cats []models.Category) []models.Category
	attach = func(cats []models.Category) []models.Category {
		var out []models.Category
		for _, cat := range cats {
			if !placed[cat.ID] {
				placed[cat.ID] = true
				out = append(out, cat)
			}
		}
		for i := range out {
			out[i].Children = attach(byParent[out[i].ID])
		}
		return out
	}
	nested := attach(roots)

	// Parent links are not checked for cycles. A cycle has no root, so its
	// first member by name is shown at the top level with the rest below it.
	for _, cat := range all {
		if !placed[cat.ID] {
			nested = append(nested, attach([]models.Category{cat})...)
		}
	}
	return nested, nil
}

func bindCategory(c *gin.Context, store *uploads.Store) (CategoryInput, []string, error) {
	var in CategoryInput
	files, err := bindBody(c, &in, "image")
	if err != nil {
		return in, nil, err
	}
	if len(files) == 0 {
		return in, nil, nil
	}
	urls, err := store.SaveImages("categories", files[:1])
	if err != nil {
		return in, nil, err
	}
	img := models.ImageInput{URL: urls[0]}
	if in.Image != nil {
		img.AltText = in.Image.AltText
	}
	in.Image = &img
	return in, urls, nil
}

// GET /api/categories?tree=true
func GetCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := listCategories(c.Request.Context(), db, c.Query("tree") == "true")
		if err != nil {
			c.Error(err)
			return
		}
		if categories == nil {
			categories = []models.Category{}
		}
		c.JSON(http.StatusOK, categories)
	}
}

// GET /api/categories/:id (id or slug)
func GetCategory(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat, err := findCategory(db.WithContext(c.Request.Context()), c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

// POST /api/categories
func CreateCategory(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, saved, err := bindCategory(c, store)
		if err != nil {
			c.Error(err)
			return
		}
		cat, err := createCategory(c.Request.Context(), db, in)
		if err != nil {
			discardUploads(store, saved)
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, cat)
	}
}

// PUT /api/categories/:id
func UpdateCategory(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, saved, err := bindCategory(c, store)
		if err != nil {
			c.Error(err)
			return
		}
		cat, err := updateCategory(c.Request.Context(), db, c.Param("id"), in)
		if err != nil {
			discardUploads(store, saved)
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

// DELETE /api/categories/:id
func DeleteCategory(db *gorm.DB, store *uploads.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cat, err := deleteCategory(c.Request.Context(), db, c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		store.Remove(cat.Image.URL)
		c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully", "id": cat.ID})
	}
}
