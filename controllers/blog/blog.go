package blogcontroller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var postPageOptions = pagination.Options{
	DefaultPageSize: 10,
	MaxPageSize:     50,
	DefaultSort:     pagination.Sort{Field: "created_at", Desc: true},
	Fields: map[string]string{
		"createdAt":   "created_at",
		"publishedAt": "published_at",
		"title":       "title",
		"views":       "views",
	},
	Presets: map[string]pagination.Sort{
		"newest":  {Field: "published_at", Desc: true},
		"popular": {Field: "views", Desc: true},
	},
}

// PostInput is a partial update; nil fields keep their value.
type PostInput struct {
	Title      *string            `json:"title"`
	Slug       *string            `json:"slug"`
	Excerpt    *string            `json:"excerpt"`
	Content    *string            `json:"content"`
	CoverImage *models.ImageInput `json:"coverImage"`
	Tags       *[]string          `json:"tags"`
	Status     *string            `json:"status"`
}

type PostQuery struct {
	Search string
	Tag    string
	Status models.PostStatus
}

func (in PostInput) validate(creating bool) (models.PostStatus, error) {
	fields := map[string]string{}
	if creating && in.Title == nil {
		fields["title"] = "is required"
	}
	if in.Title != nil && models.Slugify(*in.Title) == "" {
		fields["title"] = "must contain letters or digits"
	}
	if creating && (in.Content == nil || strings.TrimSpace(*in.Content) == "") {
		fields["content"] = "is required"
	}
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" && models.Slugify(*in.Slug) == "" {
		fields["slug"] = "must contain letters or digits"
	}
	var status models.PostStatus
	if in.Status != nil {
		var ok bool
		if status, ok = models.ParsePostStatus(*in.Status); !ok {
			fields["status"] = "must be one of: draft, published"
		}
	}
	if len(fields) > 0 {
		return "", apperrors.Validation("invalid post", fields)
	}
	return status, nil
}

func cleanTags(tags []string) models.StringList {
	out := models.StringList{}
	seen := map[string]bool{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// checkUnique rejects a title or slug already used by another post.
func checkUnique(tx *gorm.DB, title, slug, excludeID string) error {
	var other models.BlogPost
	q := tx.Select("id", "title", "slug").Where("LOWER(title) = ? OR slug = ?", strings.ToLower(title), slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Take(&other).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case strings.EqualFold(other.Title, title):
		return apperrors.Conflict("title", fmt.Sprintf("a post titled %q already exists", title))
	default:
		return apperrors.Conflict("slug", fmt.Sprintf("slug %q is already in use", slug))
	}
}

func loadPost(db *gorm.DB, id string) (*models.BlogPost, error) {
	if !models.IsValidID(id) {
		return nil, apperrors.MalformedID("post")
	}
	var post models.BlogPost
	err := db.Preload("Author").First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func createPost(ctx context.Context, db *gorm.DB, author auth.Identity, in PostInput) (*models.BlogPost, error) {
	status, err := in.validate(true)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = models.PostStatusDraft
	}

	title := strings.TrimSpace(*in.Title)
	slug := models.Slugify(title)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		slug = models.Slugify(*in.Slug)
	}
	post := models.BlogPost{
		Title:   title,
		Slug:    slug,
		Content: strings.TrimSpace(*in.Content),
		Tags:    models.StringList{},
		Status:  status,
	}
	if in.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.CoverImage != nil {
		post.CoverImage = in.CoverImage.Image()
	}
	if in.Tags != nil {
		post.Tags = cleanTags(*in.Tags)
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		post.PublishedAt = &now
	}
	if author.UserID != "" && !author.Service {
		id := author.UserID
		post.AuthorID = &id
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, post.Title, post.Slug, ""); err != nil {
			return err
		}
		return tx.Omit("Author").Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return loadPost(db.WithContext(ctx), post.ID)
}

// updatePost regenerates the slug from a new title unless a slug is given.
// The first publication stamps publishedAt.
func updatePost(ctx context.Context, db *gorm.DB, id string, in PostInput) (*models.BlogPost, error) {
	status, err := in.validate(false)
	if err != nil {
		return nil, err
	}

	var updated *models.BlogPost
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := loadPost(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		title, slug := post.Title, post.Slug
		if in.Title != nil {
			if t := strings.TrimSpace(*in.Title); t != post.Title {
				title = t
				slug = models.Slugify(t)
			}
		}
		if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
			slug = models.Slugify(*in.Slug)
		}
		if title != post.Title || slug != post.Slug {
			if err := checkUnique(tx, title, slug, post.ID); err != nil {
				return err
			}
			updates["title"] = title
			updates["slug"] = slug
		}
		if in.Excerpt != nil {
			updates["excerpt"] = strings.TrimSpace(*in.Excerpt)
		}
		if in.Content != nil {
			if strings.TrimSpace(*in.Content) == "" {
				return apperrors.Invalid("content", "is required")
			}
			updates["content"] = strings.TrimSpace(*in.Content)
		}
		if in.CoverImage != nil {
			updates["cover_url"] = in.CoverImage.URL
			updates["cover_alt_text"] = in.CoverImage.AltText
		}
		if in.Tags != nil {
			updates["tags"] = cleanTags(*in.Tags)
		}
		if status != "" {
			updates["status"] = status
			if status == models.PostStatusPublished && post.PublishedAt == nil {
				updates["published_at"] = time.Now()
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.BlogPost{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		updated, err = loadPost(tx, post.ID)
		return err
	})
	return updated, err
}

func deletePost(ctx context.Context, db *gorm.DB, id string) error {
	post, err := loadPost(db.WithContext(ctx), id)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&models.BlogPost{}, "id = ?", post.ID).Error
}

func listPosts(ctx context.Context, db *gorm.DB, f PostQuery, p pagination.Params) (pagination.Page[models.BlogPost], error) {
	q := db.WithContext(ctx).Model(&models.BlogPost{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(content) LIKE ?", like, like, like)
	}
	if f.Tag != "" {
		// Tags are stored as a JSON array of lower-case strings.
		q = q.Where("tags LIKE ?", fmt.Sprintf("%%%q%%", strings.ToLower(f.Tag)))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return pagination.Page[models.BlogPost]{}, err
	}
	var posts []models.BlogPost
	if err := p.Apply(q.Preload("Author")).Find(&posts).Error; err != nil {
		return pagination.Page[models.BlogPost]{}, err
	}
	return pagination.NewPage(posts, p, total), nil
}

// getPublishedPost counts a view on each read.
func getPublishedPost(ctx context.Context, db *gorm.DB, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := db.WithContext(ctx).Preload("Author").
		Where("slug = ? AND status = ?", slug, models.PostStatusPublished).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("post not found")
	}
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", post.ID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return nil, err
	}
	post.Views++
	return &post, nil
}

func listHandler(db *gorm.DB, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := PostQuery{
			Search: strings.TrimSpace(c.Query("search")),
			Tag:    strings.TrimSpace(c.Query("tag")),
			Status: models.PostStatusPublished,
		}
		if admin {
			f.Status = ""
			if raw := c.Query("status"); raw != "" {
				status, ok := models.ParsePostStatus(raw)
				if !ok {
					c.Error(apperrors.Invalid("status", "must be one of: draft, published"))
					return
				}
				f.Status = status
			}
		}
		params, err := pagination.Parse(c, postPageOptions)
		if err != nil {
			c.Error(err)
			return
		}
		page, err := listPosts(c.Request.Context(), db, f, params)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// GET /api/blog/posts?search=&tag=
func GetPosts(db *gorm.DB) gin.HandlerFunc { return listHandler(db, false) }

// GET /api/blog/admin/posts?status=
func GetAdminPosts(db *gorm.DB) gin.HandlerFunc { return listHandler(db, true) }

// GET /api/blog/posts/:slug
func GetPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := getPublishedPost(c.Request.Context(), db, c.Param("slug"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// GET /api/blog/admin/posts/:id
func GetAdminPost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := loadPost(db.WithContext(c.Request.Context()), c.Param("id"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// POST /api/blog/admin/posts
func CreatePost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in PostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		post, err := createPost(c.Request.Context(), db, auth.CurrentIdentity(c), in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, post)
	}
}

// PUT /api/blog/admin/posts/:id
func UpdatePost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in PostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.Error(apperrors.Binding(err))
			return
		}
		post, err := updatePost(c.Request.Context(), db, c.Param("id"), in)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// DELETE /api/blog/admin/posts/:id
func DeletePost(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := deletePost(c.Request.Context(), db, id); err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted", "id": id})
	}
}
