package blogcontroller

import (
	"context"
	"errors"
	"testing"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/AymenMB/wud-sub001/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func ptr[T any](v T) *T { return &v }

func appErr(t *testing.T, err error) *apperrors.Error {
	t.Helper()
	var e *apperrors.Error
	require.True(t, errors.As(err, &e), "expected an app error, got %v", err)
	return e
}

func seedAuthor(t *testing.T, db *gorm.DB) auth.Identity {
	t.Helper()
	u := models.User{Name: "Atelier", Email: "atelier@wud.test", Role: models.RoleAdmin, Provider: models.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

func TestCreatePost(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	author := seedAuthor(t, db)

	post, err := createPost(ctx, db, author, PostInput{
		Title:      ptr("Entretenir le bois massif"),
		Content:    ptr("Huile de lin, chiffon doux."),
		Tags:       &[]string{"Entretien", "entretien ", "Chêne"},
		CoverImage: &models.ImageInput{URL: "/uploads/blog/cover.jpg", AltText: "table huilée"},
	})
	require.NoError(t, err)
	assert.Equal(t, "entretenir-le-bois-massif", post.Slug)
	assert.Equal(t, models.PostStatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, models.StringList{"entretien", "chêne"}, post.Tags)
	assert.Equal(t, "table huilée", post.CoverImage.AltText)
	require.NotNil(t, post.Author)
	assert.Equal(t, "Atelier", post.Author.Name)

	_, err = createPost(ctx, db, author, PostInput{Title: ptr("entretenir le bois massif"), Content: ptr("x")})
	e := appErr(t, err)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
	assert.Equal(t, "title", e.Field)

	_, err = createPost(ctx, db, author, PostInput{Title: ptr("Autre titre"), Slug: ptr("Entretenir le bois massif"), Content: ptr("x")})
	e = appErr(t, err)
	assert.Equal(t, "slug", e.Field)

	_, err = createPost(ctx, db, author, PostInput{Title: ptr("Sans contenu")})
	assert.Equal(t, apperrors.KindValidation, appErr(t, err).Kind)

	_, err = createPost(ctx, db, author, PostInput{Title: ptr("Statut"), Content: ptr("x"), Status: ptr("archived")})
	assert.Equal(t, apperrors.KindValidation, appErr(t, err).Kind)
}

func TestUpdatePost(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	post, err := createPost(ctx, db, auth.Identity{}, PostInput{Title: ptr("Premier jet"), Content: ptr("brouillon")})
	require.NoError(t, err)
	assert.Nil(t, post.AuthorID)

	updated, err := updatePost(ctx, db, post.ID, PostInput{Title: ptr("Version finale"), Status: ptr("published")})
	require.NoError(t, err)
	assert.Equal(t, "version-finale", updated.Slug)
	assert.Equal(t, "brouillon", updated.Content)
	require.NotNil(t, updated.PublishedAt)
	firstPublished := *updated.PublishedAt

	updated, err = updatePost(ctx, db, post.ID, PostInput{Title: ptr("Version finale bis"), Slug: ptr("ma-version")})
	require.NoError(t, err)
	assert.Equal(t, "ma-version", updated.Slug)

	updated, err = updatePost(ctx, db, post.ID, PostInput{Status: ptr("draft")})
	require.NoError(t, err)
	updated, err = updatePost(ctx, db, post.ID, PostInput{Status: ptr("published")})
	require.NoError(t, err)
	assert.True(t, updated.PublishedAt.Equal(firstPublished), "first publication date is kept")

	_, err = updatePost(ctx, db, "nope", PostInput{})
	assert.Equal(t, apperrors.KindNotFound, appErr(t, err).Kind)

	require.NoError(t, deletePost(ctx, db, post.ID))
	assert.Equal(t, apperrors.KindNotFound, appErr(t, deletePost(ctx, db, post.ID)).Kind)
}

func TestPublicPostsAndViews(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	_, err := createPost(ctx, db, auth.Identity{}, PostInput{Title: ptr("Le chêne"), Content: ptr("dur"), Tags: &[]string{"essences"}, Status: ptr("published")})
	require.NoError(t, err)
	_, err = createPost(ctx, db, auth.Identity{}, PostInput{Title: ptr("Le pin"), Content: ptr("tendre"), Tags: &[]string{"essences"}})
	require.NoError(t, err)
	_, err = createPost(ctx, db, auth.Identity{}, PostInput{Title: ptr("Nos ateliers"), Content: ptr("visite"), Status: ptr("published")})
	require.NoError(t, err)

	params := pagination.Params{Page: 1, PageSize: 10, Sort: pagination.Sort{Field: "title"}}

	public, err := listPosts(ctx, db, PostQuery{Status: models.PostStatusPublished}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), public.Total)

	tagged, err := listPosts(ctx, db, PostQuery{Status: models.PostStatusPublished, Tag: "Essences"}, params)
	require.NoError(t, err)
	require.Equal(t, int64(1), tagged.Total)
	assert.Equal(t, "le-chene", tagged.Items[0].Slug)

	all, err := listPosts(ctx, db, PostQuery{Search: "PIN"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), all.Total)

	post, err := getPublishedPost(ctx, db, "le-chene")
	require.NoError(t, err)
	assert.Equal(t, 1, post.Views)
	post, err = getPublishedPost(ctx, db, "le-chene")
	require.NoError(t, err)
	assert.Equal(t, 2, post.Views)

	_, err = getPublishedPost(ctx, db, "le-pin")
	assert.Equal(t, apperrors.KindNotFound, appErr(t, err).Kind)
}
