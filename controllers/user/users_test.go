package usercontroller

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

func seed(t *testing.T, db *gorm.DB, name, email string, role models.Role) *models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, Role: role, Provider: models.ProviderLocal}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func kind(t *testing.T, err error) apperrors.Kind {
	t.Helper()
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr), "expected an app error, got %v", err)
	return appErr.Kind
}

func TestListUsers(t *testing.T) {
	db := dbtest.New(t)
	seed(t, db, "Amal", "amal@wud.test", models.RoleAdmin)
	seed(t, db, "Bilel", "bilel@wud.test", models.RoleClient)
	seed(t, db, "Chaima", "chaima@example.com", models.RoleClient)

	params := pagination.Params{Page: 1, PageSize: 20, Sort: pagination.Sort{Field: "name"}}
	ctx := context.Background()

	clients, err := listUsers(ctx, db, UserQuery{Role: models.RoleClient}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), clients.Total)
	assert.Equal(t, "Bilel", clients.Items[0].Name)

	found, err := listUsers(ctx, db, UserQuery{Search: "WUD.TEST"}, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Total)
}

func TestUpdateRole(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	admin := seed(t, db, "Amal", "amal@wud.test", models.RoleAdmin)
	client := seed(t, db, "Bilel", "bilel@wud.test", models.RoleClient)
	actor := auth.Identity{UserID: admin.ID, Role: models.RoleAdmin}

	promoted, err := updateRole(ctx, db, actor, client.ID, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	_, err = updateRole(ctx, db, actor, admin.ID, "client")
	assert.Equal(t, apperrors.KindForbidden, kind(t, err))

	_, err = updateRole(ctx, db, actor, client.ID, "owner")
	assert.Equal(t, apperrors.KindValidation, kind(t, err))

	_, err = updateRole(ctx, db, actor, "42", "client")
	assert.Equal(t, apperrors.KindNotFound, kind(t, err))
}
