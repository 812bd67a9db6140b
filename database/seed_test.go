package database_test

import (
	"context"
	"testing"

	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/database"
	"github.com/AymenMB/wud-sub001/database/dbtest"
	"github.com/AymenMB/wud-sub001/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdminCreatesAccount(t *testing.T) {
	db := dbtest.New(t)

	require.NoError(t, database.SeedAdmin(db, " Owner@Wud.test ", "s3cret!"))

	var admin models.User
	require.NoError(t, db.Where("email = ?", "owner@wud.test").First(&admin).Error)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, auth.CheckPassword(admin.PasswordHash, "s3cret!"), "seeded admin can log in")
	_, err := auth.Authenticate(context.Background(), db, "owner@wud.test", "s3cret!")
	assert.NoError(t, err)

	// Running it twice is harmless.
	require.NoError(t, database.SeedAdmin(db, "owner@wud.test", "s3cret!"))
	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSeedAdminPromotesExistingUser(t *testing.T) {
	db := dbtest.New(t)
	client := models.User{Name: "Sami", Email: "sami@wud.test", Role: models.RoleClient, Provider: models.ProviderLocal}
	require.NoError(t, db.Create(&client).Error)

	require.NoError(t, database.SeedAdmin(db, "sami@wud.test", "ignored"))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", client.ID).Error)
	assert.Equal(t, models.RoleAdmin, reloaded.Role)
}

func TestSeedAdminSkipsWithoutEmail(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.SeedAdmin(db, "", ""))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := dbtest.New(t)
	require.NoError(t, database.Migrate(db))
	for _, model := range models.All() {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
}
