package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_EXPIRES_IN", "")
	t.Setenv("SHIPPING_STANDARD_COST", "")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("ADMIN_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 10, cfg.MaxUploadFiles)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.True(t, cfg.Shipping.Standard.Equal(decimal.NewFromInt(5)))
	assert.True(t, cfg.Shipping.Express.Equal(decimal.NewFromInt(15)))
	assert.True(t, cfg.Shipping.FreeThreshold.IsZero())
}

func TestLoadRejectsMissingSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadReportsEveryBadValue(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_EXPIRES_IN", "soon")
	t.Setenv("SHIPPING_EXPRESS_COST", "cheap")
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_EXPIRES_IN")
	assert.Contains(t, err.Error(), "SHIPPING_EXPRESS_COST")
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestDSNs(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "shop", DBPassword: "pw", DBName: "wud", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=shop password=pw dbname=wud port=5432 sslmode=disable", cfg.PostgresDSN())
	assert.Equal(t, "shop:pw@tcp(db:3306)/wud?parseTime=true&charset=utf8mb4&loc=Local", cfg.MySQLDSN())

	cfg.DatabaseURL = "postgres://u:p@h/db"
	assert.Equal(t, "postgres://u:p@h/db", cfg.PostgresDSN())
}

func TestAdminCredentialsMustBePaired(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ADMIN_EMAIL", "owner@wud.test")
	t.Setenv("ADMIN_PASSWORD", "")

	_, err := Load()
	require.Error(t, err)
}
