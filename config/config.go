package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const devJWTSecret = "dev-secret-change-me"

// ShippingRates holds the flat costs of the two shipping tiers.
// A zero FreeThreshold disables free shipping.
type ShippingRates struct {
	Standard      decimal.Decimal
	Express       decimal.Decimal
	FreeThreshold decimal.Decimal
}

type Config struct {
	Env  string
	Port string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	JWTSecret    string
	JWTExpiresIn time.Duration

	CORSOrigins []string

	UploadDir        string
	UploadPublicPath string
	MaxUploadFiles   int
	MaxUploadSize    int64

	BackupDir       string
	BackupHour      int
	BackupRetention time.Duration

	Shipping          ShippingRates
	LowStockThreshold int

	AdminEmail    string
	AdminPassword string
	AdminAPIKey   string

	FirebaseCredentialsJSON string
	FirebaseProjectID       string
}

func (c Config) IsProduction() bool { return c.Env == "production" }

// GoogleSignInEnabled reports whether Firebase credentials were supplied.
func (c Config) GoogleSignInEnabled() bool {
	return c.FirebaseCredentialsJSON != "" && c.FirebaseProjectID != ""
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:  strings.ToLower(getEnv("APP_ENV", "development")),
		Port: getEnv("PORT", "8080"),

		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      os.Getenv("DB_PORT"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBName:      getEnv("DB_NAME", "wud_shop"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),

		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		UploadPublicPath: strings.TrimRight(getEnv("UPLOAD_PUBLIC_PATH", "/uploads"), "/"),
		BackupDir:        os.Getenv("BACKUP_DIR"),

		AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminAPIKey:   os.Getenv("ADMIN_API_KEY"),

		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
	}

	var errs []error
	var err error

	if cfg.JWTExpiresIn, err = durationEnv("JWT_EXPIRES_IN", time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.BackupRetention, err = durationEnv("BACKUP_RETENTION", 4*24*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxUploadFiles, err = intEnv("MAX_UPLOAD_FILES", 10); err != nil {
		errs = append(errs, err)
	}
	maxSizeMB, err := intEnv("MAX_UPLOAD_SIZE_MB", 5)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxUploadSize = int64(maxSizeMB) << 20
	if cfg.BackupHour, err = intEnv("BACKUP_HOUR", 2); err != nil {
		errs = append(errs, err)
	}
	if cfg.LowStockThreshold, err = intEnv("LOW_STOCK_THRESHOLD", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.Shipping.Standard, err = decimalEnv("SHIPPING_STANDARD_COST", decimal.NewFromInt(5)); err != nil {
		errs = append(errs, err)
	}
	if cfg.Shipping.Express, err = decimalEnv("SHIPPING_EXPRESS_COST", decimal.NewFromInt(15)); err != nil {
		errs = append(errs, err)
	}
	if cfg.Shipping.FreeThreshold, err = decimalEnv("FREE_SHIPPING_THRESHOLD", decimal.Zero); err != nil {
		errs = append(errs, err)
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (postgres, mysql, sqlite)", c.DBDriver)
	}
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be set in production")
		}
		log.Println("⚠️ JWT_SECRET not set, using the development secret")
		c.JWTSecret = devJWTSecret
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.BackupHour < 0 || c.BackupHour > 23 {
		return fmt.Errorf("BACKUP_HOUR must be between 0 and 23, got %d", c.BackupHour)
	}
	if c.MaxUploadFiles < 1 {
		return errors.New("MAX_UPLOAD_FILES must be at least 1")
	}
	if c.Shipping.Standard.IsNegative() || c.Shipping.Express.IsNegative() {
		return errors.New("shipping costs cannot be negative")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete DB_* keys.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	port := c.DBPort
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, port, c.DBSSLMode,
	)
}

func (c Config) MySQLDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	port := c.DBPort
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=Local",
		c.DBUser, c.DBPassword, c.DBHost, port, c.DBName,
	)
}

func (c Config) SQLitePath() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "wud_shop.db"
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return d, nil
}

func decimalEnv(key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
