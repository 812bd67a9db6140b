package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/AymenMB/wud-sub001/auth"
	"github.com/AymenMB/wud-sub001/config"
	ordercontroller "github.com/AymenMB/wud-sub001/controllers/order"
	"github.com/AymenMB/wud-sub001/database"
	"github.com/AymenMB/wud-sub001/middleware"
	"github.com/AymenMB/wud-sub001/routes"
	"github.com/AymenMB/wud-sub001/uploads"
)

func main() {
	log.Println("✅ Starting application...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("❌ DB connection failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("❌ Admin seed failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := routes.Dependencies{
		DB:     db,
		Config: cfg,
		Tokens: auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn),
		Uploads: &uploads.Store{
			Dir:         cfg.UploadDir,
			PublicPath:  cfg.UploadPublicPath,
			MaxFiles:    cfg.MaxUploadFiles,
			MaxFileSize: cfg.MaxUploadSize,
		},
		Orders: ordercontroller.NewHub(cfg.CORSOrigins),
	}

	// Google sign-in stays disabled (503) unless Firebase is configured.
	if cfg.GoogleSignInEnabled() {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsJSON, cfg.FirebaseProjectID)
		if err != nil {
			log.Printf("⚠️ Google sign-in disabled: %v", err)
		} else {
			deps.Google = verifier
		}
	}

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery(cfg.IsProduction()), middleware.ErrorHandler(cfg.IsProduction()))
	r.MaxMultipartMemory = int64(cfg.MaxUploadFiles) * cfg.MaxUploadSize

	allowAll := len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*"
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  allowAll,
		AllowOrigins:     originsUnless(allowAll, cfg.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}))

	// Serve uploaded images
	r.Static(cfg.UploadPublicPath, cfg.UploadDir)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	routes.SetupRoutes(r, deps)

	if cfg.BackupDir != "" {
		go uploads.RunDailyBackup(ctx, cfg.UploadDir, cfg.BackupDir, cfg.BackupRetention, cfg.BackupHour)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("🚀 Server running on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	deps.Orders.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Forced shutdown: %v", err)
	}
}

func originsUnless(all bool, origins []string) []string {
	if all {
		return nil
	}
	return origins
}
