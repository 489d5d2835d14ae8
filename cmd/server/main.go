package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gmao/backend/internal/config"
	"github.com/gmao/backend/internal/db"
	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/metrics"
	"github.com/gmao/backend/internal/middleware"
	"github.com/gmao/backend/internal/routes"
	"github.com/gmao/backend/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	logger.Initialize(cfg.LogLevel, cfg.LogFile)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Failed to migrate database", map[string]interface{}{"error": err.Error()})
	}

	if cfg.Env == "development" {
		logger.Info("Seeding database with initial data", nil)
		if err := seed.Run(context.Background(), conn); err != nil {
			logger.Warn("Failed to seed database", map[string]interface{}{"error": err.Error()})
		}
	}

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(metrics.Middleware())
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, conn, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting GMAO backend server", map[string]interface{}{
		"port":      cfg.Port,
		"gin_mode":  gin.Mode(),
		"db_driver": cfg.DB.Driver,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{"error": err.Error()})
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	<-ctx.Done()
	logger.Info("Shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("Server exited gracefully", nil)
}
