package main

import (
	"github.com/gmao/backend/internal/config"
	"github.com/gmao/backend/internal/db"
	"github.com/gmao/backend/internal/logger"
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

	logger.Info("Running database migrations...", nil)
	if err := db.AutoMigrate(conn); err != nil {
		logger.Fatal("Migration failed", map[string]interface{}{"error": err.Error()})
	}
}
