package db

import (
	"fmt"
	"time"

	"github.com/gmao/backend/internal/config"
	"github.com/gmao/backend/internal/logger"
	"github.com/gmao/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxConnectAttempts = 10

// newGormLogger reports failed SQL statements through w. A missing row
// is an expected answer for optional phase records and is not logged.
func newGormLogger(w gormlogger.Writer) gormlogger.Interface {
	return gormlogger.New(w, gormlogger.Config{
		LogLevel:                  gormlogger.Error,
		IgnoreRecordNotFoundError: true,
	})
}

// Connect opens the configured database. PostgreSQL connections are retried
// while the server comes up.
func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(logger.GetLogger()),
		TranslateError: true,
	}

	if cfg.Driver == "sqlite" {
		conn, err := gorm.Open(sqlite.Open(cfg.DSN()), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		logger.Info("Database connected successfully", map[string]interface{}{"driver": cfg.Driver})
		return conn, nil
	}

	var err error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		var conn *gorm.DB
		conn, err = gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
		if err == nil {
			logger.Info("Database connected successfully", map[string]interface{}{
				"driver":  cfg.Driver,
				"attempt": attempt,
			})
			return conn, nil
		}
		logger.Warn("Failed to connect to database", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxConnectAttempts, err)
}

// AutoMigrate creates or updates every table used by the workflow engine.
func AutoMigrate(conn *gorm.DB) error {
	for _, model := range models.All() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}
	logger.Info("All database migrations completed successfully", nil)
	return nil
}

// Ping checks that the underlying connection pool is reachable.
func Ping(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection not initialized")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
