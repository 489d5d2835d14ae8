package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	Port       string
	GinMode    string
	CORSOrigin string
	LogLevel   string
	LogFile    string
	JWTSecret  string
	DB         DBConfig
}

type DBConfig struct {
	Driver     string // "postgres" or "sqlite"
	URL        string
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the connection string for the configured driver.
func (c DBConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// Production hides internal error messages from API responses.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:        os.Getenv("ENV"),
		Port:       getenv("PORT", "8080"),
		GinMode:    os.Getenv("GIN_MODE"),
		CORSOrigin: getenv("CORS_ORIGIN", "http://localhost:5173"),
		LogLevel:   getenv("LOG_LEVEL", "INFO"),
		LogFile:    os.Getenv("LOG_FILE"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		DB: DBConfig{
			Driver:     getenv("DB_DRIVER", "postgres"),
			URL:        os.Getenv("DATABASE_URL"),
			Host:       getenv("DB_HOST", "localhost"),
			User:       os.Getenv("DB_USER"),
			Password:   os.Getenv("DB_PASSWORD"),
			Name:       os.Getenv("DB_NAME"),
			Port:       getenv("DB_PORT", "5432"),
			SSLMode:    getenv("DB_SSLMODE", "disable"),
			SQLitePath: getenv("SQLITE_PATH", "gmao.db"),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	switch cfg.DB.Driver {
	case "postgres":
		if cfg.DB.URL == "" && cfg.DB.Name == "" {
			return nil, fmt.Errorf("DATABASE_URL or DB_NAME is required for postgres")
		}
	case "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
