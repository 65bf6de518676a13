package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds the database connection configuration. The staging, warehouse
// and control tables all live in one database; each stage receives the pool
// explicitly instead of reading ambient globals.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultConfig returns a database configuration from environment variables
// with local-development defaults.
func DefaultConfig() Config {
	return Config{
		Host:     getEnv("DW_DB_HOST", "localhost"),
		Port:     getEnvInt("DW_DB_PORT", 5432),
		User:     getEnv("DW_DB_USER", "phonewatch"),
		Password: getEnv("DW_DB_PASSWORD", "phonewatch"),
		DBName:   getEnv("DW_DB_NAME", "phonewatch"),
		SSLMode:  getEnv("DW_DB_SSL_MODE", "disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Connect opens a connection pool for the given configuration.
func Connect(config Config) (*sqlx.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	pool, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)
	pool.SetConnMaxLifetime(5 * time.Minute)

	log.Printf("Connected to database at %s:%d/%s", config.Host, config.Port, config.DBName)
	return pool, nil
}
