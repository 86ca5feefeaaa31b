package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config holds application configuration values.
type Config struct {
	Secret         string
	DatabaseDriver string
	DatabaseDSN    string
	HTTPPort       string
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	driver := os.Getenv("DATABASE_DRIVER")
	if driver != "postgres" && driver != "sqlite" {
		driver = "postgres"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		switch driver {
		case "sqlite":
			dsn = "capstock.db"
		default:
			host := os.Getenv("DB_HOST")
			if host == "" {
				host = "localhost"
			}
			user := os.Getenv("DB_USER")
			if user == "" {
				user = "postgres"
			}
			dbPort := os.Getenv("DB_PORT")
			if dbPort == "" {
				dbPort = "5432"
			}
			name := os.Getenv("DB_NAME")
			if name == "" {
				name = "capstock"
			}
			password := os.Getenv("DB_PASSWORD")

			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, dbPort, name)
		}
	}

	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		logrus.Warnf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	return Config{Secret: secret, DatabaseDriver: driver, DatabaseDSN: dsn, HTTPPort: port}
}
