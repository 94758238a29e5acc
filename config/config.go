package config

import (
	"os"
	"strconv"
)

// Config holds the server settings read from the environment
type Config struct {
	Port        string
	DBType      string
	DatabaseURL string
	DBFile      string
	LogLevel    string
	LogFormat   string
	LocaleDir   string
	Locale      string
	MaxRetries  int
}

// Load reads the configuration from environment variables, applying defaults
func Load() Config {
	cfg := Config{
		Port:        getenv("PORT", "8080"),
		DBType:      getenv("DB_TYPE", "json"),
		DatabaseURL: getenv("DATABASE_URL", "host=localhost user=terminus password=terminus dbname=terminus_maps sslmode=disable"),
		DBFile:      getenv("DB_FILE", "maps.json"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "text"),
		LocaleDir:   getenv("LOCALE_DIR", ""),
		Locale:      getenv("LOCALE", "en_US"),
		MaxRetries:  10,
	}

	if v := os.Getenv("GEN_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
