// Package config centralises configuration parsing for the cronograma service.
package config

import (
	"os"
	"strconv"
)

// Config captures runtime configuration values for the cronograma service.
type Config struct {
	HTTPAddress         string
	DBPath              string
	BackupPath          string
	BackupEnabled       bool
	BackupSchedule      string // cron expression, five fields
	BackupRetentionDays int
	LogLevel            string
	CORSOrigin          string
	Environment         string
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() Config {
	return Config{
		HTTPAddress:         getEnv("HTTP_ADDRESS", ":3000"),
		DBPath:              getEnv("DB_PATH", "database/cronograma.db"),
		BackupPath:          getEnv("BACKUP_PATH", "backups"),
		BackupEnabled:       getBoolEnv("BACKUP_ENABLED", false),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 2 * * *"),
		BackupRetentionDays: getIntEnv("BACKUP_RETENTION_DAYS", 30),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSOrigin:          getEnv("CORS_ORIGIN", "*"),
		Environment:         getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
