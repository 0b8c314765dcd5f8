// Package config loads runtime configuration from the environment.
// Every value has a development-friendly default; nothing is required
// except SMTP settings when email is enabled.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the full runtime configuration.
type Config struct {
	Addr        string
	DBPath      string
	DatabaseURL string // when set, PostgreSQL is used instead of SQLite

	// The administrator account is configured, not stored. Login
	// compares these values verbatim; there is no credential hashing
	// anywhere in the system.
	AdminEmail    string
	AdminPassword string
	AdminName     string

	AllowedOrigins []string

	EmailEnabled bool
	EmailFrom    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPUseTLS   bool
}

// Load reads the environment.
func Load() Config {
	return Config{
		Addr:           getEnv("APP_ADDR", ":8080"),
		DBPath:         getEnv("DB_PATH", "dayoff.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		AdminEmail:     getEnv("ADMIN_EMAIL", "admin@company.com"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "admin1234"),
		AdminName:      getEnv("ADMIN_NAME", "管理員"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),
		EmailEnabled:   getEnvBool("EMAIL_ENABLED", false),
		EmailFrom:      getEnv("EMAIL_FROM", "no-reply@company.com"),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:     getEnvBool("SMTP_USE_TLS", true),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
