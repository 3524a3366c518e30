package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Directory connection
	DirectoryURL      string        // Required: ldap://host:389 or ldaps://host:636
	DirectoryBindDN   string        // Required: service account DN or UPN
	DirectoryBindPass string        // Required: service account secret
	DirectoryBaseDN   string        // Required: DC=corp,DC=example,DC=com
	DirectorySearch   string        // Optional: subtree holding person entries (default: base DN)
	DirectoryDomain   string        // Optional: UPN suffix for user binds, corp.example.com
	DirectoryStartTLS bool          // Optional: upgrade plain connections with StartTLS (default: true)
	DirectoryTimeout  time.Duration // Optional: per-operation deadline (default: 10s)
	DirectoryPoolSize int           // Optional: pooled service sessions (default: 4)

	// Tokens
	Issuer     string        // Optional: issuer claim for tokens (default: adbridge)
	AccessTTL  time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL time.Duration // Optional: refresh token lifetime (default: 168h)

	// Storage and catalog
	DatabaseFile string // Optional: path to SQLite database file (default: ./adbridge.db)
	CatalogFile  string // Optional: JSON catalog override, built-in catalog when empty

	// Transfers and sync
	TransferConcurrency int // Optional: parallel moves within a batch (default: 4)

	// Runtime
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired token cleanup interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		DirectoryURL:      os.Getenv("AD_URL"),
		DirectoryBindDN:   os.Getenv("AD_BIND_DN"),
		DirectoryBindPass: os.Getenv("AD_BIND_SECRET"),
		DirectoryBaseDN:   os.Getenv("AD_BASE_DN"),
		DirectorySearch:   os.Getenv("AD_SEARCH_BASE"),
		DirectoryDomain:   os.Getenv("AD_DOMAIN"),
		DirectoryStartTLS: getEnvBoolOrDefault("AD_STARTTLS", true),
		DirectoryTimeout:  getEnvDurationOrDefault("AD_TIMEOUT", 10*time.Second),
		DirectoryPoolSize: getEnvIntOrDefault("AD_POOL_SIZE", 4),

		Issuer:     getEnvOrDefault("BRIDGE_ISSUER", "adbridge"),
		AccessTTL:  getEnvDurationOrDefault("BRIDGE_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("BRIDGE_REFRESH_TTL", 7*24*time.Hour),

		DatabaseFile: getEnvOrDefault("BRIDGE_DATABASE_FILE", "adbridge.db"),
		CatalogFile:  os.Getenv("BRIDGE_CATALOG_FILE"),

		TransferConcurrency: getEnvIntOrDefault("BRIDGE_TRANSFER_CONCURRENCY", 4),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
