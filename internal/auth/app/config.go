package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Issuer string `toml:"issuer"` // Issuer name shown in authenticator apps

	DatabaseFile string `toml:"database_file"` // Path to SQLite database file (default: ./auth.db)
	PepperFile   string `toml:"pepper_file"`   // Path to pepper file for password hashing (default: ./pepper)
	MFAKeyFile   string `toml:"mfa_key_file"`  // Path to generated MFA encryption key (default: ./mfa.key)

	// Optional bootstrap admin, created only when the user table is empty
	AdminUsername string `toml:"admin_username"`
	AdminPassword string `toml:"admin_password"`

	Env                  string        `toml:"env"`                   // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `toml:"log_level"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `toml:"log_format"`            // Log format (json, text) (default: json)
	Port                 int           `toml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `toml:"-"`                     // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `toml:"-"`                     // Housekeeping interval (default: 1h)
	ShutdownGraceStr     string        `toml:"shutdown_grace_period"` // Duration string form for the config file
	HousekeepingStr      string        `toml:"housekeeping_interval"` // Duration string form for the config file
}

// LoadConfig builds the configuration from defaults, an optional TOML file
// (AUTH_CONFIG_FILE), and environment variables, in increasing precedence.
func LoadConfig() (Config, error) {
	cfg := Config{
		Issuer:               "NodeWatch",
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		MFAKeyFile:           "mfa.key",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
	}

	if file := os.Getenv("AUTH_CONFIG_FILE"); file != "" {
		if _, err := toml.DecodeFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", file, err)
		}
		if cfg.ShutdownGraceStr != "" {
			d, err := time.ParseDuration(cfg.ShutdownGraceStr)
			if err != nil {
				return Config{}, fmt.Errorf("config file %s: shutdown_grace_period: %w", file, err)
			}
			cfg.ShutdownGracePeriod = d
		}
		if cfg.HousekeepingStr != "" {
			d, err := time.ParseDuration(cfg.HousekeepingStr)
			if err != nil {
				return Config{}, fmt.Errorf("config file %s: housekeeping_interval: %w", file, err)
			}
			cfg.HousekeepingInterval = d
		}
	}

	cfg.Issuer = getEnvOrDefault("AUTH_ISSUER", cfg.Issuer)
	cfg.DatabaseFile = getEnvOrDefault("AUTH_DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", cfg.PepperFile)
	cfg.MFAKeyFile = getEnvOrDefault("AUTH_MFA_KEY_FILE", cfg.MFAKeyFile)
	cfg.AdminUsername = getEnvOrDefault("AUTH_ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnvOrDefault("AUTH_ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)

	return cfg, nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
