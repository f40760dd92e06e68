package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the pagelens agent.
type Config struct {
	// CDP connection settings
	CDPAddress string
	CDPPort    int

	// Provider behavior
	CapabilityTier   string
	ProbeTimeoutMS   int
	CommandTimeoutMS int

	// HTTP API
	BindAddr string

	// Artifact persistence
	ArtifactDir string

	// Browser bootstrap
	LaunchBrowser bool
	StartURL      string
	ProfileDir    string
	WindowSize    string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		CDPAddress:       getEnvOrDefault("PAGELENS_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("PAGELENS_CDP_PORT", 9222),
		CapabilityTier:   strings.ToLower(getEnvOrDefault("PAGELENS_CAPABILITY_TIER", "full")),
		ProbeTimeoutMS:   getEnvIntOrDefault("PAGELENS_PROBE_TIMEOUT_MS", 3000),
		CommandTimeoutMS: getEnvIntOrDefault("PAGELENS_COMMAND_TIMEOUT_MS", 30000),
		BindAddr:         getEnvOrDefault("PAGELENS_BIND_ADDR", "127.0.0.1:8330"),
		ArtifactDir:      getEnvOrDefault("PAGELENS_ARTIFACT_DIR", "./artifacts"),
		LaunchBrowser:    getEnvBoolOrDefault("PAGELENS_LAUNCH_BROWSER", false),
		StartURL:         getEnvOrDefault("PAGELENS_START_URL", "about:blank"),
		ProfileDir:       getEnvOrDefault("PAGELENS_PROFILE_DIR", ""),
		WindowSize:       getEnvOrDefault("PAGELENS_WINDOW_SIZE", "1920,1080"),
		LogLevel:         strings.ToLower(getEnvOrDefault("PAGELENS_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("PAGELENS_LOG_FILE", "logs/pagelens.log"),
	}

	if cfg.ProbeTimeoutMS < 500 {
		cfg.ProbeTimeoutMS = 500
	}
	if cfg.CommandTimeoutMS < 1000 {
		cfg.CommandTimeoutMS = 1000
	}

	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint base, e.g. "http://127.0.0.1:9222".
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
