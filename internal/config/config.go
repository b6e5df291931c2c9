// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Forum  ForumConfig
	Store  StoreConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8099)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 60s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// ForumConfig holds forum catalog API configuration.
type ForumConfig struct {
	// BaseURL is the forum catalog API root.
	BaseURL string
	// SiteURL is the public forum site used for topic redirects.
	SiteURL string
	// UserAgent identifies this instance to the forum.
	UserAgent string
	// Timeout bounds each forum HTTP request.
	Timeout time.Duration
	// MaxPages caps forum pages walked per retrieval run (default: 6).
	MaxPages int
	// ScanCap caps the ranked working set during search scans (default: 400).
	ScanCap int
	// TagThreshold is how many distinct keywords assign a category (default: 3).
	TagThreshold int
	// RateLimit is forum requests per second (default: 2).
	RateLimit float64
	// RetryAttempts is total tries per request before a transient fault
	// surfaces (default: 4).
	RetryAttempts int
	// RetryBase is the delay before the first retry (default: 600ms).
	RetryBase time.Duration
	// RetryFactor grows the delay per retry (default: 1.6).
	RetryFactor float64
	// RetryCeiling caps the retry delay (default: 4s).
	RetryCeiling time.Duration
}

// StoreConfig holds local catalog cache configuration.
type StoreConfig struct {
	// Enabled turns on the SQLite cache and background refresher.
	Enabled bool
	// Path is the SQLite database file location.
	Path string
	// RefreshInterval is the minimum gap between background crawls (default: 6h).
	RefreshInterval time.Duration
	// PruneAfter removes rows not seen by any crawl for this long (default: 168h).
	PruneAfter time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	serverPort := flag.String("port", "", "Server port (default: 8099)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 60s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	forumBaseURL := flag.String("forum-base-url", "", "Forum catalog API root")
	forumSiteURL := flag.String("forum-site-url", "", "Public forum site for topic links")
	forumTimeout := flag.String("forum-timeout", "", "Per-request forum timeout (default: 30s)")
	forumMaxPages := flag.String("forum-max-pages", "", "Max forum pages per run (default: 6)")
	forumScanCap := flag.String("forum-scan-cap", "", "Max retained items during search scans (default: 400)")
	tagThreshold := flag.String("tag-threshold", "", "Keyword hits required per category (default: 3)")

	storeEnabled := flag.String("store-enabled", "", "Enable the local SQLite cache (default: true)")
	storePath := flag.String("store-path", "", "SQLite database path")
	refreshInterval := flag.String("refresh-interval", "", "Minimum gap between crawls (default: 6h)")
	pruneAfter := flag.String("prune-after", "", "Retention for rows missing from crawls (default: 168h)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8099"),
		},
		Forum: ForumConfig{
			BaseURL:       getConfigValue(*forumBaseURL, "FORUM_BASE_URL", "https://community.home-assistant.io/api/blueprint_store"),
			SiteURL:       getConfigValue(*forumSiteURL, "FORUM_SITE_URL", "https://community.home-assistant.io"),
			UserAgent:     getConfigValue("", "FORUM_USER_AGENT", "BlueprintStore/1.0"),
			MaxPages:      getIntConfigValue(*forumMaxPages, "FORUM_MAX_PAGES", 6),
			ScanCap:       getIntConfigValue(*forumScanCap, "FORUM_SCAN_CAP", 400),
			TagThreshold:  getIntConfigValue(*tagThreshold, "TAG_THRESHOLD", 3),
			RateLimit:     getFloatConfigValue("", "FORUM_RATE_LIMIT", 2.0),
			RetryAttempts: getIntConfigValue("", "FORUM_RETRY_ATTEMPTS", 4),
			RetryFactor:   getFloatConfigValue("", "FORUM_RETRY_FACTOR", 1.6),
		},
		Store: StoreConfig{
			Enabled: getBoolConfigValue(*storeEnabled, "STORE_ENABLED", true),
			Path:    getConfigValue(*storePath, "STORE_PATH", ""),
		},
	}

	var err error
	cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	cfg.Forum.Timeout, err = parseDurationValue(*forumTimeout, "FORUM_TIMEOUT", "30s")
	if err != nil {
		return nil, fmt.Errorf("invalid forum timeout: %w", err)
	}
	cfg.Forum.RetryBase, err = parseDurationValue("", "FORUM_RETRY_BASE", "600ms")
	if err != nil {
		return nil, fmt.Errorf("invalid retry base delay: %w", err)
	}
	cfg.Forum.RetryCeiling, err = parseDurationValue("", "FORUM_RETRY_CEILING", "4s")
	if err != nil {
		return nil, fmt.Errorf("invalid retry ceiling: %w", err)
	}
	cfg.Store.RefreshInterval, err = parseDurationValue(*refreshInterval, "REFRESH_INTERVAL", "6h")
	if err != nil {
		return nil, fmt.Errorf("invalid refresh interval: %w", err)
	}
	cfg.Store.PruneAfter, err = parseDurationValue(*pruneAfter, "PRUNE_AFTER", "168h")
	if err != nil {
		return nil, fmt.Errorf("invalid prune retention: %w", err)
	}

	if err := cfg.expandStorePath(); err != nil {
		return nil, fmt.Errorf("invalid store path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Forum.BaseURL == "" {
		return errors.New("forum base URL is required")
	}
	if c.Forum.MaxPages < 1 {
		return fmt.Errorf("forum max pages must be at least 1, got %d", c.Forum.MaxPages)
	}
	if c.Forum.ScanCap < 1 {
		return fmt.Errorf("forum scan cap must be at least 1, got %d", c.Forum.ScanCap)
	}
	if c.Forum.TagThreshold < 1 {
		return fmt.Errorf("tag threshold must be at least 1, got %d", c.Forum.TagThreshold)
	}
	if c.Forum.RateLimit <= 0 {
		return fmt.Errorf("forum rate limit must be positive, got %g", c.Forum.RateLimit)
	}
	if c.Forum.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Forum.RetryAttempts)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	return nil
}

// expandStorePath expands ~ and makes the path absolute. Defaults to
// ~/.blueprint-store/catalog.db when unset.
func (c *Config) expandStorePath() error {
	if !c.Store.Enabled {
		return nil
	}

	path := c.Store.Path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".blueprint-store", "catalog.db")
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	c.Store.Path = filepath.Clean(path)
	return nil
}

// parseDurationValue resolves a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
