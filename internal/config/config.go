package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file.
const ConfigFileEnv = "EXPENSE_CONFIG_FILE"

type Config struct {
	// Storage
	DataDir string `yaml:"data_dir"`
	DBName  string `yaml:"db_name"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Vendor suggestions and search
	VendorSuggestionLimit int           `yaml:"vendor_suggestion_limit"`
	PopularVendorLimit    int           `yaml:"popular_vendor_limit"`
	SearchDebounce        time.Duration `yaml:"search_debounce"`
	VendorCacheSize       int           `yaml:"vendor_cache_size"`
	VendorCacheTTL        time.Duration `yaml:"vendor_cache_ttl"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	// File is the YAML file the values were read from, if any.
	File string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		DataDir:               "./data",
		DBName:                "ExpenseTracker.db",
		LogLevel:              "info",
		LogFormat:             "text",
		VendorSuggestionLimit: 10,
		PopularVendorLimit:    50,
		SearchDebounce:        300 * time.Millisecond,
		VendorCacheSize:       100,
		VendorCacheTTL:        5 * time.Minute,
		MetricsEnabled:        true,
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by EXPENSE_CONFIG_FILE, then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DataDir = getEnv("EXPENSE_DATA_DIR", cfg.DataDir)
	cfg.DBName = getEnv("EXPENSE_DB_NAME", cfg.DBName)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.VendorSuggestionLimit = getEnvInt("VENDOR_SUGGESTION_LIMIT", cfg.VendorSuggestionLimit)
	cfg.PopularVendorLimit = getEnvInt("POPULAR_VENDOR_LIMIT", cfg.PopularVendorLimit)
	cfg.SearchDebounce = getEnvDuration("SEARCH_DEBOUNCE", cfg.SearchDebounce)
	cfg.VendorCacheSize = getEnvInt("VENDOR_CACHE_SIZE", cfg.VendorCacheSize)
	cfg.VendorCacheTTL = getEnvDuration("VENDOR_CACHE_TTL", cfg.VendorCacheTTL)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.File = path
	return nil
}

// DBPath is the full path of the database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, c.DBName)
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var problems []string

	if c.DataDir == "" {
		problems = append(problems, "data directory cannot be empty")
	} else if _, err := os.Stat(c.DataDir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
		}
	}

	if c.DBName == "" {
		problems = append(problems, "database name cannot be empty")
	} else if strings.ContainsAny(c.DBName, `/\`) {
		problems = append(problems, fmt.Sprintf("invalid database name '%s': must not contain path separators", c.DBName))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if c.VendorSuggestionLimit < 1 || c.VendorSuggestionLimit > 100 {
		problems = append(problems, fmt.Sprintf("invalid vendor suggestion limit %d: must be between 1 and 100", c.VendorSuggestionLimit))
	}
	if c.PopularVendorLimit < 1 || c.PopularVendorLimit > 500 {
		problems = append(problems, fmt.Sprintf("invalid popular vendor limit %d: must be between 1 and 500", c.PopularVendorLimit))
	}

	if c.SearchDebounce < 0 {
		problems = append(problems, fmt.Sprintf("invalid search debounce %v: must not be negative", c.SearchDebounce))
	} else if c.SearchDebounce > 5*time.Second {
		problems = append(problems, fmt.Sprintf("invalid search debounce %v: must be at most 5 seconds", c.SearchDebounce))
	}

	if c.VendorCacheSize < 0 {
		problems = append(problems, fmt.Sprintf("invalid vendor cache size %d: must not be negative", c.VendorCacheSize))
	}
	if c.VendorCacheSize > 0 && c.VendorCacheTTL < time.Second {
		problems = append(problems, fmt.Sprintf("invalid vendor cache TTL %v: must be at least 1 second", c.VendorCacheTTL))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
