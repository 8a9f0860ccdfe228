package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

// Config holds all application configuration
type Config struct {
	Port            int
	LogLevel        string
	TickInterval    time.Duration
	TickStep        int
	SettleDelay     time.Duration
	ChecksFile      string // Optional YAML check list (watched for changes)
	Retention       time.Duration
	CleanupSchedule string // Cron spec for registry cleanup
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnvInt("SWASHAKTI_PORT", 8080),
		LogLevel:        getEnv("SWASHAKTI_LOG_LEVEL", "info"),
		TickInterval:    getEnvDuration("SWASHAKTI_TICK_INTERVAL", scan.DefaultInterval),
		TickStep:        getEnvInt("SWASHAKTI_TICK_STEP", scan.DefaultStep),
		SettleDelay:     getEnvDelay("SWASHAKTI_SETTLE_DELAY", scan.DefaultSettleDelay),
		ChecksFile:      ExpandPath(getEnv("SWASHAKTI_CHECKS_FILE", "")),
		Retention:       getEnvDuration("SWASHAKTI_RETENTION", 24*time.Hour),
		CleanupSchedule: getEnv("SWASHAKTI_CLEANUP_SCHEDULE", "@every 10m"),
	}
}

// ScanOptions converts the timing settings to engine options
func (c *Config) ScanOptions() []scan.Option {
	return []scan.Option{
		scan.WithInterval(c.TickInterval),
		scan.WithStep(c.TickStep),
		scan.WithSettleDelay(c.SettleDelay),
	}
}

// ChecksFileConfig is the YAML layout of a check list file
type ChecksFileConfig struct {
	Checks []scan.Check `yaml:"checks"`
}

// LoadChecks reads a check list from a YAML file
func LoadChecks(path string) ([]scan.Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ChecksFileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(cfg.Checks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, scan.ErrInvalidCheckList)
	}
	for i, c := range cfg.Checks {
		if strings.TrimSpace(c.Label) == "" {
			return nil, fmt.Errorf("%s: check %d has no label", path, i+1)
		}
	}

	return cfg.Checks, nil
}

// ExpandPath expands a leading ~ to the user's home directory and cleans the path
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a strictly positive duration
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	return parseEnvDuration(key, defaultVal, false)
}

// getEnvDelay reads a duration that may be zero
func getEnvDelay(key string, defaultVal time.Duration) time.Duration {
	return parseEnvDuration(key, defaultVal, true)
}

func parseEnvDuration(key string, defaultVal time.Duration, allowZero bool) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		logger.Warnf("config: ignoring %s=%q, using %v", key, val, defaultVal)
		return defaultVal
	}
	return d
}
