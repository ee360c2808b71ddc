package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hpungsan/calcard/internal/food"
)

// DefaultFDCBaseURL is the public FoodData Central API root.
const DefaultFDCBaseURL = "https://api.nal.usda.gov/fdc/v1"

// Environment variables that override file configuration.
const (
	EnvAPIKey  = "FDC_API_KEY"
	EnvBaseURL = "FDC_BASE_URL"
	EnvLogEnv  = "CALCARD_ENV"
)

// Config holds application configuration.
type Config struct {
	// FDCBaseURL is the FoodData Central API root (no trailing slash needed)
	FDCBaseURL string `json:"fdc_base_url,omitempty"`

	// FDCAPIKey is the default API key. Usually supplied via FDC_API_KEY or .env
	// rather than a config file.
	FDCAPIKey string `json:"fdc_api_key,omitempty"`

	// PageSize is the number of candidates requested per search.
	PageSize int `json:"page_size,omitempty"`

	// DataTypes filters the first search attempt. Unlike the other lists, an
	// overlay replaces the base list instead of merging with it.
	DataTypes []string `json:"data_types,omitempty"`

	// RoundTo is the calorie rounding granularity. 1 (or negative) rounds to
	// whole kcal; 0 means "not set" and falls back to the default of 5.
	RoundTo int `json:"round_to,omitempty"`

	// MaxAttempts is the per-request attempt budget, including the first try.
	MaxAttempts int `json:"max_attempts,omitempty"`

	// InitialBackoffMS and MaxBackoffMS bound the exponential retry delay.
	InitialBackoffMS int `json:"initial_backoff_ms,omitempty"`
	MaxBackoffMS     int `json:"max_backoff_ms,omitempty"`

	// HTTPTimeoutSeconds is the per-attempt HTTP client timeout.
	HTTPTimeoutSeconds int `json:"http_timeout_seconds,omitempty"`

	// MaxConcurrentLookups bounds fan-out when totaling a meal.
	MaxConcurrentLookups int `json:"max_concurrent_lookups,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogEnv selects the log encoder: "production" (JSON, default) or "development".
	LogEnv string `json:"log_env,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		FDCBaseURL:           DefaultFDCBaseURL,
		PageSize:             25,
		DataTypes:            append([]string(nil), food.DefaultDataTypes...),
		RoundTo:              food.DefaultRoundTo,
		MaxAttempts:          3,
		InitialBackoffMS:     250,
		MaxBackoffMS:         2000,
		HTTPTimeoutSeconds:   20,
		MaxConcurrentLookups: 4,
		LogEnv:               "production",
	}
}

// Load loads configuration from baseDir/config.json, then applies baseDir/.env
// and the process environment. Returns defaults if no file exists.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.calcard.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.calcard) and repo (.calcard) directories.
// Repo config is found by walking upward from startDir to find the nearest .calcard/config.json.
// Repo config takes precedence for scalar values. Either or both configs may be missing.
// A .env file in startDir is applied last, followed by the process environment.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg, filepath.Join(startDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .calcard/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".calcard", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv loads envFile (if present) into the process environment without
// overriding variables that are already set, then copies the recognized
// variables onto cfg.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.FDCAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.FDCBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogEnv)); v != "" {
		cfg.LogEnv = v
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; DisabledTools is merged and
// deduplicated; DataTypes is replaced when the overlay sets it.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.FDCBaseURL = firstString(overlay.FDCBaseURL, base.FDCBaseURL)
	result.FDCAPIKey = firstString(overlay.FDCAPIKey, base.FDCAPIKey)
	result.LogEnv = firstString(overlay.LogEnv, base.LogEnv)

	result.PageSize = firstInt(overlay.PageSize, base.PageSize)
	result.RoundTo = firstInt(overlay.RoundTo, base.RoundTo)
	result.MaxAttempts = firstInt(overlay.MaxAttempts, base.MaxAttempts)
	result.InitialBackoffMS = firstInt(overlay.InitialBackoffMS, base.InitialBackoffMS)
	result.MaxBackoffMS = firstInt(overlay.MaxBackoffMS, base.MaxBackoffMS)
	result.HTTPTimeoutSeconds = firstInt(overlay.HTTPTimeoutSeconds, base.HTTPTimeoutSeconds)
	result.MaxConcurrentLookups = firstInt(overlay.MaxConcurrentLookups, base.MaxConcurrentLookups)

	result.DataTypes = mergeStringSlice(nil, base.DataTypes)
	if overlayTypes := mergeStringSlice(nil, overlay.DataTypes); overlayTypes != nil {
		result.DataTypes = overlayTypes
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
