package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/pith/internal/pattern"
	"github.com/hpungsan/pith/internal/tokens"
)

// Config holds application configuration.
type Config struct {
	// MinLength is the minimum span length, in characters, worth replacing.
	MinLength int `json:"min_length"`

	// MaxTextChars bounds the size of any text accepted for compression or restoration.
	MaxTextChars int `json:"max_text_chars"`

	// Estimator selects the token estimator: "heuristic" or "tiktoken".
	Estimator string `json:"estimator,omitempty"`

	// TokenizerModel picks the tiktoken encoding. Unknown models fall back to cl100k_base.
	TokenizerModel string `json:"tokenizer_model,omitempty"`

	// CostPer1K is the price of 1000 tokens used for cost savings reports.
	CostPer1K float64 `json:"cost_per_1k,omitempty"`

	// BatchParallelism is the default worker count for batch compression.
	BatchParallelism int `json:"batch_parallelism,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledContentTypes turns off detection for the named content types.
	DisabledContentTypes []string `json:"disabled_content_types,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "json" or "console".
	LogFormat string `json:"log_format,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.pith/exports require either being in this list or AllowUnsafePaths=true.
	// Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MinLength:        pattern.DefaultMinLength,
		MaxTextChars:     1_000_000,
		Estimator:        tokens.KindHeuristic,
		TokenizerModel:   tokens.DefaultModel,
		CostPer1K:        0.03,
		BatchParallelism: 4,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.MinLength < 0 {
		return fmt.Errorf("min_length must be >= 0, got %d", c.MinLength)
	}
	if c.MaxTextChars < 0 {
		return fmt.Errorf("max_text_chars must be >= 0, got %d", c.MaxTextChars)
	}
	if c.CostPer1K < 0 {
		return fmt.Errorf("cost_per_1k must be >= 0, got %v", c.CostPer1K)
	}
	switch c.Estimator {
	case "", tokens.KindHeuristic, tokens.KindTiktoken:
	default:
		return fmt.Errorf("unknown estimator %q", c.Estimator)
	}
	switch c.LogFormat {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	for _, name := range c.DisabledContentTypes {
		if _, err := pattern.ParseContentType(name); err != nil {
			return err
		}
	}
	return nil
}

// EnabledContentTypes returns every content type not listed in DisabledContentTypes.
// Unknown names are ignored; Validate reports them.
func (c *Config) EnabledContentTypes() []pattern.ContentType {
	disabled := make(map[pattern.ContentType]bool, len(c.DisabledContentTypes))
	for _, name := range c.DisabledContentTypes {
		if t, err := pattern.ParseContentType(name); err == nil {
			disabled[t] = true
		}
	}
	var enabled []pattern.ContentType
	for _, t := range pattern.AllContentTypes() {
		if !disabled[t] {
			enabled = append(enabled, t)
		}
	}
	return enabled
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.pith.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.pith) and repo (.pith) directories.
// Repo config is found by walking upward from startDir to find the nearest .pith/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .pith/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".pith", "config.json")
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
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
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
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.MinLength = pickInt(overlay.MinLength, base.MinLength)
	result.MaxTextChars = pickInt(overlay.MaxTextChars, base.MaxTextChars)
	result.BatchParallelism = pickInt(overlay.BatchParallelism, base.BatchParallelism)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.Estimator = pickString(overlay.Estimator, base.Estimator)
	result.TokenizerModel = pickString(overlay.TokenizerModel, base.TokenizerModel)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	result.CostPer1K = overlay.CostPer1K
	if result.CostPer1K == 0 {
		result.CostPer1K = base.CostPer1K
	}

	// Bools: true wins
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledContentTypes = mergeStringSlice(base.DisabledContentTypes, overlay.DisabledContentTypes)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
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
