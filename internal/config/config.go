package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
	"github.com/Aman-CERP/addrmatch/internal/matcher"
	"github.com/Aman-CERP/addrmatch/internal/normalize"
	"github.com/Aman-CERP/addrmatch/internal/street"
)

// Project config file names, in lookup order.
const (
	ProjectConfigName    = ".addrmatch.yaml"
	ProjectConfigNameAlt = ".addrmatch.yml"
)

// Config represents the complete addrmatch configuration.
//
// Values are layered, lowest priority first:
//  1. Hardcoded defaults (NewConfig)
//  2. User config (~/.config/addrmatch/config.yaml)
//  3. Project config (.addrmatch.yaml)
//  4. Env vars (ADDRMATCH_*)
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Match     MatchConfig     `yaml:"match" json:"match"`
	Street    StreetConfig    `yaml:"street" json:"street"`
	Normalize NormalizeConfig `yaml:"normalize" json:"normalize"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// MatchConfig configures free-text matching.
type MatchConfig struct {
	// Sensitivity is the inclusive score floor, 0.0-1.0.
	Sensitivity float64 `yaml:"sensitivity" json:"sensitivity"`

	// Keep is the maximum number of ranked results. 0 returns nothing.
	Keep int `yaml:"keep" json:"keep"`

	// Workers bounds the shard worker pool of a directory search.
	Workers int `yaml:"workers" json:"workers"`

	TolerateShardErrors bool `yaml:"tolerate_shard_errors" json:"tolerate_shard_errors"`
}

// StreetConfig configures the street matcher.
type StreetConfig struct {
	DataDir          string  `yaml:"data_dir" json:"data_dir"`
	Sensitivity      float64 `yaml:"sensitivity" json:"sensitivity"`
	FileSensitivity  float64 `yaml:"file_sensitivity" json:"file_sensitivity"`
	PlaceSensitivity float64 `yaml:"place_sensitivity" json:"place_sensitivity"`
	Keep             int     `yaml:"keep" json:"keep"`
}

// NormalizeConfig extends the built-in abbreviation table.
type NormalizeConfig struct {
	ReorderLeadingNumber bool              `yaml:"reorder_leading_number" json:"reorder_leading_number"`
	Abbreviations        map[string]string `yaml:"abbreviations,omitempty" json:"abbreviations,omitempty"`
	Suffixes             map[string]string `yaml:"suffixes,omitempty" json:"suffixes,omitempty"`
}

// CacheConfig configures the shard entry cache.
type CacheConfig struct {
	// Size is the number of parsed shards kept in memory. 0 disables caching.
	Size int `yaml:"size" json:"size"`

	// Watch invalidates cached shards when their files change.
	Watch bool `yaml:"watch" json:"watch"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
}

// NewConfig returns a Config with every default applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Match: MatchConfig{
			Sensitivity: matcher.DefaultSensitivity,
			Keep:        matcher.DefaultKeep,
			Workers:     runtime.NumCPU(),
		},
		Street: StreetConfig{
			DataDir:          "data",
			Sensitivity:      street.DefaultSensitivity,
			FileSensitivity:  street.DefaultFileSensitivity,
			PlaceSensitivity: street.DefaultPlaceSensitivity,
			Keep:             street.DefaultKeep,
		},
		Normalize: NormalizeConfig{
			ReorderLeadingNumber: true,
		},
		Cache: CacheConfig{
			Size: 256,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Server: ServerConfig{
			Transport: "stdio",
		},
	}
}

// GetUserConfigPath returns the user config location, honouring XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "addrmatch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "addrmatch", "config.yaml")
	}
	return filepath.Join(home, ".config", "addrmatch", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user config.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a user config file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the effective configuration for a project directory.
// An empty dir skips the project layer.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if UserConfigExists() {
		if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		if path := ProjectConfigPath(dir); path != "" {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigName, ProjectConfigNameAlt} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// LoadFile reads a single config file over the defaults, without the other
// layers and without validation.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over c. Keys absent from the file keep their
// current values, so each layer only overrides what it names.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return amerrors.New(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax or regenerate it with 'addrmatch config init --force'")
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ADDRMATCH_SENSITIVITY"); v != "" {
		f, err := parseFloat64(v)
		if err != nil {
			return envError("ADDRMATCH_SENSITIVITY", v, err)
		}
		c.Match.Sensitivity = f
	}
	if v := os.Getenv("ADDRMATCH_KEEP"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError("ADDRMATCH_KEEP", v, err)
		}
		c.Match.Keep = n
	}
	if v := os.Getenv("ADDRMATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError("ADDRMATCH_WORKERS", v, err)
		}
		c.Match.Workers = n
	}
	if v := os.Getenv("ADDRMATCH_TOLERATE_SHARD_ERRORS"); v != "" {
		c.Match.TolerateShardErrors = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("ADDRMATCH_DATA_DIR"); v != "" {
		c.Street.DataDir = v
	}
	if v := os.Getenv("ADDRMATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func envError(name, value string, cause error) error {
	return amerrors.New(amerrors.ErrCodeConfigInvalid,
		fmt.Sprintf("%s has an invalid value %q", name, value), cause).
		WithDetail("env", name)
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate checks the configuration. Range errors on match or street
// settings carry the matcher's ERR_1xx codes.
func (c *Config) Validate() error {
	if err := c.MatchConfig().ValidateSharded(); err != nil {
		return err
	}
	if err := c.StreetConfig().Validate(); err != nil {
		return err
	}

	if c.Cache.Size < 0 {
		return amerrors.ConfigError(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("cache.size must be non-negative, got %d", c.Cache.Size))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return amerrors.ConfigError(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level))
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return amerrors.ConfigError(amerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport))
	}

	return nil
}

// MatchConfig returns the matcher settings.
func (c *Config) MatchConfig() matcher.Config {
	return matcher.Config{
		Sensitivity:         c.Match.Sensitivity,
		Keep:                c.Match.Keep,
		Workers:             c.Match.Workers,
		TolerateShardErrors: c.Match.TolerateShardErrors,
	}
}

// StreetConfig returns the street matcher settings. The worker pool is
// shared with free-text matching.
func (c *Config) StreetConfig() street.Config {
	return street.Config{
		DataDir:          c.Street.DataDir,
		Sensitivity:      c.Street.Sensitivity,
		FileSensitivity:  c.Street.FileSensitivity,
		PlaceSensitivity: c.Street.PlaceSensitivity,
		Keep:             c.Street.Keep,
		Workers:          c.Match.Workers,
	}
}

// Normalizer builds a normalizer from the built-in table plus the
// configured overrides.
func (c *Config) Normalizer() *normalize.Normalizer {
	table := normalize.DefaultTable().Merge(normalize.Table{
		Words:    c.Normalize.Abbreviations,
		Suffixes: c.Normalize.Suffixes,
	})
	return normalize.New(table, normalize.WithLeadingNumberReorder(c.Normalize.ReorderLeadingNumber))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// a project config or a .git directory. It returns startDir (absolute)
// when neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if ProjectConfigPath(currentDir) != "" || dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
