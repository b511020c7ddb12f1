// Package config loads edmindex settings from defaults, YAML files and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
)

// Environment variables read by Load.
const (
	EnvURL          = "EDMINDEX_URL"
	EnvAPIKey       = "EDMINDEX_API_KEY"
	EnvAuditUser    = "EDMINDEX_AUDIT_USER"
	EnvLogLevel     = "EDMINDEX_LOG_LEVEL"
	EnvTimeout      = "EDMINDEX_TIMEOUT"
	EnvDateFormat   = "EDMINDEX_DATE_FORMAT"
	EnvOTLPEndpoint = "EDMINDEX_OTLP_ENDPOINT"
)

// Project config file names, in lookup order.
var projectConfigNames = []string{".edmindex.yaml", ".edmindex.yml"}

// Config represents the complete edmindex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Indexing  IndexingConfig  `yaml:"indexing" json:"indexing"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Locks     LocksConfig     `yaml:"locks" json:"locks"`
	Batch     BatchConfig     `yaml:"batch" json:"batch"`
}

// ServerConfig configures the document server connection.
type ServerConfig struct {
	URL       string `yaml:"url" json:"url"`
	APIKey    string `yaml:"api_key" json:"api_key"`
	AuditUser string `yaml:"audit_user" json:"audit_user"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// MaxRetries applies to idempotent reads only.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// IndexingConfig configures value coercion.
type IndexingConfig struct {
	// DateFormat is a Go time layout used to parse DATE text values.
	DateFormat string `yaml:"date_format" json:"date_format"`
}

// CacheConfig sizes the document type cache.
type CacheConfig struct {
	DocumentTypes int           `yaml:"document_types" json:"document_types"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
}

// LoggingConfig configures the structured log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`

	// Trace logs request and response bodies.
	Trace bool `yaml:"trace" json:"trace"`
}

// TelemetryConfig configures OpenTelemetry export. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" json:"service_name"`
}

// LocksConfig configures per-document lock files.
type LocksConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Jobs int `yaml:"jobs" json:"jobs"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 3,
		},
		Indexing: IndexingConfig{
			DateFormat: "02-01-2006",
		},
		Cache: CacheConfig{
			DocumentTypes: 128,
			TTL:           10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "edmindex",
		},
		Locks: LocksConfig{
			Dir: defaultLocksDir(),
		},
		Batch: BatchConfig{
			Jobs: 4,
		},
	}
}

// defaultLocksDir returns ~/.edmindex/locks.
func defaultLocksDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".edmindex", "locks")
	}
	return filepath.Join(home, ".edmindex", "locks")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/edmindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/edmindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "edmindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "edmindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "edmindex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/edmindex/config.yaml)
//  3. Project config (.edmindex.yaml in dir)
//  4. Environment variables (EDMINDEX_*)
//
// Command-line flags are applied by the caller on top of the result.
func Load(dir string) (*Config, error) {
	cfg, err := LoadUserConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, edmerrors.ConfigError("invalid configuration: "+err.Error(), err)
	}
	return cfg, nil
}

// LoadUserConfig loads defaults overlaid with the user config file only.
// It returns the defaults when no user config exists.
func LoadUserConfig() (*Config, error) {
	cfg := NewConfig()
	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single explicit file and the
// environment. Used for --config.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if !fileExists(path) {
		return nil, edmerrors.New(edmerrors.ErrCodeConfigNotFound, "config file not found: "+path, nil)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, edmerrors.ConfigError("invalid configuration: "+err.Error(), err)
	}
	return cfg, nil
}

// loadFromFile attempts to load configuration from .edmindex.yaml or .edmindex.yml.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range projectConfigNames {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return edmerrors.ConfigError("failed to read config file "+path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return edmerrors.ConfigError("failed to parse config file "+path, err).
			WithDetail("path", path)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Server
	if other.Server.URL != "" {
		c.Server.URL = other.Server.URL
	}
	if other.Server.APIKey != "" {
		c.Server.APIKey = other.Server.APIKey
	}
	if other.Server.AuditUser != "" {
		c.Server.AuditUser = other.Server.AuditUser
	}
	if other.Server.Timeout != 0 {
		c.Server.Timeout = other.Server.Timeout
	}
	if other.Server.MaxRetries != 0 {
		c.Server.MaxRetries = other.Server.MaxRetries
	}

	if other.Indexing.DateFormat != "" {
		c.Indexing.DateFormat = other.Indexing.DateFormat
	}

	if other.Cache.DocumentTypes != 0 {
		c.Cache.DocumentTypes = other.Cache.DocumentTypes
	}
	if other.Cache.TTL != 0 {
		c.Cache.TTL = other.Cache.TTL
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	// Trace can only be switched on from a file; --trace covers the rest
	if other.Logging.Trace {
		c.Logging.Trace = true
	}

	if other.Telemetry.OTLPEndpoint != "" {
		c.Telemetry.OTLPEndpoint = other.Telemetry.OTLPEndpoint
	}
	if other.Telemetry.ServiceName != "" {
		c.Telemetry.ServiceName = other.Telemetry.ServiceName
	}

	if other.Locks.Dir != "" {
		c.Locks.Dir = other.Locks.Dir
	}
	if other.Batch.Jobs != 0 {
		c.Batch.Jobs = other.Batch.Jobs
	}
}

// applyEnvOverrides applies EDMINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv(EnvAuditUser); v != "" {
		c.Server.AuditUser = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return edmerrors.ConfigError(fmt.Sprintf("invalid %s: %q", EnvTimeout, v), err)
		}
		c.Server.Timeout = d
	}
	if v := os.Getenv(EnvDateFormat); v != "" {
		c.Indexing.DateFormat = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
// An empty server URL is allowed here; commands that talk to the server
// require it.
func (c *Config) Validate() error {
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("server.url must be an http or https URL, got %q", c.Server.URL)
		}
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Server.MaxRetries < 0 {
		return fmt.Errorf("server.max_retries must be non-negative, got %d", c.Server.MaxRetries)
	}
	if c.Indexing.DateFormat == "" {
		return fmt.Errorf("indexing.date_format must not be empty")
	}
	if c.Cache.DocumentTypes <= 0 {
		return fmt.Errorf("cache.document_types must be positive, got %d", c.Cache.DocumentTypes)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Logging.MaxSizeMB <= 0 || c.Logging.MaxFiles <= 0 {
		return fmt.Errorf("logging.max_size_mb and logging.max_files must be positive")
	}
	if c.Batch.Jobs <= 0 {
		return fmt.Errorf("batch.jobs must be positive, got %d", c.Batch.Jobs)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	return nil
}

// Redacted returns a copy safe to print: the API key is masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Server.APIKey != "" {
		out.Server.APIKey = "********"
	}
	return &out
}

// WriteYAML writes the configuration to a YAML file, creating parent
// directories. The file is private because it may hold the API key.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
