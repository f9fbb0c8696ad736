// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/repochat/internal/util"
)

// CurrentVersion is stamped into configs by Migrate.
const CurrentVersion = "1"

// BuildAPIBaseURL is the backend base URL baked in at build time:
//
//	go build -ldflags "-X github.com/jeranaias/repochat/internal/config.BuildAPIBaseURL=https://rag.example.com"
//
// When empty, http://localhost:8000 is used.
var BuildAPIBaseURL = ""

const fallbackAPIBaseURL = "http://localhost:8000"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete repochat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Backend BackendConfig `toml:"backend" json:"backend"`
	Index   IndexConfig   `toml:"index" json:"index"`
	Query   QueryConfig   `toml:"query" json:"query"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	History HistoryConfig `toml:"history" json:"history"`
}

// BackendConfig describes how to reach the RAG backend.
type BackendConfig struct {
	// APIBaseURL is the backend root, e.g. http://localhost:8000
	APIBaseURL string `toml:"api_base_url" json:"api_base_url"`
	// TimeoutSecs bounds each request. Index builds clone and embed a whole
	// repository, so this is generous.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimit is the sustained requests per second allowed (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// RateBurst is the burst size for RateLimit
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
	// DefaultBranch is sent with build requests when no branch is given.
	// Empty lets the backend pick the remote HEAD.
	DefaultBranch string `toml:"default_branch" json:"default_branch"`
}

// IndexConfig holds the chunking parameters sent with build requests.
type IndexConfig struct {
	ChunkSize    int `toml:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap" json:"chunk_overlap"`
}

// QueryConfig holds retrieval parameters and the local answer cache.
type QueryConfig struct {
	// K is the number of chunks the backend retrieves per question
	K int `toml:"k" json:"k"`
	// CacheEnabled keeps recent answers in memory
	CacheEnabled bool `toml:"cache_enabled" json:"cache_enabled"`
	// CacheSize is the maximum number of cached answers
	CacheSize int `toml:"cache_size" json:"cache_size"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// TypewriterIntervalMs is the delay between revealed characters
	TypewriterIntervalMs int `toml:"typewriter_interval_ms" json:"typewriter_interval_ms"`
	// RenderMarkdown renders finished answers with glamour
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// ShowSourceLanguage annotates each source file with its language
	ShowSourceLanguage bool `toml:"show_source_language" json:"show_source_language"`
}

// HistoryConfig controls the local question/answer log.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxEntries caps stored entries; the oldest are pruned (0 = unlimited)
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultAPIBaseURL returns the build-time base URL, or the localhost default.
func DefaultAPIBaseURL() string {
	if BuildAPIBaseURL != "" {
		return BuildAPIBaseURL
	}
	return fallbackAPIBaseURL
}

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Backend: BackendConfig{
			APIBaseURL:  DefaultAPIBaseURL(),
			TimeoutSecs: 300,
			RateLimit:   0,
			RateBurst:   1,
		},
		Index: IndexConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
		},
		Query: QueryConfig{
			K:            5,
			CacheEnabled: true,
			CacheSize:    128,
		},
		UI: UIConfig{
			Theme:                "auto",
			TypewriterIntervalMs: 20,
			RenderMarkdown:       true,
			ShowSourceLanguage:   true,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the repochat configuration directory path.
// REPOCHAT_HOME overrides the default of ~/.repochat.
func ConfigDir() (string, error) {
	if dir := os.Getenv("REPOCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".repochat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// HistoryDBPath returns the path of the sqlite history database.
func HistoryDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// DebugLogPath returns the path used for TUI debug logging.
func DebugLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "debug.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ActivePath returns the config file Load would read, and whether it exists.
// When neither file exists the TOML path is returned.
func ActivePath() (string, bool) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return tomlPath, true
		}
	}
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return jsonPath, true
		}
	}
	return tomlPath, false
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, if any.
// Tries TOML first, then JSON, and falls back to defaults.
// A .env file and environment overrides are applied last.
//
// A file that fails to parse is reported through the returned error, but a
// usable default Config is still returned alongside it.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if path, ok := ActivePath(); ok {
		var err error
		if strings.HasSuffix(path, ".json") {
			err = LoadJSON(cfg, path)
		} else {
			err = LoadTOML(cfg, path)
		}
		if err != nil {
			loadErr = fmt.Errorf("failed to load config %s: %w", path, err)
			cfg = Default()
		}
	}

	loadDotEnv()
	cfg.ApplyEnvOverrides()

	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Unlike Load, a broken file is an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// dotEnvFile is the file loadDotEnv reads; tests point it elsewhere.
var dotEnvFile = ".env"

// loadDotEnv loads KEY=value pairs from .env into the process environment.
// Variables that are already set win, so a shell export always beats the file.
func loadDotEnv() {
	if _, err := os.Stat(dotEnvFile); err != nil {
		return
	}
	if err := godotenv.Load(dotEnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", dotEnvFile, err)
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# repochat configuration file\n")
	b.WriteString("# Generated by repochat - edit with care\n\n")

	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateBaseURL(c.Backend.APIBaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "backend.api_base_url", Message: err.Error()})
	}
	if c.Backend.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{Field: "backend.timeout_secs", Message: "must be positive"})
	}
	if c.Backend.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "backend.rate_limit", Message: "must not be negative"})
	}
	if c.Backend.RateLimit > 0 && c.Backend.RateBurst < 1 {
		errs = append(errs, ValidationError{Field: "backend.rate_burst", Message: "must be at least 1 when rate_limit is set"})
	}

	if c.Index.ChunkSize <= 0 {
		errs = append(errs, ValidationError{Field: "index.chunk_size", Message: "must be positive"})
	}
	if c.Index.ChunkOverlap < 0 || (c.Index.ChunkSize > 0 && c.Index.ChunkOverlap >= c.Index.ChunkSize) {
		errs = append(errs, ValidationError{
			Field:   "index.chunk_overlap",
			Message: fmt.Sprintf("must be in [0, chunk_size), got %d", c.Index.ChunkOverlap),
		})
	}

	if c.Query.K < 1 || c.Query.K > 50 {
		errs = append(errs, ValidationError{Field: "query.k", Message: fmt.Sprintf("must be between 1 and 50, got %d", c.Query.K)})
	}
	if c.Query.CacheSize < 0 {
		errs = append(errs, ValidationError{Field: "query.cache_size", Message: "must not be negative"})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("must be dark, light or auto, got %q", c.UI.Theme)})
	}
	if c.UI.TypewriterIntervalMs < 1 || c.UI.TypewriterIntervalMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "ui.typewriter_interval_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.UI.TypewriterIntervalMs),
		})
	}

	if c.History.MaxEntries < 0 {
		errs = append(errs, ValidationError{Field: "history.max_entries", Message: "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// SetDefaults fills zero values that a partial config file leaves behind.
// Booleans are not touched; a file that says false means false.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.APIBaseURL == "" {
		c.Backend.APIBaseURL = d.Backend.APIBaseURL
	}
	c.Backend.APIBaseURL = strings.TrimRight(c.Backend.APIBaseURL, "/")
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.RateBurst == 0 {
		c.Backend.RateBurst = d.Backend.RateBurst
	}
	if c.Index.ChunkSize == 0 {
		c.Index.ChunkSize = d.Index.ChunkSize
	}
	if c.Query.K == 0 {
		c.Query.K = d.Query.K
	}
	if c.Query.CacheSize == 0 && c.Query.CacheEnabled {
		c.Query.CacheSize = d.Query.CacheSize
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.TypewriterIntervalMs == 0 {
		c.UI.TypewriterIntervalMs = d.UI.TypewriterIntervalMs
	}
}

// Migrate upgrades older config layouts. Version 0 (unversioned) files are
// stamped with the current version.
func (c *Config) Migrate() error {
	switch c.Version {
	case "", "0":
		c.Version = CurrentVersion
	case CurrentVersion:
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - REPOCHAT_API_BASE_URL: overrides backend.api_base_url
//   - VITE_API_BASE_URL: alias for REPOCHAT_API_BASE_URL (lower precedence)
//   - REPOCHAT_TIMEOUT: overrides backend.timeout_secs
//   - REPOCHAT_BRANCH: overrides backend.default_branch
//   - REPOCHAT_K: overrides query.k
//   - REPOCHAT_TYPEWRITER_MS: overrides ui.typewriter_interval_ms
//   - REPOCHAT_THEME: overrides ui.theme
//   - REPOCHAT_HISTORY: "0"/"false" disables history, "1"/"true" enables it
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("VITE_API_BASE_URL"); v != "" {
		c.Backend.APIBaseURL = v
	}
	if v := os.Getenv("REPOCHAT_API_BASE_URL"); v != "" {
		c.Backend.APIBaseURL = v
	}

	if v := os.Getenv("REPOCHAT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSecs = n
		}
	}

	if v := os.Getenv("REPOCHAT_BRANCH"); v != "" {
		c.Backend.DefaultBranch = v
	}

	if v := os.Getenv("REPOCHAT_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.K = n
		}
	}

	if v := os.Getenv("REPOCHAT_TYPEWRITER_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UI.TypewriterIntervalMs = n
		}
	}

	if v := os.Getenv("REPOCHAT_THEME"); v != "" {
		c.UI.Theme = strings.ToLower(v)
	}

	if v := os.Getenv("REPOCHAT_HISTORY"); v != "" {
		c.History.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "query.k").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section %q directly", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dotted key against the toml tags of the config tree.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		idx := fieldIndexByTag(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	return v, nil
}

// fieldIndexByTag finds a struct field by toml tag, falling back to a
// case-insensitive match on the Go name with underscores removed.
func fieldIndexByTag(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return i
		}
	}
	normalized := strings.ReplaceAll(name, "_", "")
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(t.Field(i).Name, normalized) {
			return i
		}
	}
	return -1
}

func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("expected integer, got %q", s)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("expected number, got %q", s)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("expected true or false, got %q", s)
			}
			field.SetBool(b)
			return nil
		}
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	rv := reflect.ValueOf(value)
	if !rv.Type().ConvertibleTo(field.Type()) {
		return fmt.Errorf("cannot assign %T to %s", value, field.Type())
	}
	field.Set(rv.Convert(field.Type()))
	return nil
}

// GetAllKeys returns every settable dotted key, in declaration order.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		sectionTag := strings.Split(section.Tag.Get("toml"), ",")[0]
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, sectionTag)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			tag := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, sectionTag+"."+tag)
		}
	}
	return keys
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// String renders the config as TOML.
func (c *Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("<config encode error: %v>", err)
	}
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if cfg == nil {
		return err
	}
	globalConfigMu.Lock()
	globalConfig = cfg
	globalConfigMu.Unlock()
	return err
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
