// Package config holds the resolved configuration the finder is constructed
// from: engine knobs, built-in defaults, and user-defined sites loaded from
// a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/pelletier/go-toml/v2"
)

// Config is immutable once resolved; it is passed into the registry and
// engine at startup and never mutated during a search.
type Config struct {
	// AdapterTimeout bounds every adapter invocation unless overridden
	// per source in TimeoutOverrides.
	AdapterTimeout   time.Duration
	TimeoutOverrides map[string]time.Duration

	MaxPerSource    int
	DefaultCurrency string
	CacheTTL        time.Duration
	UserAgent       string

	DatabasePath string
	MetricsAddr  string
	ListenAddr   string
	Verbose      bool

	// Sites are user-defined structured-data sources from [[sites]]
	// entries. Each becomes an adapter with no new code.
	Sites []models.SourceDescriptor
}

// fileConfig is the TOML shape of the user config file.
type fileConfig struct {
	Currency       string                    `toml:"currency"`
	MaxPerSource   int                       `toml:"max_results"`
	AdapterTimeout string                    `toml:"adapter_timeout"`
	CacheTTL       string                    `toml:"cache_ttl"`
	DatabasePath   string                    `toml:"database_path"`
	Timeouts       map[string]string         `toml:"timeouts"`
	Sites          []models.SourceDescriptor `toml:"sites"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		AdapterTimeout:   15 * time.Second,
		TimeoutOverrides: map[string]time.Duration{},
		MaxPerSource:     10,
		DefaultCurrency:  "USD",
		CacheTTL:         5 * time.Minute,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		DatabasePath:     defaultDatabasePath(),
		MetricsAddr:      "",
		ListenAddr:       "127.0.0.1:8000",
		Verbose:          false,
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bookfinder", "config.toml")
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "prices.db"
	}
	return filepath.Join(home, ".local", "share", "bookfinder", "prices.db")
}

// Load reads the user TOML file and merges it over the defaults. A missing
// file is not an error: defaults apply. Malformed [[sites]] entries are
// reported individually through the returned warnings and skipped; they do
// not abort the load.
func Load(path string) (*Config, []string, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil, nil
		}
		return nil, nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var file fileConfig
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if file.Currency != "" {
		cfg.DefaultCurrency = file.Currency
	}
	if file.MaxPerSource > 0 {
		cfg.MaxPerSource = file.MaxPerSource
	}
	if file.DatabasePath != "" {
		cfg.DatabasePath = file.DatabasePath
	}

	var warnings []string
	if file.AdapterTimeout != "" {
		if d, err := time.ParseDuration(file.AdapterTimeout); err == nil && d > 0 {
			cfg.AdapterTimeout = d
		} else {
			warnings = append(warnings, fmt.Sprintf("invalid adapter_timeout %q ignored", file.AdapterTimeout))
		}
	}
	if file.CacheTTL != "" {
		if d, err := time.ParseDuration(file.CacheTTL); err == nil && d > 0 {
			cfg.CacheTTL = d
		} else {
			warnings = append(warnings, fmt.Sprintf("invalid cache_ttl %q ignored", file.CacheTTL))
		}
	}
	for name, text := range file.Timeouts {
		d, err := time.ParseDuration(text)
		if err != nil || d <= 0 {
			warnings = append(warnings, fmt.Sprintf("invalid timeout %q for source %s ignored", text, name))
			continue
		}
		cfg.TimeoutOverrides[name] = d
	}

	for _, site := range file.Sites {
		if err := validateSite(site); err != nil {
			warnings = append(warnings, fmt.Sprintf("site %q skipped: %v", site.Name, err))
			continue
		}
		cfg.Sites = append(cfg.Sites, site)
	}

	return cfg, warnings, nil
}

func validateSite(site models.SourceDescriptor) error {
	if site.Name == "" {
		return fmt.Errorf("missing name")
	}
	parsed, err := url.Parse(site.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base_url must include a host")
	}
	if site.SearchURL == "" {
		return fmt.Errorf("missing search_url_template")
	}
	return nil
}

// Validate ensures the resolved configuration is coherent.
func (c *Config) Validate() error {
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("adapter timeout must be positive")
	}
	for name, d := range c.TimeoutOverrides {
		if d <= 0 {
			return fmt.Errorf("timeout override for %s must be positive", name)
		}
	}
	if c.MaxPerSource <= 0 {
		return fmt.Errorf("max results per source must be positive")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("default currency must be a 3-letter code")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	return nil
}

// TimeoutFor returns the per-adapter timeout, honoring overrides.
func (c *Config) TimeoutFor(source string) time.Duration {
	if d, ok := c.TimeoutOverrides[source]; ok {
		return d
	}
	return c.AdapterTimeout
}

// EnvString reads a string environment override.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s=%q is not an integer: %w", key, value, err)
	}
	return parsed, true, nil
}

// WriteDefault writes a commented example config, creating parent
// directories. It refuses to overwrite unless force is set.
func WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("config %s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

const exampleConfig = `# bookfinder configuration

# Default currency assumed when a source omits one.
currency = "USD"

# Maximum results kept per source.
max_results = 10

# Timeout applied to every source unless overridden below.
adapter_timeout = "15s"

# Result cache freshness window for server-style callers.
cache_ttl = "5m"

# Per-source timeout overrides.
# [timeouts]
# "PangoBooks" = "30s"

# User-defined structured-data sources. Any site exposing Schema.org
# Product/Offer JSON-LD on its search results page works without code.
# [[sites]]
# name = "My Bookshop"
# base_url = "https://books.example.com"
# search_url_template = "https://books.example.com/search?q={query}"
# enabled = true
`
