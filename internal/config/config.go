// Package config loads the DevERP client configuration from deverp.yaml and
// the environment.
//
// Lookup order for the file: the explicit path, $DEVERP_CONFIG, ./deverp.yaml,
// then <user config dir>/deverp/deverp.yaml. A missing file is not an error;
// environment variables are applied on top of whatever was loaded.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/deverp-client/pkg/cache"
	"github.com/Sternrassler/deverp-client/pkg/client"
	"github.com/Sternrassler/deverp-client/pkg/logging"
	"github.com/Sternrassler/deverp-client/pkg/pagination"
	"github.com/Sternrassler/deverp-client/pkg/scroll"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "deverp.yaml"

const defaultUserAgent = "deverp-client/0.1.0"

// DefaultYAML is written by WriteDefault.
const DefaultYAML = `# deverp client configuration

# Backend the inventory admin runs on.
base_url: http://localhost:8000
user_agent: deverp-client/0.1.0
# csrf_token: ""
timeout: 30s
max_retries: 0

# Optional shared cache and rate limit state. Leave url empty to disable.
redis:
  url: ""
  cache_ttl: 30s

listing:
  per_page: 50
  loading_delay: 300ms

scroll:
  threshold: 200
  debounce: 100ms

export:
  concurrency: 4
  timeout: 15s

log:
  level: info
  pretty: false
  # file: ~/.local/state/deverp/deverp.log

# metrics_addr: 127.0.0.1:9090
`

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	URL      string        `yaml:"url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ListingConfig tunes the paginated product list.
type ListingConfig struct {
	PerPage      int           `yaml:"per_page"`
	LoadingDelay time.Duration `yaml:"loading_delay"`
}

// ScrollConfig tunes when scrolling loads the next page.
type ScrollConfig struct {
	Threshold int           `yaml:"threshold"`
	Debounce  time.Duration `yaml:"debounce"`
}

// ExportConfig tunes the parallel export.
type ExportConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// Config is the complete client configuration.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	CSRFToken   string        `yaml:"csrf_token"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Redis       RedisConfig   `yaml:"redis"`
	Listing     ListingConfig `yaml:"listing"`
	Scroll      ScrollConfig  `yaml:"scroll"`
	Export      ExportConfig  `yaml:"export"`
	Log         LogConfig     `yaml:"log"`
	MetricsAddr string        `yaml:"metrics_addr"`
	PrefsFile   string        `yaml:"prefs_file"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:   "http://localhost:8000",
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		Redis: RedisConfig{
			CacheTTL: cache.DefaultTTL,
		},
		Listing: ListingConfig{
			PerPage:      pagination.DefaultPerPage,
			LoadingDelay: pagination.DefaultLoadingDelay,
		},
		Scroll: ScrollConfig{
			Threshold: scroll.DefaultThreshold,
			Debounce:  scroll.DefaultDebounce,
		},
		Export: ExportConfig{
			Concurrency: pagination.DefaultBatchConfig().MaxConcurrency,
			Timeout:     pagination.DefaultBatchConfig().Timeout,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// Load reads the configuration. path may be empty to use the lookup order.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = locate(getenv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
			cfg.Path = path
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func locate(getenv func(string) string) string {
	if p := getenv("DEVERP_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "deverp", FileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"DEVERP_BASE_URL":     &c.BaseURL,
		"DEVERP_USER_AGENT":   &c.UserAgent,
		"DEVERP_CSRF_TOKEN":   &c.CSRFToken,
		"REDIS_URL":           &c.Redis.URL,
		"DEVERP_LOG_LEVEL":    &c.Log.Level,
		"DEVERP_LOG_FILE":     &c.Log.File,
		"DEVERP_METRICS_ADDR": &c.MetricsAddr,
		"DEVERP_PREFS_FILE":   &c.PrefsFile,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("DEVERP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: DEVERP_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := getenv("DEVERP_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEVERP_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v := getenv("DEVERP_PER_PAGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DEVERP_PER_PAGE: %w", err)
		}
		c.Listing.PerPage = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	d := Default()
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Redis.CacheTTL <= 0 {
		c.Redis.CacheTTL = d.Redis.CacheTTL
	}
	if c.Listing.PerPage <= 0 {
		c.Listing.PerPage = d.Listing.PerPage
	}
	if c.Listing.LoadingDelay <= 0 {
		c.Listing.LoadingDelay = d.Listing.LoadingDelay
	}
	if c.Scroll.Threshold <= 0 {
		c.Scroll.Threshold = d.Scroll.Threshold
	}
	if c.Scroll.Debounce <= 0 {
		c.Scroll.Debounce = d.Scroll.Debounce
	}
	if c.Export.Concurrency <= 0 {
		c.Export.Concurrency = d.Export.Concurrency
	}
	if c.Export.Timeout <= 0 {
		c.Export.Timeout = d.Export.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	c.Log.File = expandHome(c.Log.File)
	c.PrefsFile = expandHome(c.PrefsFile)
}

// Validate checks the fields the client cannot work without.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL (got %q)", c.BaseURL)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.Listing.PerPage > 500 {
		return fmt.Errorf("listing.per_page must be <= 500 (got %d)", c.Listing.PerPage)
	}
	return nil
}

// RedisOptions returns the connection options, or nil when Redis is disabled.
// Both redis:// URLs and bare host:port addresses are accepted.
func (c Config) RedisOptions() (*redis.Options, error) {
	raw := strings.TrimSpace(c.Redis.URL)
	if raw == "" {
		return nil, nil
	}
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("config: redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

// ClientConfig builds the backend client configuration. rdb may be nil.
func (c Config) ClientConfig(rdb *redis.Client) client.Config {
	cc := client.DefaultConfig(c.BaseURL, c.UserAgent)
	cc.CSRFToken = c.CSRFToken
	cc.Timeout = c.Timeout
	cc.MaxRetries = c.MaxRetries
	cc.Redis = rdb
	cc.CacheTTL = c.Redis.CacheTTL
	return cc
}

// LoggingConfig builds the logger configuration.
func (c Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(c.Log.Level)
	lc.Pretty = c.Log.Pretty
	lc.File = c.Log.File
	return lc
}

// SyncOptions applies the listing settings to base.
func (c Config) SyncOptions(base pagination.Options) pagination.Options {
	base.PerPage = c.Listing.PerPage
	base.LoadingDelay = c.Listing.LoadingDelay
	return base
}

// BatchConfig builds the export settings.
func (c Config) BatchConfig() pagination.BatchConfig {
	bc := pagination.DefaultBatchConfig()
	bc.MaxConcurrency = c.Export.Concurrency
	bc.Timeout = c.Export.Timeout
	bc.PerPage = c.Listing.PerPage
	return bc
}

// WriteDefault writes DefaultYAML to path unless a file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(DefaultYAML), 0o644)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
