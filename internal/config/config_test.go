package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/deverp-client/pkg/inventory"
	"github.com/Sternrassler/deverp-client/pkg/logging"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.yaml"), env(nil))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty for a missing file", cfg.Path)
	}
	if cfg.Listing.PerPage != 50 {
		t.Errorf("PerPage = %d, want 50", cfg.Listing.PerPage)
	}
	if cfg.Listing.LoadingDelay != 300*time.Millisecond {
		t.Errorf("LoadingDelay = %v, want 300ms", cfg.Listing.LoadingDelay)
	}
	if cfg.Scroll.Threshold != 200 || cfg.Scroll.Debounce != 100*time.Millisecond {
		t.Errorf("Scroll = %+v, want 200/100ms", cfg.Scroll)
	}
	if opts, err := cfg.RedisOptions(); err != nil || opts != nil {
		t.Errorf("RedisOptions() = %v, %v, want nil, nil", opts, err)
	}
}

func TestLoadParsesYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	configYAML := strings.TrimSpace(`
base_url: https://erp.example.com/
user_agent: test-agent/2.0
csrf_token: abc123
timeout: 10s
max_retries: 2
redis:
  url: redis://localhost:6380/3
  cache_ttl: 1m
listing:
  per_page: 24
  loading_delay: 150ms
scroll:
  threshold: 120
log:
  level: debug
  file: /tmp/deverp.log
`)
	if err := os.WriteFile(path, []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path, env(nil))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.BaseURL != "https://erp.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Timeout != 10*time.Second || cfg.MaxRetries != 2 {
		t.Errorf("Timeout/MaxRetries = %v/%d", cfg.Timeout, cfg.MaxRetries)
	}
	if cfg.Listing.PerPage != 24 || cfg.Listing.LoadingDelay != 150*time.Millisecond {
		t.Errorf("Listing = %+v", cfg.Listing)
	}
	if cfg.Scroll.Threshold != 120 || cfg.Scroll.Debounce != 100*time.Millisecond {
		t.Errorf("Scroll = %+v, want threshold from file and default debounce", cfg.Scroll)
	}

	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions() error = %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 3 {
		t.Errorf("RedisOptions() = %s db %d", opts.Addr, opts.DB)
	}

	cc := cfg.ClientConfig(nil)
	if cc.BaseURL != cfg.BaseURL || cc.CSRFToken != "abc123" || cc.CacheTTL != time.Minute || cc.MaxRetries != 2 {
		t.Errorf("ClientConfig() = %+v", cc)
	}

	lc := cfg.LoggingConfig()
	if lc.Level != logging.LevelDebug || lc.File != "/tmp/deverp.log" {
		t.Errorf("LoggingConfig() = %+v", lc)
	}

	opts2 := cfg.SyncOptions(inventory.SyncOptions())
	if opts2.Name != "products" || opts2.PerPage != 24 || opts2.LoadingDelay != 150*time.Millisecond {
		t.Errorf("SyncOptions() = %+v", opts2)
	}
	if bc := cfg.BatchConfig(); bc.PerPage != 24 || bc.MaxConcurrency != 4 {
		t.Errorf("BatchConfig() = %+v", bc)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("base_url: http://file.example\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(path, env(map[string]string{
		"DEVERP_BASE_URL":    "http://env.example:8000",
		"REDIS_URL":          "cache:6379",
		"DEVERP_TIMEOUT":     "5s",
		"DEVERP_MAX_RETRIES": "1",
		"DEVERP_PER_PAGE":    "10",
		"DEVERP_LOG_LEVEL":   "warn",
	}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.BaseURL != "http://env.example:8000" {
		t.Errorf("BaseURL = %q, want env value", cfg.BaseURL)
	}
	if cfg.Timeout != 5*time.Second || cfg.MaxRetries != 1 || cfg.Listing.PerPage != 10 {
		t.Errorf("numeric overrides not applied: %+v", cfg)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	opts, err := cfg.RedisOptions()
	if err != nil || opts == nil || opts.Addr != "cache:6379" {
		t.Errorf("RedisOptions() = %+v, %v", opts, err)
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("user_agent: from-env-path\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := load("", env(map[string]string{"DEVERP_CONFIG": path}))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.UserAgent != "from-env-path" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"bad yaml", "base_url: [", nil},
		{"bad scheme", "base_url: ftp://erp.example.com", nil},
		{"negative retries", "max_retries: -1", nil},
		{"huge page", "listing:\n  per_page: 1000", nil},
		{"bad duration env", "", map[string]string{"DEVERP_TIMEOUT": "soon"}},
		{"bad retries env", "", map[string]string{"DEVERP_MAX_RETRIES": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := load(path, env(tt.env)); err == nil {
				t.Error("load returned nil error")
			}
		})
	}
}

func TestDefaultYAMLLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault returned error: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Error("second WriteDefault returned nil error, want exists")
	}

	cfg, err := load(path, env(nil))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	def := Default()
	if cfg.BaseURL != def.BaseURL || cfg.Listing != def.Listing || cfg.Scroll != def.Scroll {
		t.Errorf("default YAML differs from Default(): %+v", cfg)
	}
}
