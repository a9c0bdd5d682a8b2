package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_SetDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:8080")
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Grid.CategoryPageSize != 28 || cfg.Grid.ItemPageSize != 45 {
		t.Errorf("Grid = %+v, want 28/45", cfg.Grid)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %q, want memory", cfg.Storage.Type)
	}
	if cfg.Storage.Filename != "" {
		t.Errorf("Storage.Filename = %q, want empty for memory storage", cfg.Storage.Filename)
	}
	if cfg.Ledger.Type != "memory" {
		t.Errorf("Ledger.Type = %q, want memory", cfg.Ledger.Type)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should default to false")
	}
}

func TestConfig_SetDefaults_RateLimitDisabled(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.SetDefaults()

	// Sub-defaults are populated so enabling the limiter needs one flag.
	if cfg.RateLimit.EventsPerSecond != 10 {
		t.Errorf("EventsPerSecond = %v, want 10", cfg.RateLimit.EventsPerSecond)
	}
	if cfg.RateLimit.Burst != 20 {
		t.Errorf("Burst = %d, want 20", cfg.RateLimit.Burst)
	}
}

func TestConfig_SetDefaults_BackendPaths(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Storage: StorageConfig{Type: "sqlite"},
		Ledger:  LedgerConfig{Type: "file"},
	}
	cfg.SetDefaults()

	if cfg.Storage.Filename != "./headcatalog.db" {
		t.Errorf("Storage.Filename = %q", cfg.Storage.Filename)
	}
	if cfg.Ledger.Path != "./ledger.json" {
		t.Errorf("Ledger.Path = %q", cfg.Ledger.Path)
	}
}

func TestConfig_SetDefaults_PreservesExistingValues(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:  ServerConfig{HTTPAddr: ":9090", SessionIdleTimeout: "5m"},
		Catalog: CatalogConfig{CategoriesFile: "/srv/cats.yml", ItemsDir: "/srv/heads"},
		Grid:    GridConfig{CategoryPageSize: 9, ItemPageSize: 18},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			EventsPerSecond: 2,
			Burst:           4,
		},
	}
	cfg.SetDefaults()

	if cfg.Server.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.Server.HTTPAddr)
	}
	if cfg.Catalog.CategoriesFile != "/srv/cats.yml" || cfg.Catalog.ItemsDir != "/srv/heads" {
		t.Errorf("Catalog = %+v", cfg.Catalog)
	}
	if cfg.Grid.CategoryPageSize != 9 || cfg.Grid.ItemPageSize != 18 {
		t.Errorf("Grid = %+v", cfg.Grid)
	}
	if cfg.RateLimit.EventsPerSecond != 2 || cfg.RateLimit.Burst != 4 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if got := cfg.SessionIdleTimeout(); got != 5*time.Minute {
		t.Errorf("SessionIdleTimeout() = %v, want 5m", got)
	}
}

func TestConfig_SetDevDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{DevMode: true, Server: ServerConfig{LogLevel: "warn"}}
	cfg.SetDevDefaults()
	if cfg.Server.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug in dev mode", cfg.Server.LogLevel)
	}

	cfg = Config{Server: ServerConfig{LogLevel: "warn"}}
	cfg.SetDevDefaults()
	if cfg.Server.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn outside dev mode", cfg.Server.LogLevel)
	}
}

func TestConfig_Durations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		fallback time.Duration
		want     time.Duration
	}{
		{"parsed", "90s", time.Minute, 90 * time.Second},
		{"empty", "", time.Minute, time.Minute},
		{"garbage", "soon", time.Hour, time.Hour},
		{"negative", "-5m", time.Hour, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseDuration(tt.value, tt.fallback); got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}

	var cfg Config
	cfg.SetDefaults()
	if got := cfg.RateLimitCleanupInterval(); got != 5*time.Minute {
		t.Errorf("RateLimitCleanupInterval() = %v, want 5m", got)
	}
	if got := cfg.RateLimitMaxTTL(); got != time.Hour {
		t.Errorf("RateLimitMaxTTL() = %v, want 1h", got)
	}
}

func TestFindConfigFileInPaths_EmptyDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths() = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_MatchesYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := filepath.Join(dir, "headcatalog.yaml")
	writeFile(t, want, "server:\n  http_addr: \":8080\"\n")

	if got := findConfigFileInPaths([]string{dir}); got != want {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, want)
	}
}

func TestFindConfigFileInPaths_MatchesYML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	want := filepath.Join(dir, "headcatalog.yml")
	writeFile(t, want, "grid:\n  item_page_size: 9\n")

	if got := findConfigFileInPaths([]string{dir}); got != want {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, want)
	}
}

func TestFindConfigFileInPaths_IgnoresNoExtension(t *testing.T) {
	t.Parallel()

	// The binary itself is named headcatalog; it must never be read as config.
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "headcatalog"), "\x7fELF")

	if got := findConfigFileInPaths([]string{dir}); got != "" {
		t.Errorf("findConfigFileInPaths() = %q, want empty", got)
	}
}

func TestFindConfigFileInPaths_SearchOrder(t *testing.T) {
	t.Parallel()

	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(first, "headcatalog.yml"), "")
	writeFile(t, filepath.Join(first, "headcatalog.yaml"), "")
	writeFile(t, filepath.Join(second, "headcatalog.yaml"), "")

	want := filepath.Join(first, "headcatalog.yaml")
	if got := findConfigFileInPaths([]string{first, second}); got != want {
		t.Errorf("findConfigFileInPaths() = %q, want %q", got, want)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	t.Parallel()

	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotEnv() on missing file = %v, want nil", err)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "HEADCATALOG_TEST_DOTENV_SET=from-file\nHEADCATALOG_TEST_DOTENV_NEW=from-file\n")

	t.Setenv("HEADCATALOG_TEST_DOTENV_SET", "from-env")
	t.Setenv("HEADCATALOG_TEST_DOTENV_NEW", "")
	os.Unsetenv("HEADCATALOG_TEST_DOTENV_NEW")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	if got := os.Getenv("HEADCATALOG_TEST_DOTENV_SET"); got != "from-env" {
		t.Errorf("existing variable = %q, want from-env", got)
	}
	if got := os.Getenv("HEADCATALOG_TEST_DOTENV_NEW"); got != "from-file" {
		t.Errorf("new variable = %q, want from-file", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
