package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "headcatalog"
	envPrefix  = "HEADCATALOG"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for headcatalog.yaml/.yml in standard locations.
// The search requires an explicit YAML extension so the binary itself is never
// picked up as a config file.
func InitViper(configFile string) error {
	if err := LoadDotEnv(".env"); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// ReadInConfig then returns ConfigFileNotFoundError, which callers ignore.
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	// Environment variable support: HEADCATALOG_SERVER_HTTP_ADDR
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".headcatalog"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "headcatalog"))
		}
	} else {
		paths = append(paths, "/etc/headcatalog")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first headcatalog.yaml or .yml found in
// paths, or "".
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every scalar key so HEADCATALOG_<SECTION>_<KEY>
// overrides it even when the config file does not mention the key.
// auth.api_keys is a list and can only be set in the file.
func bindNestedEnvKeys() {
	for _, key := range []string{
		"server.http_addr",
		"server.log_level",
		"server.session_idle_timeout",
		"server.tls_cert_file",
		"server.tls_key_file",
		"server.pid_file",
		"catalog.categories_file",
		"catalog.items_dir",
		"grid.category_page_size",
		"grid.item_page_size",
		"storage.type",
		"storage.filename",
		"storage.dsn",
		"storage.redis_addr",
		"storage.redis_db",
		"storage.table_prefix",
		"ledger.type",
		"ledger.path",
		"ledger.starting_balance",
		"rate_limit.enabled",
		"rate_limit.events_per_second",
		"rate_limit.burst",
		"rate_limit.cleanup_interval",
		"rate_limit.max_ttl",
		"tracing.enabled",
		"tracing.pretty",
		"dev_mode",
	} {
		_ = viper.BindEnv(key)
	}
}

// LoadConfig reads the configuration, applies defaults and dev defaults, and
// validates the result.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override DevMode before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
