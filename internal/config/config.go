// Package config handles the configuration directory, the optional
// config.yaml file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the optional configuration filename.
	ConfigFile = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. TASKSYNC_BASE_URL.
	EnvPrefix = "TASKSYNC"

	// DefaultBaseURL is used when no base_url is configured.
	DefaultBaseURL = "http://localhost:5000"

	// DefaultTimeout bounds each API request.
	DefaultTimeout = 10 * time.Second
)

// StorageConfig selects where durable records are kept.
type StorageConfig struct {
	// Driver is "file" (default), "memory" or "redis".
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisPassword string        `mapstructure:"redis_password" yaml:"-"`
	RedisDB       int           `mapstructure:"redis_db" yaml:"redis_db,omitempty"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl" yaml:"redis_ttl,omitempty"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `mapstructure:"-" yaml:"dir"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug" yaml:"debug"`

	// Quiet suppresses informational output.
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`

	// BaseURL is the API root; paths like /api/tasks are appended.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIToken is sent as a bearer token when set.
	APIToken string `mapstructure:"api_token" yaml:"-"`

	// Timeout bounds each API request.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// FetchPolicy is "completion" or "latest".
	FetchPolicy string `mapstructure:"fetch_policy" yaml:"fetch_policy"`

	// Theme is the initial theme when none has been saved.
	Theme string `mapstructure:"theme" yaml:"theme"`

	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
}

// New creates a Config for the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
// Settings come from defaults, then config.yaml in the directory (if present),
// then TASKSYNC_* environment variables.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Dir = dir
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("fetch_policy", "completion")
	v.SetDefault("theme", "light")
	v.SetDefault("debug", false)
	v.SetDefault("quiet", false)
	v.SetDefault("api_token", "")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_ttl", time.Duration(0))
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path of the optional config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// WriteYAML renders the effective configuration. Secrets are omitted.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
