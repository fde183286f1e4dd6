// Package config loads yentui settings from file and environment and keeps
// them fresh while the dashboard runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const envPrefix = "YENTUI"

// Config holds the runtime settings of the dashboard.
type Config struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PageSize        int           `mapstructure:"page_size" yaml:"page_size"`
	DockWidth       int           `mapstructure:"dock_width" yaml:"dock_width"`
	WatchlistDelay  time.Duration `mapstructure:"watchlist_delay" yaml:"watchlist_delay"`
	ModalCloseDelay time.Duration `mapstructure:"modal_close_delay" yaml:"modal_close_delay"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	DataDir         string        `mapstructure:"data_dir" yaml:"data_dir"`
	ExportDir       string        `mapstructure:"export_dir" yaml:"export_dir"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile         string        `mapstructure:"log_file" yaml:"log_file"`
}

// Loader wraps a viper instance so the same sources can be re-read on change.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a loader. An explicit path wins over the search paths
// ($XDG_CONFIG_HOME/yentui, then the working directory).
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("yentui")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(configHome(), "yentui"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper { return l.v }

// Load reads the config file (a missing file is fine) and returns the
// validated settings.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(l.v.ConfigFileUsed() != "" && os.IsNotExist(err)) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch re-reads the config whenever the file changes and hands the result to
// onChange. Invalid edits are reported through the error argument and the
// previous settings stay in effect.
func (l *Loader) Watch(onChange func(Config, fsnotify.Event, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		onChange(cfg, e, err)
	})
	l.v.WatchConfig()
}

// Default returns the built-in settings without reading any source.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.DockWidth < 40 {
		return fmt.Errorf("dock_width must be at least 40, got %d", c.DockWidth)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.WatchlistDelay < 0 || c.ModalCloseDelay < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	state := filepath.Join(stateHome(), "yentui")

	v.SetDefault("base_url", "http://localhost:5000")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("page_size", 10)
	v.SetDefault("dock_width", 120)
	v.SetDefault("watchlist_delay", 13*time.Second)
	v.SetDefault("modal_close_delay", 300*time.Millisecond)
	v.SetDefault("cache_ttl", 10*time.Minute)
	v.SetDefault("data_dir", filepath.Join(dataHome(), "yentui"))
	v.SetDefault("export_dir", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", filepath.Join(state, "yentui.log"))
}

func configHome() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return d
	}
	return filepath.Join(homeDir(), ".config")
}

func dataHome() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return d
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func stateHome() string {
	if d := os.Getenv("XDG_STATE_HOME"); d != "" {
		return d
	}
	return filepath.Join(homeDir(), ".local", "state")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
