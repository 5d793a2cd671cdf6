// Package config loads galaxy-sync settings from a YAML file, .env files and
// GALAXY_SYNC_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, GALAXY_SYNC_DB_DSN for db.dsn.
const EnvPrefix = "GALAXY_SYNC"

// Config holds the configuration for the application.
type Config struct {
	Galaxy struct {
		URL     string        `mapstructure:"url"`
		APIKey  string        `mapstructure:"api_key"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"galaxy"`
	DB struct {
		Driver string `mapstructure:"driver"`
		DSN    string `mapstructure:"dsn"`
		Debug  bool   `mapstructure:"debug"`
		Pool   struct {
			MaxOpenConns    int           `mapstructure:"max_open_conns"`
			MaxIdleConns    int           `mapstructure:"max_idle_conns"`
			ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
			ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
		} `mapstructure:"pool"`
	} `mapstructure:"db"`
	Storage struct {
		Root       string `mapstructure:"root"`
		SigningKey string `mapstructure:"signing_key"`
		BaseURL    string `mapstructure:"base_url"`
	} `mapstructure:"storage"`
	Sync struct {
		Interval    time.Duration `mapstructure:"interval"`
		RetryBudget int           `mapstructure:"retry_budget"`
		Concurrency int           `mapstructure:"concurrency"`
		Schedule    string        `mapstructure:"schedule"`
		Owners      []string      `mapstructure:"owners"`
	} `mapstructure:"sync"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var defaults = map[string]any{
	"galaxy.url":                 "",
	"galaxy.api_key":             "",
	"galaxy.timeout":             "60s",
	"db.driver":                  "sqlite",
	"db.dsn":                     "galaxy-sync.db",
	"db.debug":                   false,
	"db.pool.max_open_conns":     16,
	"db.pool.max_idle_conns":     4,
	"db.pool.conn_max_lifetime":  "30m",
	"db.pool.conn_max_idle_time": "1m",
	"storage.root":               "./data",
	"storage.signing_key":        "",
	"storage.base_url":           "",
	"sync.interval":              "6s",
	"sync.retry_budget":          10,
	"sync.concurrency":           8,
	"sync.schedule":              "1m",
	"sync.owners":                []string{},
	"log.level":                  "info",
	"log.format":                 "text",
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file. When empty, config.yaml is
	// searched in . and ./config and may be absent.
	ConfigFile string
	// EnvFiles are loaded into the process environment before the
	// environment is read. Defaults to .env, which may be absent.
	EnvFiles []string
}

// Load loads the configuration from files and the environment.
func Load(opts LoadOptions) (*Config, error) {
	if err := loadEnvFiles(opts.EnvFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	config.Galaxy.URL = strings.TrimSpace(config.Galaxy.URL)
	return &config, nil
}

func loadEnvFiles(files []string) error {
	explicit := len(files) > 0
	if !explicit {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load env file %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports settings that make the engine unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Galaxy.URL == "" {
		errs = append(errs, errors.New("galaxy.url is required"))
	}
	if c.Galaxy.APIKey == "" {
		errs = append(errs, errors.New("galaxy.api_key is required"))
	}
	switch strings.ToLower(c.DB.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("db.driver %q is not supported", c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.Storage.SigningKey == "" {
		errs = append(errs, errors.New("storage.signing_key is required"))
	}
	if c.Sync.Interval <= 0 {
		errs = append(errs, errors.New("sync.interval must be positive"))
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
