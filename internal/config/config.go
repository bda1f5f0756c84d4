// Package config loads the photo library settings from an optional YAML
// file, an optional .env file and PHOTOS_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. PHOTOS_DATA_DIR.
const EnvPrefix = "PHOTOS"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config holds the settings the shell needs to open a library.
type Config struct {
	// Root of durable storage
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// Directory scanned for stock images on first run
	StockDir string `mapstructure:"stock_dir" yaml:"stock_dir"`
	// One of file, sqlite, badger
	Backend   string `mapstructure:"backend" yaml:"backend"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	// IANA zone for calendar-day search, or "local"
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("stock_dir", "data/stock")
	v.SetDefault("backend", BackendFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", string(logging.FormatJSON))
	v.SetDefault("timezone", "local")
}

// Load reads configuration. envFile and configPath may be empty; a missing
// envFile is ignored, a missing configPath is an error.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrInvalid, "load env file", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrInvalid, "read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, "decode config", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New(errors.ErrInvalid, "data_dir is required")
	}
	if strings.TrimSpace(c.StockDir) == "" {
		return errors.New(errors.ErrInvalid, "stock_dir is required")
	}
	switch c.Backend {
	case BackendFile, BackendSQLite, BackendBadger:
	default:
		return errors.Newf(errors.ErrInvalid, "unknown backend %q", c.Backend)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.ErrInvalid, "log_level", err)
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatJSON, logging.FormatConsole:
	default:
		return errors.Newf(errors.ErrInvalid, "unknown log_format %q", c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalid, fmt.Sprintf("timezone %q", c.Timezone), err)
	}
	return loc, nil
}
