// Package config loads honeydash settings from defaults, an optional YAML
// file, and HONEYDASH_* environment variables, in increasing precedence.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/database"
	"github.com/cdtdelta/honeydash/internal/logging"
	"github.com/cdtdelta/honeydash/internal/model"
	"github.com/cdtdelta/honeydash/internal/source"
)

// EnvPrefix is prepended to every environment variable ("source.url" is
// read from HONEYDASH_SOURCE_URL).
const EnvPrefix = "HONEYDASH"

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SourceConfig struct {
	Kind    string        `mapstructure:"kind"`
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Retries int           `mapstructure:"retries"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type OpenSearchConfig struct {
	URL      string `mapstructure:"url"`
	Index    string `mapstructure:"index"`
	Size     int    `mapstructure:"size"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type RangeConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

type TableConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the full set of settings.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Source     SourceConfig     `mapstructure:"source"`
	Database   DatabaseConfig   `mapstructure:"database"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Range      RangeConfig      `mapstructure:"range"`
	Timezone   string           `mapstructure:"timezone"`
	Table      TableConfig      `mapstructure:"table"`
	Log        LogConfig        `mapstructure:"log"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("source.kind", "file")
	v.SetDefault("source.path", "Data.json")
	v.SetDefault("source.url", "")
	v.SetDefault("source.retries", 0)
	v.SetDefault("source.timeout", 30*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "honeydash.db")

	v.SetDefault("opensearch.url", "")
	v.SetDefault("opensearch.index", "honeypot-events")
	v.SetDefault("opensearch.size", source.DefaultSearchSize)
	v.SetDefault("opensearch.username", "")
	v.SetDefault("opensearch.password", "")

	v.SetDefault("range.start", "2021-07-26")
	v.SetDefault("range.end", "2021-08-25")
	v.SetDefault("timezone", "Local")

	v.SetDefault("table.page_size", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v and decodes the result.
// The returned config has been validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with nothing overridden.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks enumerated values, the timezone, the date range, and the
// page size.
func (c *Config) Validate() error {
	if !lo.Contains(source.Kinds, c.Source.Kind) {
		return errors.Newf("source.kind must be one of %s, got %q", strings.Join(source.Kinds, ", "), c.Source.Kind)
	}
	switch c.Source.Kind {
	case "http":
		if c.Source.URL == "" {
			return errors.New("source.url is required when source.kind is http")
		}
	case "file":
		if c.Source.Path == "" {
			return errors.New("source.path is required when source.kind is file")
		}
	case "opensearch":
		if c.OpenSearch.URL == "" || c.OpenSearch.Index == "" {
			return errors.New("opensearch.url and opensearch.index are required when source.kind is opensearch")
		}
	}
	if c.Source.Retries < 0 {
		return errors.Newf("source.retries must not be negative, got %d", c.Source.Retries)
	}
	if !lo.Contains(database.Drivers, c.Database.Driver) {
		return errors.Newf("database.driver must be one of %s, got %q", strings.Join(database.Drivers, ", "), c.Database.Driver)
	}
	if c.Table.PageSize < 1 {
		return errors.Newf("table.page_size must be positive, got %d", c.Table.PageSize)
	}
	if !lo.Contains(logging.Formats, c.Log.Format) {
		return errors.Newf("log.format must be one of %s, got %q", strings.Join(logging.Formats, ", "), c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	loc, err := c.Location()
	if err != nil {
		return err
	}
	if _, err := c.DateRange(loc); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone. "Local" and "" are the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	return loc, nil
}

// DateRange parses the configured initial range in loc. An empty bound
// falls back to the default range.
func (c *Config) DateRange(loc *time.Location) (model.DateRange, error) {
	r := model.DefaultDateRange(loc)
	if c.Range.Start != "" {
		t, err := model.ParseDate(c.Range.Start, loc)
		if err != nil {
			return r, errors.Wrap(err, "range.start")
		}
		r.Start = t
	}
	if c.Range.End != "" {
		t, err := model.ParseDate(c.Range.End, loc)
		if err != nil {
			return r, errors.Wrap(err, "range.end")
		}
		r.End = t
	}
	return r, nil
}

// SourceConfig maps the settings onto a source.Config. The sqlite and
// postgres kinds read from database.dsn.
func (c *Config) SourceConfig(log *zap.Logger) source.Config {
	sc := source.Config{
		Kind:    c.Source.Kind,
		Path:    c.Source.Path,
		URL:     c.Source.URL,
		Retries: c.Source.Retries,
		Timeout: c.Source.Timeout,
		Logger:  log,
	}
	switch c.Source.Kind {
	case "sqlite", "postgres":
		sc.Path = c.Database.DSN
	case "opensearch":
		sc.URL = c.OpenSearch.URL
		sc.Index = c.OpenSearch.Index
		sc.Size = c.OpenSearch.Size
		sc.Username = c.OpenSearch.Username
		sc.Password = c.OpenSearch.Password
	}
	return sc
}
