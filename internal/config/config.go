package config

import (
	"errors"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Load methods for the destination table.
const (
	MethodInsert = "insert"
	MethodCopy   = "copy"
)

// MaxConcurrency caps the geocoding worker pool.
const MaxConcurrency = 10

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	ETL     ETLConfig     `yaml:"etl" mapstructure:"etl"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig holds the Oracle connection and the table to extract.
type SourceConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Table       string `yaml:"table" mapstructure:"table"`
	Query       string `yaml:"query" mapstructure:"query"` // overrides SELECT * FROM table
}

// SelectQuery returns the configured query, or SELECT * FROM the table.
func (c SourceConfig) SelectQuery() string {
	if c.Query != "" {
		return c.Query
	}
	return "SELECT * FROM " + c.Table
}

// SinkConfig holds the Postgres connection and load behavior.
type SinkConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	Database    string `yaml:"database" mapstructure:"database"`
	Table       string `yaml:"table" mapstructure:"table"`
	Method      string `yaml:"method" mapstructure:"method"`
	// Atomic wraps truncate and insert in one transaction that commits only
	// after every row is written.
	Atomic bool `yaml:"atomic" mapstructure:"atomic"`
}

// DSN returns DatabaseURL when set, otherwise a postgres:// URL built from
// the individual fields.
func (c SinkConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	switch {
	case c.User != "" && c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}
	return u.String()
}

// GeocodeConfig holds the AIS API endpoint and request tuning.
type GeocodeConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"gatekeeper_key" mapstructure:"gatekeeper_key"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// ETLConfig bounds a single run.
type ETLConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEOCODE_ETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty defaults register the keys so AutomaticEnv sees them.
	v.SetDefault("source.host", "")
	v.SetDefault("source.port", 1521)
	v.SetDefault("source.service_name", "")
	v.SetDefault("source.user", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.table", "")
	v.SetDefault("source.query", "")
	v.SetDefault("sink.database_url", "")
	v.SetDefault("sink.host", "localhost")
	v.SetDefault("sink.port", 5432)
	v.SetDefault("sink.user", "")
	v.SetDefault("sink.password", "")
	v.SetDefault("sink.database", "")
	v.SetDefault("sink.table", "")
	v.SetDefault("sink.method", MethodInsert)
	v.SetDefault("sink.atomic", false)
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.gatekeeper_key", "")
	v.SetDefault("geocode.timeout_secs", 0)
	v.SetDefault("geocode.rate_limit", 0)
	v.SetDefault("geocode.concurrency", 1)
	v.SetDefault("etl.limit", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var problems []string
	require := func(value, key string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, key+" is required")
		}
	}

	require(c.Source.Host, "source.host")
	require(c.Source.ServiceName, "source.service_name")
	require(c.Source.User, "source.user")
	if c.Source.Table == "" && c.Source.Query == "" {
		problems = append(problems, "source.table or source.query is required")
	}
	if c.Source.Port <= 0 {
		problems = append(problems, "source.port must be positive")
	}

	if c.Sink.DatabaseURL == "" {
		require(c.Sink.Database, "sink.database")
	}
	require(c.Sink.Table, "sink.table")
	if c.Sink.Method != MethodInsert && c.Sink.Method != MethodCopy {
		problems = append(problems, "sink.method must be insert or copy, got "+strconv.Quote(c.Sink.Method))
	}

	require(c.Geocode.BaseURL, "geocode.base_url")
	require(c.Geocode.Key, "geocode.gatekeeper_key")
	if c.Geocode.Concurrency < 1 || c.Geocode.Concurrency > MaxConcurrency {
		problems = append(problems, "geocode.concurrency must be between 1 and "+strconv.Itoa(MaxConcurrency))
	}
	if c.Geocode.TimeoutSecs < 0 {
		problems = append(problems, "geocode.timeout_secs must not be negative")
	}
	if c.Geocode.RateLimit < 0 {
		problems = append(problems, "geocode.rate_limit must not be negative")
	}

	if c.ETL.Limit <= 0 {
		problems = append(problems, "etl.limit must be positive")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
