package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/tec-dashboard/internal/snapshot"
)

// Defaults for the NESO TEC register source.
const (
	DefaultDatasetURL  = "https://api.neso.energy/dataset/cbd45e54-e6e2-4a38-99f1-8de6fd96d7c1/resource/17becbab-e3e8-473f-b303-3806f43a6a10/download/tec-register-27-09-2024.csv"
	DefaultMetadataURL = "https://www.neso.energy/data-portal/transmission-entry-capacity-tec-register"
)

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the register and its metadata page.
type SourceConfig struct {
	DatasetURL  string `yaml:"dataset_url" mapstructure:"dataset_url"`
	MetadataURL string `yaml:"metadata_url" mapstructure:"metadata_url"`
	CacheDir    string `yaml:"cache_dir" mapstructure:"cache_dir"`
	Filename    string `yaml:"filename" mapstructure:"filename"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	// TimeoutSecs bounds each request; 0 disables the timeout.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// Delimiter is the field separator of a CSV register.
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	// SheetName and SheetIndex pick the worksheet when Filename is .xlsx.
	SheetName  string `yaml:"sheet_name" mapstructure:"sheet_name"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
}

// CachePath is the file the register is persisted to.
func (c SourceConfig) CachePath() string {
	return filepath.Join(c.CacheDir, c.Filename)
}

// Timeout returns the request timeout, zero meaning none.
func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Params returns the snapshot parameters for this source.
func (c SourceConfig) Params() snapshot.Params {
	return snapshot.Params{
		DatasetURL:  c.DatasetURL,
		MetadataURL: c.MetadataURL,
		CachePath:   c.CachePath(),
		Delimiter:   c.Delimiter,
		SheetName:   c.SheetName,
		SheetIndex:  c.SheetIndex,
	}
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DatasetURL, validation.Required),
		validation.Field(&c.MetadataURL, validation.Required),
		validation.Field(&c.Filename, validation.Required),
		validation.Field(&c.TimeoutSecs, validation.Min(0)),
		validation.Field(&c.Delimiter, validation.RuneLength(1, 1)),
		validation.Field(&c.SheetIndex, validation.Min(0)),
	)
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// Address returns the listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SessionConfig configures dashboard sessions.
type SessionConfig struct {
	IdleTimeoutMins int `yaml:"idle_timeout_mins" mapstructure:"idle_timeout_mins"`
}

// IdleTimeout returns how long an unused session is kept.
func (c SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMins) * time.Minute
}

// Validate validates the session configuration.
func (c *SessionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdleTimeoutMins, validation.Required, validation.Min(1)),
	)
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In("json", "console")),
	)
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return eris.Wrap(err, "config: source")
	}
	if err := c.Server.Validate(); err != nil {
		return eris.Wrap(err, "config: server")
	}
	if err := c.Session.Validate(); err != nil {
		return eris.Wrap(err, "config: session")
	}
	if err := c.Log.Validate(); err != nil {
		return eris.Wrap(err, "config: log")
	}
	return nil
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first when present; it never overrides
// variables already set in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TECDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.dataset_url", DefaultDatasetURL)
	v.SetDefault("source.metadata_url", DefaultMetadataURL)
	v.SetDefault("source.cache_dir", "datastore")
	v.SetDefault("source.filename", "tecregister.csv")
	v.SetDefault("source.user_agent", "tec-dashboard/1.0")
	v.SetDefault("source.timeout_secs", 0)
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.sheet_name", "")
	v.SetDefault("source.sheet_index", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("session.idle_timeout_mins", 60)
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
