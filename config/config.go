package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RECEIPTLENS_SERVER_PORT
const EnvPrefix = "RECEIPTLENS"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadMB    int           `mapstructure:"max_upload_mb"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ParserConfig tunes the receipt parser
type ParserConfig struct {
	DetectionLines int               `mapstructure:"detection_lines"`
	LineTolerance  float64           `mapstructure:"line_tolerance"`
	TotalTolerance float64           `mapstructure:"total_tolerance"`
	Departments    DepartmentsConfig `mapstructure:"departments"`
}

// DepartmentsConfig extends the built-in department dictionaries per chain
type DepartmentsConfig struct {
	PingoDoce  []string `mapstructure:"pingo_doce"`
	Continente []string `mapstructure:"continente"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // only "memory"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// BatchConfig bounds batch extraction
type BatchConfig struct {
	MaxFiles    int `mapstructure:"max_files"`
	Concurrency int `mapstructure:"concurrency"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MaxUploadBytes is the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/receiptlens/")

	// server.max_upload_mb -> RECEIPTLENS_SERVER_MAX_UPLOAD_MB
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a
// default so that AutomaticEnv picks it up during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("parser.detection_lines", 40)
	v.SetDefault("parser.line_tolerance", 0.005)
	v.SetDefault("parser.total_tolerance", 0.05)
	v.SetDefault("parser.departments.pingo_doce", []string{})
	v.SetDefault("parser.departments.continente", []string{})

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("batch.max_files", 20)
	v.SetDefault("batch.concurrency", 4)

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set %s_SERVER_PORT)", EnvPrefix)
	}

	if config.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got: %d", config.Server.MaxUploadMB)
	}

	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got: %s", config.Server.RequestTimeout)
	}

	if config.Parser.DetectionLines <= 0 {
		return fmt.Errorf("parser.detection_lines must be positive, got: %d", config.Parser.DetectionLines)
	}

	if config.Parser.LineTolerance < 0 || config.Parser.TotalTolerance < 0 {
		return fmt.Errorf("parser tolerances must not be negative")
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.per_ip and ratelimit.burst must be positive")
	}

	if config.Batch.MaxFiles <= 0 || config.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.max_files and batch.concurrency must be positive")
	}

	return nil
}
