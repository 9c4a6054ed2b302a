package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

type ServerConfig struct {
	Port            string          `mapstructure:"port"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string        `mapstructure:"allow_origins"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"`  // requests per second per client IP
	Burst   int     `mapstructure:"burst"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	Retry           RetryConfig   `mapstructure:"retry"`
}

// RetryConfig controls how a unit of work is replayed after losing a race
// on an order row or hitting a lock timeout.
type RetryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	InitialDelay  time.Duration `mapstructure:"initial_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
	JitterEnabled bool          `mapstructure:"jitter_enabled"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, console
	Output   string `mapstructure:"output"` // stdout, file
	FilePath string `mapstructure:"file_path"`
}

type NotificationsConfig struct {
	AMQPURL    string `mapstructure:"amqp_url"` // empty means log-only publishing
	Exchange   string `mapstructure:"exchange"`
	BufferSize int    `mapstructure:"buffer_size"`
}

type GatewayConfig struct {
	FailCharges bool `mapstructure:"fail_charges"`
	FailRefunds bool `mapstructure:"fail_refunds"`
}

// BootstrapConfig seeds the first tenant, its store and an owner account
// into an empty database. An empty OwnerEmail disables it.
type BootstrapConfig struct {
	TenantName    string  `mapstructure:"tenant_name"`
	TaxRate       float64 `mapstructure:"tax_rate"`
	LocationName  string  `mapstructure:"location_name"`
	Washers       int     `mapstructure:"washers"`
	Dryers        int     `mapstructure:"dryers"`
	DeliveryFee   float64 `mapstructure:"delivery_fee"`
	OwnerName     string  `mapstructure:"owner_name"`
	OwnerEmail    string  `mapstructure:"owner_email"`
	OwnerPassword string  `mapstructure:"owner_password"`
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load reads configuration from the given file (or ./config.yaml,
// ./config/config.yaml), overlaying LAUNDRY_* environment variables.
// A missing file is not an error; defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("LAUNDRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret must not be empty")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "laundry-api")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.rate", 50)
	v.SetDefault("server.rate_limit.burst", 100)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "laundry.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("database.retry.enabled", true)
	v.SetDefault("database.retry.max_attempts", 3)
	v.SetDefault("database.retry.initial_delay", "50ms")
	v.SetDefault("database.retry.max_delay", "1s")
	v.SetDefault("database.retry.backoff_factor", 2.0)
	v.SetDefault("database.retry.jitter_enabled", true)

	v.SetDefault("auth.jwt_secret", "laundry_dev_secret_change_me")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "logs/laundry-api.log")

	v.SetDefault("notifications.amqp_url", "")
	v.SetDefault("notifications.exchange", "notifications_fanout")
	v.SetDefault("notifications.buffer_size", 256)

	v.SetDefault("gateway.fail_charges", false)
	v.SetDefault("gateway.fail_refunds", false)

	v.SetDefault("bootstrap.tenant_name", "Laundromat")
	v.SetDefault("bootstrap.tax_rate", 0.0)
	v.SetDefault("bootstrap.location_name", "Main Store")
	v.SetDefault("bootstrap.washers", 10)
	v.SetDefault("bootstrap.dryers", 8)
	v.SetDefault("bootstrap.delivery_fee", 0.0)
	v.SetDefault("bootstrap.owner_name", "Owner")
	v.SetDefault("bootstrap.owner_email", "")
	v.SetDefault("bootstrap.owner_password", "")
}
