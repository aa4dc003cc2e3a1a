package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App AppConfig `mapstructure:"app"`

	HTTP HTTPConfig `mapstructure:"http"`

	// Storage
	Database DatabaseConfig `mapstructure:"database"`
	Postgres PostgresConfig `mapstructure:"postgres"`

	// Redis
	Redis RedisConfig `mapstructure:"redis"`

	// NATS
	NATS NATSConfig `mapstructure:"nats"`

	// Prometheus
	Prometheus PrometheusConfig `mapstructure:"prometheus"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Quota     QuotaConfig     `mapstructure:"quota"`
	Challenge ChallengeConfig `mapstructure:"challenge"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
}

type AppConfig struct {
	Env            string `mapstructure:"env"`
	BaseURL        string `mapstructure:"base_url"`
	RedirectSecret string `mapstructure:"redirect_secret"`
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
	LogLevel       string `mapstructure:"log_level"`
	LogEncoding    string `mapstructure:"log_encoding"`
}

// IsDevelopment reports whether the service runs outside production.
func (c AppConfig) IsDevelopment() bool {
	return c.Env != "production"
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	BodyLimit    int           `mapstructure:"body_limit"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	// Driver is either "postgres" or "sqlite".
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type PostgresConfig struct {
	Host              string        `mapstructure:"host"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	Port              int           `mapstructure:"port"`
	SSLMode           string        `mapstructure:"sslmode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// QuotaConfig holds per-owner upper bounds enforced before creation.
type QuotaConfig struct {
	MaxLinks       int `mapstructure:"max_links"`
	MaxUnlockers   int `mapstructure:"max_unlockers"`
	MaxSequences   int `mapstructure:"max_sequences"`
	MaxCards       int `mapstructure:"max_cards"`
	MaxCardLinks   int `mapstructure:"max_card_links"`
	MaxSocialLinks int `mapstructure:"max_social_links"`
}

type ChallengeConfig struct {
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ResolverConfig struct {
	BloomEnabled     bool          `mapstructure:"bloom_enabled"`
	BloomCapacity    uint          `mapstructure:"bloom_capacity"`
	BloomFPRate      float64       `mapstructure:"bloom_fp_rate"`
	IncrementTimeout time.Duration `mapstructure:"increment_timeout"`
}

const (
	devRedirectSecret = "dev-redirect-secret"
	devJWTSecret      = "dev-jwt-secret"
)

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Preserve legacy env variable names.
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.App.IsDevelopment() {
		if c.App.RedirectSecret == "" {
			c.App.RedirectSecret = devRedirectSecret
		}
		if c.App.JWTSecret == "" {
			c.App.JWTSecret = devJWTSecret
		}
		return nil
	}
	if c.App.RedirectSecret == "" {
		return fmt.Errorf("config: app.redirect_secret is required in production")
	}
	if c.App.JWTSecret == "" {
		return fmt.Errorf("config: app.jwt_secret is required in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.jwt_issuer", "linkgate")
	v.SetDefault("app.log_encoding", "console")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.body_limit", 1024*1024)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.sqlite_path", "linkgate.db")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.cache_ttl", time.Minute)
	v.SetDefault("prometheus.port", 9090)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("quota.max_links", 100)
	v.SetDefault("quota.max_unlockers", 25)
	v.SetDefault("quota.max_sequences", 25)
	v.SetDefault("quota.max_cards", 25)
	v.SetDefault("quota.max_card_links", 7)
	v.SetDefault("quota.max_social_links", 5)

	v.SetDefault("challenge.session_ttl", 15*time.Minute)
	v.SetDefault("challenge.max_sessions", 10000)
	v.SetDefault("challenge.token_ttl", 60*time.Second)
	v.SetDefault("challenge.sweep_interval", 30*time.Second)

	v.SetDefault("resolver.bloom_enabled", false)
	v.SetDefault("resolver.bloom_capacity", 1_000_000)
	v.SetDefault("resolver.bloom_fp_rate", 0.01)
	v.SetDefault("resolver.increment_timeout", 3*time.Second)
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.log_level", "LOG_LEVEL")
	v.BindEnv("app.redirect_secret", "REDIRECT_SECRET")
	v.BindEnv("app.jwt_secret", "JWT_SECRET")

	// PostgreSQL
	v.BindEnv("postgres.host", "PG_HOST")
	v.BindEnv("postgres.user", "PG_USER")
	v.BindEnv("postgres.password", "PG_PASSWORD")
	v.BindEnv("postgres.database", "PG_DB")
	v.BindEnv("postgres.port", "PG_PORT")
	v.BindEnv("postgres.sslmode", "PG_SSLMODE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Prometheus
	v.BindEnv("prometheus.port", "PROM_PORT")
}
