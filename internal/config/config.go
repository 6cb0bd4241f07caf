package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	API     APIConfig
	HTTP    HTTPConfig
	Session SessionConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Log     LogConfig
}

type AppConfig struct {
	Name string
	Env  string
}

// APIConfig points at the shop backend that owns carts, orders and admin sessions.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type HTTPConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSAllowOrigins   []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

type SessionConfig struct {
	CookieName      string
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "storefront")
	v.SetDefault("app.env", "development")

	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.request_timeout", 10*time.Second)

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.max_request_body_size", 1<<20)
	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("http.rate_limit_per_second", 5.0)
	v.SetDefault("http.rate_limit_burst", 10)

	v.SetDefault("session.cookie_name", "sf_session")
	v.SetDefault("session.idle_ttl", 30*time.Minute)
	v.SetDefault("session.cleanup_interval", time.Minute)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 15*time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront-orders")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration with the following priority (highest first):
//  1. STOREFRONT_* environment variables (a .env file in the working directory is loaded first)
//  2. the TOML file at path, or storefront.toml in the working directory when path is empty
//  3. built-in defaults
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(v.GetString("api.base_url"), "/"),
			RequestTimeout: v.GetDuration("api.request_timeout"),
		},
		HTTP: HTTPConfig{
			Port:               v.GetString("http.port"),
			ReadTimeout:        v.GetDuration("http.read_timeout"),
			WriteTimeout:       v.GetDuration("http.write_timeout"),
			IdleTimeout:        v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:    v.GetDuration("http.shutdown_timeout"),
			RequestTimeout:     v.GetDuration("http.request_timeout"),
			MaxRequestBodySize: v.GetInt64("http.max_request_body_size"),
			CORSAllowOrigins:   v.GetStringSlice("http.cors_allow_origins"),
			RateLimitPerSecond: v.GetFloat64("http.rate_limit_per_second"),
			RateLimitBurst:     v.GetInt("http.rate_limit_burst"),
		},
		Session: SessionConfig{
			CookieName:      v.GetString("session.cookie_name"),
			IdleTTL:         v.GetDuration("session.idle_ttl"),
			CleanupInterval: v.GetDuration("session.cleanup_interval"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.RequestTimeout <= 0 {
		return errors.New("api.request_timeout must be positive")
	}
	if c.HTTP.Port == "" {
		return errors.New("http.port is required")
	}
	if c.Session.IdleTTL <= 0 {
		return errors.New("session.idle_ttl must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
