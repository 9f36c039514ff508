package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Risk      RiskConfig      `mapstructure:"risk"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	RequireAPIKey bool     `mapstructure:"require_api_key"`
	APIKeys       []string `mapstructure:"api_keys"`
	AdminKey      string   `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	EventRetentionDays     int    `mapstructure:"event_retention_days"`
	AuditRetentionDays     int    `mapstructure:"audit_retention_days"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	EventListKey string `mapstructure:"event_list_key"`
	EventListMax int    `mapstructure:"event_list_max"`
}

type FeedConfig struct {
	URL              string `mapstructure:"url"`
	ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
}

type BreakerConfig struct {
	Threshold       int64 `mapstructure:"threshold"`
	DurationMinutes int   `mapstructure:"duration_minutes"`
	CooldownMinutes int   `mapstructure:"cooldown_minutes"`
}

type RiskConfig struct {
	// Default gate limits applied to profiles created on first sight.
	SingleWindowLimit   float64 `mapstructure:"single_window_limit"`
	FifteenMinuteLimit  float64 `mapstructure:"fifteen_minute_limit"`
	TwentyFourHourLimit float64 `mapstructure:"twenty_four_hour_limit"`

	DynamicLimitsEnabled bool  `mapstructure:"dynamic_limits_enabled"`
	AdjustmentHysteresis int64 `mapstructure:"adjustment_hysteresis_bp"`
	DefaultMaxLeverage   int64 `mapstructure:"default_max_leverage"`

	SingleWindowBreaker   BreakerConfig `mapstructure:"single_window_breaker"`
	FifteenMinuteBreaker  BreakerConfig `mapstructure:"fifteen_minute_breaker"`
	TwentyFourHourBreaker BreakerConfig `mapstructure:"twenty_four_hour_breaker"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. RISKGATE_AUTH_ADMIN_KEY
	viper.SetEnvPrefix("riskgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("risk.single_window_limit", 50000)
	viper.SetDefault("risk.fifteen_minute_limit", 200000)
	viper.SetDefault("risk.twenty_four_hour_limit", 1000000)
	viper.SetDefault("risk.dynamic_limits_enabled", true)
	viper.SetDefault("risk.adjustment_hysteresis_bp", 200)
	viper.SetDefault("risk.default_max_leverage", 20)

	viper.SetDefault("risk.single_window_breaker.threshold", 10)
	viper.SetDefault("risk.single_window_breaker.duration_minutes", 5)
	viper.SetDefault("risk.single_window_breaker.cooldown_minutes", 5)
	viper.SetDefault("risk.fifteen_minute_breaker.threshold", 5)
	viper.SetDefault("risk.fifteen_minute_breaker.duration_minutes", 15)
	viper.SetDefault("risk.fifteen_minute_breaker.cooldown_minutes", 15)
	viper.SetDefault("risk.twenty_four_hour_breaker.threshold", 3)
	viper.SetDefault("risk.twenty_four_hour_breaker.duration_minutes", 60)
	viper.SetDefault("risk.twenty_four_hour_breaker.cooldown_minutes", 60)

	viper.SetDefault("rate_limit.qps", 50)
	viper.SetDefault("rate_limit.burst", 100)

	viper.SetDefault("redis.event_list_key", "risk_events")
	viper.SetDefault("redis.event_list_max", 10000)
	viper.SetDefault("database.event_retention_days", 0) // 0 = retain indefinitely
	viper.SetDefault("database.audit_retention_days", 30)
	viper.SetDefault("database.cleanup_interval_minutes", 60)
	viper.SetDefault("feed.reconnect_seconds", 5)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
