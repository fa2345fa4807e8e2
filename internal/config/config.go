// Package config loads process configuration from an optional app.env file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/itinera/itinera/internal/database"
	"github.com/itinera/itinera/internal/itinerary"
	"github.com/itinera/itinera/internal/telemetry"
)

// Condition store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Environment string `mapstructure:"APP_ENV"`
	Port        string `mapstructure:"APP_PORT"`

	OTelEnabled  bool    `mapstructure:"OTEL_ENABLED"`
	OTLPEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio  float64 `mapstructure:"OTEL_SAMPLE_RATIO"`

	GazetteerPath string `mapstructure:"GAZETTEER_PATH"`

	ConditionCacheTTL time.Duration `mapstructure:"CONDITION_CACHE_TTL"`
	ConditionStore    string        `mapstructure:"CONDITION_STORE"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	RedisPassword     string        `mapstructure:"REDIS_PASSWORD"`

	MinLayoverHours     float64 `mapstructure:"MIN_LAYOVER_HOURS"`
	MaxDailyTravelHours float64 `mapstructure:"MAX_DAILY_TRAVEL_HOURS"`
	PreferredDeparture  string  `mapstructure:"PREFERRED_DEPARTURE"`

	MonitorPollInterval time.Duration `mapstructure:"MONITOR_POLL_INTERVAL"`
	MonitorConcurrency  int           `mapstructure:"MONITOR_CONCURRENCY"`

	PubSubProjectID    string `mapstructure:"PUBSUB_PROJECT_ID"`
	PubSubSubscription string `mapstructure:"PUBSUB_SUBSCRIPTION"`
	PubSubAlertTopic   string `mapstructure:"PUBSUB_ALERT_TOPIC"`

	DBEnabled         bool          `mapstructure:"DB_ENABLED"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            int           `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`

	FlagsCacheTTL time.Duration `mapstructure:"FLAGS_CACHE_TTL"`
}

var defaults = map[string]any{
	"APP_ENV":                     "development",
	"APP_PORT":                    "8080",
	"OTEL_ENABLED":                false,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"OTEL_SAMPLE_RATIO":           1.0,
	"GAZETTEER_PATH":              "",
	"CONDITION_CACHE_TTL":         15 * time.Minute,
	"CONDITION_STORE":             StoreMemory,
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"MIN_LAYOVER_HOURS":           2.0,
	"MAX_DAILY_TRAVEL_HOURS":      12.0,
	"PREFERRED_DEPARTURE":         "09:00",
	"MONITOR_POLL_INTERVAL":       5 * time.Minute,
	"MONITOR_CONCURRENCY":         3,
	"PUBSUB_PROJECT_ID":           "",
	"PUBSUB_SUBSCRIPTION":         "itinera-monitor",
	"PUBSUB_ALERT_TOPIC":          "",
	"DB_ENABLED":                  false,
	"DB_HOST":                     "localhost",
	"DB_PORT":                     5432,
	"DB_USER":                     "itinera",
	"DB_PASSWORD":                 "localdev",
	"DB_NAME":                     "itinera",
	"DB_SSL_MODE":                 "disable",
	"DB_MAX_OPEN_CONNS":           10,
	"DB_MAX_IDLE_CONNS":           5,
	"DB_CONN_MAX_LIFETIME":        5 * time.Minute,
	"FLAGS_CACHE_TTL":             time.Minute,
}

// Load reads configuration from app.env in path (when present) and
// overrides it with environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.ConditionStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("CONDITION_STORE must be %q or %q, got %q", StoreMemory, StoreRedis, c.ConditionStore)
	}
	if c.MonitorConcurrency < 1 {
		return fmt.Errorf("MONITOR_CONCURRENCY must be positive, got %d", c.MonitorConcurrency)
	}
	if c.MonitorPollInterval <= 0 {
		return fmt.Errorf("MONITOR_POLL_INTERVAL must be positive, got %s", c.MonitorPollInterval)
	}
	return nil
}

// IsProduction reports whether the process runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Database returns the Postgres pool settings.
func (c Config) Database() database.Config {
	return database.Config{
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		Database:        c.DBName,
		SSLMode:         c.DBSSLMode,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
	}
}

// Telemetry returns the OpenTelemetry settings for a named service.
func (c Config) Telemetry(service, version string) telemetry.Config {
	return telemetry.Config{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTLPEndpoint,
		Enabled:        c.OTelEnabled,
		SampleRatio:    c.SampleRatio,
	}
}

// Schedule returns the itinerary timing limits.
func (c Config) Schedule() itinerary.ScheduleConfig {
	return itinerary.ScheduleConfig{
		MinLayoverHours:     c.MinLayoverHours,
		MaxDailyTravelHours: c.MaxDailyTravelHours,
		DepartureTime:       c.PreferredDeparture,
	}
}
