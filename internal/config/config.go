package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type CommissionConfig struct {
	Env            string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer     `yaml:"http_server"`
	GRPCServer     `yaml:"grpc_server"`
	CommissionDB   `yaml:"commission_db"`
	LogConfig      `yaml:"log_config"`
	KafkaService   `yaml:"kafka-service"`
	Redis          `yaml:"redis"`
	Stripe         `yaml:"stripe"`
	Reconciliation `yaml:"reconciliation"`
	Reminder       `yaml:"reminder"`
	Onboarding     `yaml:"onboarding"`
}

type HTTPServer struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type CommissionDB struct {
	Dsn            string `yaml:"dsn" env:"COMMISSION_DB_DSN" env-required:"true"`
	MigrationsPath string `yaml:"migrations_path" env:"COMMISSION_MIGRATIONS_PATH" env-default:"migrations"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
}

type KafkaService struct {
	Host               string `yaml:"host" env:"KAFKA_HOST"`
	Port               string `yaml:"port" env:"KAFKA_PORT" env-default:"9092"`
	NotificationsTopic string `yaml:"notifications_topic" env-default:"affiliate-notifications"`
	PayoutsTopic       string `yaml:"payouts_topic" env-default:"affiliate-payouts"`
}

func (k KafkaService) Brokers() []string {
	if k.Host == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s:%s", k.Host, k.Port)}
}

type Redis struct {
	URL     string        `yaml:"url" env:"REDIS_URL"`
	LockTTL time.Duration `yaml:"lock_ttl" env-default:"30m"`
}

type Stripe struct {
	SecretKey     string  `yaml:"secret_key" env:"STRIPE_SECRET_KEY" env-required:"true"`
	RatePerSecond float64 `yaml:"rate_per_second" env-default:"20"`
	Burst         int     `yaml:"burst" env-default:"10"`
}

type Reconciliation struct {
	Interval      time.Duration `yaml:"interval" env:"RECONCILIATION_INTERVAL" env-default:"1h"`
	LookbackHours int           `yaml:"lookback_hours" env:"RECONCILIATION_LOOKBACK_HOURS" env-default:"48"`
	Method        string        `yaml:"method" env-default:"stripe_transfer"`
}

func (r Reconciliation) Lookback() time.Duration {
	return time.Duration(r.LookbackHours) * time.Hour
}

type Reminder struct {
	Hour     int           `yaml:"hour" env:"REMINDER_HOUR" env-default:"9"`
	Minute   int           `yaml:"minute" env:"REMINDER_MINUTE" env-default:"0"`
	Timezone string        `yaml:"timezone" env:"REMINDER_TIMEZONE" env-default:"UTC"`
	Cadence  time.Duration `yaml:"cadence" env:"REMINDER_CADENCE" env-default:"168h"`
}

func (r Reminder) Location() (*time.Location, error) {
	return time.LoadLocation(r.Timezone)
}

type Onboarding struct {
	StatusCacheTTL time.Duration `yaml:"status_cache_ttl" env-default:"5m"`
}

func MustLoad() *CommissionConfig {
	cfg, err := Load(os.Getenv("COMMISSION_CONFIG_PATH"))
	if err != nil {
		log.Fatalf("%v\n", err)
	}
	return cfg
}

func Load(configPath string) (*CommissionConfig, error) {
	if configPath == "" {
		return nil, fmt.Errorf("COMMISSION_CONFIG_PATH was not found")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg CommissionConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := cfg.Reminder.Location(); err != nil {
		return nil, fmt.Errorf("invalid reminder timezone %q: %w", cfg.Reminder.Timezone, err)
	}
	if cfg.Reconciliation.LookbackHours <= 0 {
		return nil, fmt.Errorf("reconciliation lookback_hours must be positive")
	}

	return &cfg, nil
}
