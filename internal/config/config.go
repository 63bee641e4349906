package config

import (
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type PaymentConfig struct {
	Env             string `yaml:"env"`
	HTTPServer      `yaml:"http_server"`
	MetricsServer   `yaml:"metrics_server"`
	PaymentDB       `yaml:"payment_db"`
	LogConfig       `yaml:"log_config"`
	RedisConfig     `yaml:"redis"`
	KafkaService    `yaml:"kafka-service"`
	LockConfig      `yaml:"payment_lock"`
	CallbackConfig  `yaml:"callback"`
	SchedulerConfig `yaml:"scheduler"`
	StatsConfig     `yaml:"admin_stats"`
	Providers       []ProviderConfig `yaml:"providers"`
}

type HTTPServer struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type MetricsServer struct {
	Addr string `yaml:"addr"`
}

type PaymentDB struct {
	Dsn            string `yaml:"dsn"`
	MigrationsPath string `yaml:"migrations_path"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogOutput string `yaml:"log_output"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaService struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type LockConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

type CallbackConfig struct {
	SigningSecret string `yaml:"signing_secret"`
	MaxAttempts   int    `yaml:"max_attempts"`
}

// SchedulerConfig holds the background job intervals in minutes. Zero values
// fall back to the defaults applied in the background package.
type SchedulerConfig struct {
	SweepIntervalMinutes      int `yaml:"sweep_interval_minutes"`
	StatsRefreshMinutes       int `yaml:"stats_refresh_minutes"`
	RedeliveryIntervalMinutes int `yaml:"redelivery_interval_minutes"`
}

type StatsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// ProviderConfig carries the shared webhook secret for one payment provider.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	Secret string `yaml:"secret"`
}

func MustLoad() *PaymentConfig {

	// Processing env config variable and file
	configPath := os.Getenv("PAYMENT_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("PAYMENT_CONFIG_PATH was not found\n")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("failed to find config file: %v\n", err)
	}

	// YAML to struct object
	var cfg PaymentConfig
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	return &cfg
}
