package config

import (
	"time"

	"github.com/fjod/go_eshop/orders-service/internal/repository"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8082"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"50055"`

	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         int    `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"orderdb"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./internal/repository/migrations"`

	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	CheckoutTopic string   `envconfig:"CHECKOUT_TOPIC" default:"basket-checkout"`
	ConsumerGroup string   `envconfig:"CONSUMER_GROUP" default:"orders-service"`

	RedeliveryMaxRetries  uint64        `envconfig:"REDELIVERY_MAX_RETRIES" default:"3"`
	RedeliveryMinInterval time.Duration `envconfig:"REDELIVERY_MIN_INTERVAL" default:"1s"`
	RedeliveryMaxInterval time.Duration `envconfig:"REDELIVERY_MAX_INTERVAL" default:"5m"`
	RedeliveryJitter      time.Duration `envconfig:"REDELIVERY_JITTER" default:"1s"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Credentials() *repository.Credentials {
	return &repository.Credentials{
		Host:              c.DBHost,
		Port:              c.DBPort,
		User:              c.DBUser,
		Password:          c.DBPassword,
		DBName:            c.DBName,
		SSLMode:           c.DBSSLMode,
		MigrationsDirPath: c.MigrationsPath,
	}
}
