package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8081"`
	GRPCPort string `envconfig:"GRPC_PORT" default:"50052"`

	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DB_NAME" default:"cartdb"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	CacheJitter   time.Duration `envconfig:"CACHE_JITTER" default:"5m"`

	DiscountURL     string        `envconfig:"DISCOUNT_URL" default:"http://localhost:8083"`
	DiscountTimeout time.Duration `envconfig:"DISCOUNT_TIMEOUT" default:"2s"`

	KafkaBrokers  []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	CheckoutTopic string   `envconfig:"CHECKOUT_TOPIC" default:"basket-checkout"`
	// CheckoutMode is "direct" (publish then delete) or "outbox".
	CheckoutMode string `envconfig:"CHECKOUT_MODE" default:"direct"`

	PublishMaxRetries  uint64        `envconfig:"PUBLISH_MAX_RETRIES" default:"3"`
	PublishMinInterval time.Duration `envconfig:"PUBLISH_MIN_INTERVAL" default:"1s"`
	PublishMaxInterval time.Duration `envconfig:"PUBLISH_MAX_INTERVAL" default:"5m"`
	PublishJitter      time.Duration `envconfig:"PUBLISH_JITTER" default:"1s"`

	BreakerTripThreshold   float64       `envconfig:"BREAKER_TRIP_THRESHOLD" default:"15"`
	BreakerActiveThreshold uint32        `envconfig:"BREAKER_ACTIVE_THRESHOLD" default:"10"`
	BreakerTrackingPeriod  time.Duration `envconfig:"BREAKER_TRACKING_PERIOD" default:"1m"`
	BreakerResetInterval   time.Duration `envconfig:"BREAKER_RESET_INTERVAL" default:"5m"`

	RelayInterval   time.Duration `envconfig:"OUTBOX_RELAY_INTERVAL" default:"1s"`
	RelayBatchSize  int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PurgeInterval   time.Duration `envconfig:"OUTBOX_PURGE_INTERVAL" default:"1h"`
	OutboxRetention time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`

	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CheckoutMode != "direct" && cfg.CheckoutMode != "outbox" {
		return nil, fmt.Errorf("CHECKOUT_MODE must be direct or outbox, got %q", cfg.CheckoutMode)
	}
	return &cfg, nil
}
