package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Config is a helper package, it could be an external lib
 * Values come from .env (TOML) in the working directory, overridden by environment variables
 */

// Bus drivers
const (
	DriverRedis    = "redis"
	DriverKafka    = "kafka"
	DriverRabbitMQ = "rabbitmq"
	DriverMemory   = "memory"
)

const (
	defaultPort             = "8080"
	defaultWebhookPath      = "/webhook"
	defaultTolerance        = 5 * time.Minute
	defaultMaxBodyBytes     = 64 << 10
	defaultDispatchTimeout  = 3 * time.Second
	defaultRedisAddr        = "localhost:6379"
	defaultRabbitMQExchange = "payments"
	defaultPollInterval     = 5 * time.Second
	defaultBatchSize        = 50
	defaultOutboxTimeout    = 3 * time.Second
	defaultMaxAttempts      = 10
	defaultShutdownTimeout  = 10 * time.Second
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	WebhookPath          string        `mapstructure:"WEBHOOK_PATH"`
	StripeEndpointSecret string        `mapstructure:"STRIPE_ENDPOINT_SECRET"`
	WebhookTolerance     time.Duration `mapstructure:"WEBHOOK_TOLERANCE"`
	MaxBodyBytes         int64         `mapstructure:"MAX_BODY_BYTES"`
	DispatchTimeout      time.Duration `mapstructure:"DISPATCH_TIMEOUT"`
	BusDriver            string        `mapstructure:"BUS_DRIVER"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB              int           `mapstructure:"REDIS_DB"`
	RedisStreamMaxLen    int64         `mapstructure:"REDIS_STREAM_MAXLEN"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS"`
	RabbitMQURL          string        `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange     string        `mapstructure:"RABBITMQ_EXCHANGE"`
	BindingsFile         string        `mapstructure:"BINDINGS_FILE"`
	OutboxEnabled        bool          `mapstructure:"OUTBOX_ENABLED"`
	PostgresDSN          string        `mapstructure:"POSTGRES_DSN"`
	OutboxPollInterval   time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize      int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxTimeout        time.Duration `mapstructure:"OUTBOX_TIMEOUT"`
	OutboxMaxAttempts    int           `mapstructure:"OUTBOX_MAX_ATTEMPTS"`
	ShutdownTimeout      time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// GetConfig reads .env from the working directory
func GetConfig() (*Config, error) {
	return Load(".")
}

// Load reads .env from dir; a missing file is not an error
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}

// setDefaults registers every key so AutomaticEnv values reach Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("WEBHOOK_PATH", defaultWebhookPath)
	v.SetDefault("STRIPE_ENDPOINT_SECRET", "")
	v.SetDefault("WEBHOOK_TOLERANCE", defaultTolerance)
	v.SetDefault("MAX_BODY_BYTES", defaultMaxBodyBytes)
	v.SetDefault("DISPATCH_TIMEOUT", defaultDispatchTimeout)
	v.SetDefault("BUS_DRIVER", DriverRedis)
	v.SetDefault("REDIS_ADDR", defaultRedisAddr)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_STREAM_MAXLEN", 0)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", defaultRabbitMQExchange)
	v.SetDefault("BINDINGS_FILE", "")
	v.SetDefault("OUTBOX_ENABLED", false)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("OUTBOX_POLL_INTERVAL", defaultPollInterval)
	v.SetDefault("OUTBOX_BATCH_SIZE", defaultBatchSize)
	v.SetDefault("OUTBOX_TIMEOUT", defaultOutboxTimeout)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", defaultMaxAttempts)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
}

// GetPort returns the HTTP port
func (c *Config) GetPort() string {
	if c.Port == "" {
		return defaultPort
	}
	return c.Port
}

// GetWebhookPath returns the inbound webhook path, always starting with a slash
func (c *Config) GetWebhookPath() string {
	if c.WebhookPath == "" {
		return defaultWebhookPath
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return "/" + c.WebhookPath
	}
	return c.WebhookPath
}

// GetTolerance returns the signature timestamp tolerance
func (c *Config) GetTolerance() time.Duration {
	if c.WebhookTolerance <= 0 {
		return defaultTolerance
	}
	return c.WebhookTolerance
}

// GetMaxBodyBytes returns the request body limit
func (c *Config) GetMaxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

// GetDispatchTimeout returns the bus publish timeout
func (c *Config) GetDispatchTimeout() time.Duration {
	if c.DispatchTimeout <= 0 {
		return defaultDispatchTimeout
	}
	return c.DispatchTimeout
}

// GetBusDriver returns the lower-cased bus driver
func (c *Config) GetBusDriver() string {
	if c.BusDriver == "" {
		return DriverRedis
	}
	return strings.ToLower(c.BusDriver)
}

// GetRabbitMQExchange returns the RabbitMQ exchange name
func (c *Config) GetRabbitMQExchange() string {
	if c.RabbitMQExchange == "" {
		return defaultRabbitMQExchange
	}
	return c.RabbitMQExchange
}

// GetOutboxPollInterval returns the relay polling interval
func (c *Config) GetOutboxPollInterval() time.Duration {
	if c.OutboxPollInterval <= 0 {
		return defaultPollInterval
	}
	return c.OutboxPollInterval
}

// GetOutboxBatchSize returns how many entries the relay reads per cycle
func (c *Config) GetOutboxBatchSize() int {
	if c.OutboxBatchSize <= 0 {
		return defaultBatchSize
	}
	return c.OutboxBatchSize
}

// GetOutboxTimeout bounds parking a message during a request
func (c *Config) GetOutboxTimeout() time.Duration {
	if c.OutboxTimeout <= 0 {
		return defaultOutboxTimeout
	}
	return c.OutboxTimeout
}

// GetOutboxMaxAttempts returns after how many publish attempts an entry is marked failed
func (c *Config) GetOutboxMaxAttempts() int {
	if c.OutboxMaxAttempts <= 0 {
		return defaultMaxAttempts
	}
	return c.OutboxMaxAttempts
}

// GetShutdownTimeout returns the graceful shutdown deadline
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return defaultShutdownTimeout
	}
	return c.ShutdownTimeout
}

// HasSecret reports whether an endpoint secret is configured
// Without one every delivery is rejected
func (c *Config) HasSecret() bool {
	return strings.TrimSpace(c.StripeEndpointSecret) != ""
}

// Validate checks settings the selected driver and features depend on
func (c *Config) Validate() error {
	switch c.GetBusDriver() {
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis driver")
		}
	case DriverKafka:
		if strings.TrimSpace(c.KafkaBrokers) == "" {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka driver")
		}
	case DriverRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for the rabbitmq driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown BUS_DRIVER %q (expected redis, kafka, rabbitmq or memory)", c.BusDriver)
	}

	if c.OutboxEnabled && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required when OUTBOX_ENABLED is true")
	}

	return nil
}
