package bus

import (
	"fmt"

	"github.com/marcelsud/payment-webhooks/config"
	"github.com/marcelsud/payment-webhooks/metrics"
	"github.com/marcelsud/payment-webhooks/webhook"
	"github.com/marcelsud/payment-webhooks/webhook/kafka"
	"github.com/marcelsud/payment-webhooks/webhook/memory"
	"github.com/marcelsud/payment-webhooks/webhook/rabbitmq"
	"github.com/marcelsud/payment-webhooks/webhook/redis"
)

// Open connects to the bus selected by BUS_DRIVER
// The second value is non-nil when the bus can report stream lengths
func Open(cfg *config.Config) (webhook.Publisher, metrics.StreamLengther, error) {
	switch cfg.GetBusDriver() {
	case config.DriverRedis:
		pub, err := redis.NewPublisher(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisStreamMaxLen)
		if err != nil {
			return nil, nil, err
		}
		return pub, pub, nil
	case config.DriverKafka:
		pub, err := kafka.NewPublisher(kafka.ParseBrokers(cfg.KafkaBrokers))
		if err != nil {
			return nil, nil, err
		}
		return pub, nil, nil
	case config.DriverRabbitMQ:
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.GetRabbitMQExchange())
		if err != nil {
			return nil, nil, err
		}
		return pub, nil, nil
	case config.DriverMemory:
		return memory.NewPublisher(nil, false), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown bus driver: %s", cfg.BusDriver)
	}
}
