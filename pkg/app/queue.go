package app

import (
	"context"
	"errors"
	"fmt"

	"dinebot/pkg/config"
	"dinebot/pkg/kafka"
	kafka_middleware "dinebot/pkg/kafka/middleware"
	"dinebot/pkg/queue"
)

var errRedisNotConnected = errors.New("redis client is not connected")

// NewQueuePublisher builds the enqueue side of the configured backend. The
// returned close func releases the backend's resources.
func NewQueuePublisher(cfg *config.Config, source string, metrics *kafka_middleware.Metrics) (queue.Publisher, func(), error) {
	switch cfg.QueueBackend {
	case config.QueueBackendRedis:
		if cfg.Client.Redis == nil {
			return nil, nil, errRedisNotConnected
		}
		return queue.NewRedisQueue(cfg.Client.Redis, cfg.RedisQueueName, cfg.QueueVisibilityTimeout), func() {}, nil

	case config.QueueBackendKafka:
		producer, err := newProducer(cfg, metrics)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}
		return queue.NewKafkaPublisher(producer, source), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unsupported queue backend: %s", cfg.QueueBackend)
}

// NewQueueReceiver builds the receive side of the configured backend. Call it
// once per polling loop.
func NewQueueReceiver(cfg *config.Config, metrics *kafka_middleware.Metrics) (queue.Receiver, func(), error) {
	switch cfg.QueueBackend {
	case config.QueueBackendRedis:
		if cfg.Client.Redis == nil {
			return nil, nil, errRedisNotConnected
		}
		return queue.NewRedisQueue(cfg.Client.Redis, cfg.RedisQueueName, cfg.QueueVisibilityTimeout), func() {}, nil

	case config.QueueBackendKafka:
		receiver, err := kafka.NewReceiver(cfg.Kafka, cfg.Kafka.RequestsTopic, cfg.Kafka.ConsumerGroup, cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Kafka.EnableMiddleware {
			receiver.Use(kafka_middleware.LoggingReceiverMiddleware(cfg.Log))
			receiver.Use(kafka_middleware.MetricsReceiverMiddleware(metrics))
		}

		producer, err := newProducer(cfg, metrics)
		if err != nil {
			_ = receiver.Close()
			return nil, nil, err
		}

		closeFn := func() {
			if err := receiver.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka receiver", "error", err)
			}
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}
		return queue.NewKafkaReceiver(receiver, producer, cfg.QueueVisibilityTimeout), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unsupported queue backend: %s", cfg.QueueBackend)
}

// QueueCheck reports whether the configured queue backend is reachable.
func QueueCheck(cfg *config.Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		switch cfg.QueueBackend {
		case config.QueueBackendRedis:
			if cfg.Client.Redis == nil {
				return errRedisNotConnected
			}
			return cfg.Client.Redis.Ping(ctx).Err()
		case config.QueueBackendKafka:
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}
		return fmt.Errorf("unsupported queue backend: %s", cfg.QueueBackend)
	}
}

func newProducer(cfg *config.Config, metrics *kafka_middleware.Metrics) (*kafka.Producer, error) {
	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.RequestsTopic, cfg.Log)
	if err != nil {
		return nil, err
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware(metrics))
	}
	return producer, nil
}
