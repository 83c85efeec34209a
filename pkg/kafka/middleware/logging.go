package kafka_middleware

import (
	"context"
	"errors"
	"time"

	"dinebot/pkg/kafka"
	"dinebot/pkg/logger"
)

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()

		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration", time.Since(start),
		}
		if err != nil {
			log.Error("Failed to publish kafka message", append(attrs, "error", err, "error_type", kafka.ClassifyError(err).String())...)
			return err
		}
		log.Debug("Published kafka message", attrs...)
		return nil
	}
}

// LoggingReceiverMiddleware logs fetched messages. Fetches that end because
// the caller's context is done are not errors.
func LoggingReceiverMiddleware(log *logger.Logger) kafka.ReceiverMiddleware {
	return func(ctx context.Context, next kafka.FetchFunc) (kafka.Message, error) {
		msg, err := next(ctx)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				log.Error("Failed to fetch kafka message", "error", err)
			}
			return msg, err
		}

		log.Debug("Fetched kafka message",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"event_id", msg.GetEventID(),
			"retry_count", msg.GetRetryCount(),
		)
		return msg, nil
	}
}
