package kafka_middleware

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"dinebot/pkg/kafka"
)

type Metrics struct {
	MessagesPublished       atomic.Int64
	MessagesPublishedFailed atomic.Int64
	PublishDurationTotal    atomic.Int64 // nanoseconds

	MessagesFetched     atomic.Int64
	MessagesFetchFailed atomic.Int64
}

// Snapshot is a point-in-time copy of Metrics, suitable for JSON.
type Snapshot struct {
	MessagesPublished       int64  `json:"messages_published"`
	MessagesPublishedFailed int64  `json:"messages_published_failed"`
	AvgPublishDuration      string `json:"avg_publish_duration"`
	MessagesFetched         int64  `json:"messages_fetched"`
	MessagesFetchFailed     int64  `json:"messages_fetch_failed"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) AvgPublishDuration() time.Duration {
	published := m.MessagesPublished.Load() + m.MessagesPublishedFailed.Load()
	if published == 0 {
		return 0
	}
	return time.Duration(m.PublishDurationTotal.Load() / published)
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		MessagesPublished:       m.MessagesPublished.Load(),
		MessagesPublishedFailed: m.MessagesPublishedFailed.Load(),
		AvgPublishDuration:      m.AvgPublishDuration().String(),
		MessagesFetched:         m.MessagesFetched.Load(),
		MessagesFetchFailed:     m.MessagesFetchFailed.Load(),
	}
}

func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.PublishFunc) error {
		start := time.Now()

		err := next(ctx, msg)

		m.PublishDurationTotal.Add(int64(time.Since(start)))
		if err != nil {
			m.MessagesPublishedFailed.Add(1)
		} else {
			m.MessagesPublished.Add(1)
		}
		return err
	}
}

func MetricsReceiverMiddleware(m *Metrics) kafka.ReceiverMiddleware {
	return func(ctx context.Context, next kafka.FetchFunc) (kafka.Message, error) {
		msg, err := next(ctx)
		switch {
		case err == nil:
			m.MessagesFetched.Add(1)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		default:
			m.MessagesFetchFailed.Add(1)
		}
		return msg, err
	}
}
