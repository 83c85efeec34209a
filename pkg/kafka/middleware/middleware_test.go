package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"dinebot/pkg/kafka"
	"dinebot/pkg/logger"
)

func TestMetricsProducerMiddleware(t *testing.T) {
	m := NewMetrics()
	mw := MetricsProducerMiddleware(m)
	ok := func(ctx context.Context, msg kafka.Message) error { return nil }
	fail := func(ctx context.Context, msg kafka.Message) error { return errors.New("broker down") }

	for range 3 {
		_ = mw(context.Background(), kafka.Message{}, ok)
	}
	if err := mw(context.Background(), kafka.Message{}, fail); err == nil {
		t.Fatal("expected error to pass through")
	}

	s := m.Snapshot()
	if s.MessagesPublished != 3 || s.MessagesPublishedFailed != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestMetricsReceiverMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantFetched int64
		wantFailed  int64
	}{
		{name: "fetched", wantFetched: 1},
		{name: "wait elapsed", err: context.DeadlineExceeded},
		{name: "canceled", err: context.Canceled},
		{name: "broker error", err: errors.New("connection reset"), wantFailed: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			next := func(ctx context.Context) (kafka.Message, error) { return kafka.Message{}, tt.err }

			_, err := MetricsReceiverMiddleware(m)(context.Background(), next)
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if m.MessagesFetched.Load() != tt.wantFetched || m.MessagesFetchFailed.Load() != tt.wantFailed {
				t.Errorf("fetched=%d failed=%d", m.MessagesFetched.Load(), m.MessagesFetchFailed.Load())
			}
		})
	}
}

func TestAvgPublishDuration_NoMessages(t *testing.T) {
	if d := NewMetrics().AvgPublishDuration(); d != 0 {
		t.Errorf("AvgPublishDuration() = %s, want 0", d)
	}
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	log := logger.Discard()
	want := kafka.Message{Key: "k"}

	got, err := LoggingReceiverMiddleware(log)(context.Background(), func(ctx context.Context) (kafka.Message, error) {
		return want, nil
	})
	if err != nil || got.Key != "k" {
		t.Errorf("got %+v, %v", got, err)
	}

	boom := errors.New("broker down")
	err = LoggingProducerMiddleware(log)(context.Background(), kafka.Message{Headers: map[string]string{}}, func(ctx context.Context, msg kafka.Message) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected publish error, got %v", err)
	}
}
