package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dinebot/pkg/kafka"
	"dinebot/pkg/model"

	"github.com/google/uuid"
)

const (
	EventTypeDiningRequest = "dining.request.created"
	SchemaVersion          = "1"
)

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type messageFetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// KafkaPublisher enqueues requests as kafka messages. The request fields are
// carried as headers named after the queue attributes; the value holds the
// same request as JSON.
type KafkaPublisher struct {
	producer messagePublisher
	source   string
}

func NewKafkaPublisher(producer messagePublisher, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, source: source}
}

func (p *KafkaPublisher) Enqueue(ctx context.Context, req *model.BookingRequest) error {
	msg, err := kafka.NewMessage().
		WithEventID("").
		WithEventType(EventTypeDiningRequest).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithHeaders(req.Attributes()).
		WithValue(req).
		Build()
	if err != nil {
		return err
	}

	return p.producer.Publish(ctx, msg)
}

// KafkaReceiver gives kafka consumer-group reads a visibility window. It holds
// at most one delivery in flight: offsets are committed in order, so the next
// message is fetched only after the current one is acknowledged or its window
// expires. An expired delivery is re-published to the topic with an
// incremented retry count and its offset committed.
//
// A KafkaReceiver serves a single polling loop; run one per worker.
type KafkaReceiver struct {
	fetcher    messageFetcher
	producer   messagePublisher
	visibility time.Duration
	now        func() time.Time

	mu       sync.Mutex
	inflight *kafkaInflight
}

type kafkaInflight struct {
	msg      kafka.Message
	receipt  string
	deadline time.Time
}

func NewKafkaReceiver(fetcher messageFetcher, producer messagePublisher, visibility time.Duration) *KafkaReceiver {
	return &KafkaReceiver{
		fetcher:    fetcher,
		producer:   producer,
		visibility: visibility,
		now:        time.Now,
	}
}

func (r *KafkaReceiver) ReceiveOne(ctx context.Context, wait time.Duration) (*Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight != nil {
		if r.now().Before(r.inflight.deadline) {
			return nil, ErrNoMessage
		}
		if err := r.redeliver(ctx); err != nil {
			return nil, err
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msg, err := r.fetcher.Fetch(fetchCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("fetch request message: %w", err)
	}

	receipt := uuid.NewString()
	r.inflight = &kafkaInflight{
		msg:      msg,
		receipt:  receipt,
		deadline: r.now().Add(r.visibility),
	}

	return &Delivery{
		MessageID:    msg.GetEventID(),
		Token:        receipt,
		Attributes:   attributesFromHeaders(msg.Headers),
		ReceiveCount: msg.GetRetryCount() + 1,
	}, nil
}

// redeliver puts the expired in-flight message back at the tail of the topic
// and commits past it. Publishing comes first, so a crash in between yields a
// duplicate rather than a loss.
func (r *KafkaReceiver) redeliver(ctx context.Context) error {
	expired := r.inflight.msg

	headers := make(map[string]string, len(expired.Headers)+1)
	for k, v := range expired.Headers {
		headers[k] = v
	}
	retry := kafka.Message{
		Key:       expired.Key,
		Value:     expired.Value,
		Headers:   headers,
		Timestamp: r.now(),
	}
	retry.IncrementRetryCount()
	retry.Headers[kafka.HeaderOriginalTopic] = expired.Topic

	if err := r.producer.Publish(ctx, retry); err != nil {
		return fmt.Errorf("redeliver expired message %s: %w", expired.GetEventID(), err)
	}
	r.inflight = nil

	if err := r.fetcher.Commit(ctx, expired); err != nil {
		return fmt.Errorf("commit redelivered message %s: %w", expired.GetEventID(), err)
	}
	return nil
}

func (r *KafkaReceiver) Acknowledge(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inflight == nil || token == "" || r.inflight.receipt != token {
		return ErrUnknownToken
	}
	if err := r.fetcher.Commit(ctx, r.inflight.msg); err != nil {
		return err
	}
	r.inflight = nil
	return nil
}

func attributesFromHeaders(headers map[string]string) map[string]string {
	attrs := make(map[string]string, len(model.BookingRequestAttributes))
	for _, name := range model.BookingRequestAttributes {
		if v, ok := headers[name]; ok {
			attrs[name] = v
		}
	}
	return attrs
}
