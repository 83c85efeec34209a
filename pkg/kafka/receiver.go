package kafka

import (
	"context"
	"fmt"
	"sync"

	kafka_config "dinebot/pkg/kafka/config"
	"dinebot/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// Receiver pulls messages one at a time from a consumer group. Offsets are
// committed only through Commit, never automatically.
type Receiver struct {
	reader     *kafka.Reader
	topic      string
	groupID    string
	middleware []ReceiverMiddleware
	closed     bool
	mu         sync.RWMutex
}

type FetchFunc func(ctx context.Context) (Message, error)

type ReceiverMiddleware func(ctx context.Context, next FetchFunc) (Message, error)

func NewReceiver(cfg *kafka_config.Config, topic, groupID string, log *logger.Logger) (*Receiver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           groupID,
		MinBytes:          cfg.ConsumerMinBytes,
		MaxBytes:          cfg.ConsumerMaxBytes,
		MaxWait:           cfg.ConsumerMaxWait,
		HeartbeatInterval: cfg.ConsumerHeartbeatInterval,
		SessionTimeout:    cfg.ConsumerSessionTimeout,
		RebalanceTimeout:  cfg.ConsumerRebalanceTimeout,
		StartOffset:       cfg.ConsumerStartOffset,
		Logger:            kafka.LoggerFunc(log.Printf),
		ErrorLogger:       kafka.LoggerFunc(log.Errorf),
	})

	return &Receiver{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		middleware: make([]ReceiverMiddleware, 0),
	}, nil
}

func (r *Receiver) Use(middleware ReceiverMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware)
}

// Fetch blocks until a message is available or ctx is done.
func (r *Receiver) Fetch(ctx context.Context) (Message, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return Message{}, ErrReceiverClosed
	}
	middleware := r.middleware
	r.mu.RUnlock()

	fetch := r.fetchInternal
	for i := len(middleware) - 1; i >= 0; i-- {
		mw := middleware[i]
		next := fetch
		fetch = func(ctx context.Context) (Message, error) {
			return mw(ctx, next)
		}
	}

	return fetch(ctx)
}

func (r *Receiver) fetchInternal(ctx context.Context) (Message, error) {
	kafkaMsg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return Message{}, err
	}
	return fromKafka(kafkaMsg), nil
}

// Commit marks msg and every earlier message of its partition as consumed.
func (r *Receiver) Commit(ctx context.Context, msg Message) error {
	err := r.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
	if err != nil {
		return Wrap("commit offset", err)
	}
	return nil
}

func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.reader.Close()
}
