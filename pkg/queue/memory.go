package queue

import (
	"context"
	"sync"
	"time"

	"dinebot/pkg/model"

	"github.com/google/uuid"
)

type memoryMessage struct {
	id           string
	attrs        map[string]string
	receipt      string
	visibleAt    time.Time
	receiveCount int
}

// MemoryQueue keeps messages in process memory. It implements both
// Publisher and Receiver and is safe for concurrent use.
type MemoryQueue struct {
	mu         sync.Mutex
	messages   []*memoryMessage
	visibility time.Duration
	now        func() time.Time
	notify     chan struct{}
}

type MemoryOption func(*MemoryQueue)

// WithClock replaces time.Now, for tests that move past the visibility window.
func WithClock(now func() time.Time) MemoryOption {
	return func(q *MemoryQueue) {
		q.now = now
	}
}

func NewMemoryQueue(visibility time.Duration, opts ...MemoryOption) *MemoryQueue {
	q := &MemoryQueue{
		visibility: visibility,
		now:        time.Now,
		notify:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, req *model.BookingRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.messages = append(q.messages, &memoryMessage{
		id:    uuid.NewString(),
		attrs: req.Attributes(),
	})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) ReceiveOne(ctx context.Context, wait time.Duration) (*Delivery, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if d := q.tryReceive(); d != nil {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrNoMessage
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) tryReceive() *Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, m := range q.messages {
		if now.Before(m.visibleAt) {
			continue
		}
		m.receipt = uuid.NewString()
		m.visibleAt = now.Add(q.visibility)
		m.receiveCount++

		attrs := make(map[string]string, len(m.attrs))
		for k, v := range m.attrs {
			attrs[k] = v
		}
		return &Delivery{
			MessageID:    m.id,
			Token:        m.receipt,
			Attributes:   attrs,
			ReceiveCount: m.receiveCount,
		}
	}
	return nil
}

func (q *MemoryQueue) Acknowledge(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i, m := range q.messages {
		if token == "" || m.receipt != token {
			continue
		}
		q.messages = append(q.messages[:i], q.messages[i+1:]...)
		return nil
	}
	return ErrUnknownToken
}

// Len reports how many messages are stored, in flight or not.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}
