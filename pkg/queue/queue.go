// Package queue is the durable channel between the dialog service and the
// fulfillment worker. Delivery is at-least-once: a received message that is
// not acknowledged within the visibility window is delivered again.
package queue

import (
	"context"
	"errors"
	"time"

	"dinebot/pkg/model"
)

var (
	// ErrNoMessage means the wait elapsed with nothing to deliver.
	ErrNoMessage = errors.New("no message available")

	// ErrUnknownToken means the token no longer names a delivery: it was
	// already acknowledged, or the message was delivered again under a new
	// token after its visibility window expired.
	ErrUnknownToken = errors.New("unknown or expired receipt token")

	ErrMalformedMessage = errors.New("malformed queue message")
)

type Publisher interface {
	Enqueue(ctx context.Context, req *model.BookingRequest) error
}

type Receiver interface {
	ReceiveOne(ctx context.Context, wait time.Duration) (*Delivery, error)
	Acknowledge(ctx context.Context, token string) error
}

// Delivery is one received message. Attributes hold the request fields
// exactly as they were enqueued.
type Delivery struct {
	MessageID    string
	Token        string
	Attributes   map[string]string
	ReceiveCount int
}
