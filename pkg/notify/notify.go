// Package notify delivers text messages to phone numbers.
package notify

import (
	"context"
	"errors"
)

var ErrInvalidDestination = errors.New("invalid destination phone number")

type Notifier interface {
	// Send delivers text to an E.164 phone number. A nil error means the
	// provider accepted the message.
	Send(ctx context.Context, to, text string) error
}
