package errors

import "errors"

var (
	ErrMalformedRequest = errors.New("malformed dining request")

	ErrSearch = errors.New("restaurant search failed")

	ErrLookup = errors.New("restaurant lookup failed")

	ErrDelivery = errors.New("suggestion delivery failed")

	// ErrAcknowledge means the suggestions were sent but the request could
	// not be removed from the queue, so it may be delivered again.
	ErrAcknowledge = errors.New("failed to acknowledge dining request")
)
