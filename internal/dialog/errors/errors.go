package errors

import "errors"

var (
	ErrUnsupportedIntent = errors.New("intent not supported")

	ErrInvalidInvocationSource = errors.New("invalid invocation source")

	ErrEnqueue = errors.New("failed to enqueue dining request")
)
