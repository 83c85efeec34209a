package notify

import (
	"context"
	"fmt"

	"dinebot/pkg/logger"
	"dinebot/pkg/sanitizer"
)

// LogNotifier writes messages to the log instead of sending them. It is the
// development backend.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, to, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := sanitizer.NormalizePhone(to, sanitizer.DefaultRegion)
	if dest == "" {
		return fmt.Errorf("%w: %q", ErrInvalidDestination, to)
	}
	n.log.Info("SMS (log only)", "to", dest, "body", text)
	return nil
}
