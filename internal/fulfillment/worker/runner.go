package worker

import (
	"context"
	"time"

	"dinebot/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Runner polls with a fixed set of workers, one loop per worker.
type Runner struct {
	workers  []*Worker
	interval time.Duration
	log      *logger.Logger
}

func NewRunner(workers []*Worker, interval time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		workers:  workers,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is canceled. A loop sleeps for the poll interval after
// any pass that did not deliver. Failed passes are logged and the loop keeps
// going. Cancellation is checked between passes.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, w := range r.workers {
		log := r.log.With("loop", i)
		g.Go(func() error {
			r.loop(ctx, w, log)
			return nil
		})
	}
	r.log.Info("Fulfillment loops started", "count", len(r.workers), "poll_interval", r.interval)
	err := g.Wait()
	r.log.Info("Fulfillment loops stopped")
	return err
}

func (r *Runner) loop(ctx context.Context, w *Worker, log *logger.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		result, err := w.RunOnce(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Error("Fulfillment pass failed", "message_id", result.MessageID, "error", err)
		case result.Outcome == OutcomeIdle:
			log.Debug("No dining requests waiting")
		default:
			log.Info("Fulfillment pass finished", "outcome", result.Outcome, "message_id", result.MessageID)
		}

		if err == nil && result.Outcome == OutcomeDelivered {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}
	}
}
