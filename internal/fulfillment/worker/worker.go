// Package worker turns queued dining requests into SMS suggestions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	fulfillmenterrors "dinebot/internal/fulfillment/errors"
	"dinebot/internal/restaurants/repository"
	"dinebot/pkg/logger"
	"dinebot/pkg/model"
	"dinebot/pkg/notify"
	"dinebot/pkg/queue"
	"dinebot/pkg/sanitizer"
)

// SuggestionCount is how many restaurants each request gets.
const SuggestionCount = 3

const defaultWaitTime = 5 * time.Second

type Outcome string

const (
	OutcomeIdle                 Outcome = "idle"
	OutcomeNotEnoughRestaurants Outcome = "not_enough_restaurants"
	OutcomeDelivered            Outcome = "delivered"
)

// Result describes one pass. Body is the text reported for the pass: the
// suggestions that were sent, or the reason nothing was sent.
type Result struct {
	Outcome   Outcome
	MessageID string
	Body      string
}

type Worker struct {
	receiver queue.Receiver
	index    repository.SearchIndex
	store    repository.RestaurantStore
	notifier notify.Notifier
	rng      *rand.Rand
	wait     time.Duration
	log      *logger.Logger
}

type Option func(*Worker)

// WithRand sets the source used to pick restaurants. A Worker is not safe for
// concurrent use, so each one needs its own source.
func WithRand(rng *rand.Rand) Option {
	return func(w *Worker) { w.rng = rng }
}

// WithWaitTime sets how long a pass waits for a message before reporting idle.
func WithWaitTime(wait time.Duration) Option {
	return func(w *Worker) { w.wait = wait }
}

func NewWorker(
	receiver queue.Receiver,
	index repository.SearchIndex,
	store repository.RestaurantStore,
	notifier notify.Notifier,
	log *logger.Logger,
	opts ...Option,
) *Worker {
	w := &Worker{
		receiver: receiver,
		index:    index,
		store:    store,
		notifier: notifier,
		wait:     defaultWaitTime,
		log:      log,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.rng == nil {
		w.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return w
}

// RunOnce handles at most one queued request. The request is acknowledged only
// after the suggestions were handed to the notifier; on every other path it
// stays on the queue and comes back after the visibility window.
func (w *Worker) RunOnce(ctx context.Context) (Result, error) {
	delivery, err := w.receiver.ReceiveOne(ctx, w.wait)
	if err != nil {
		if errors.Is(err, queue.ErrNoMessage) {
			return Result{Outcome: OutcomeIdle}, nil
		}
		return Result{}, fmt.Errorf("receive dining request: %w", err)
	}

	log := w.log.With("message_id", delivery.MessageID, "receive_count", delivery.ReceiveCount)

	req, err := model.BookingRequestFromAttributes(delivery.Attributes)
	if err != nil {
		log.Error("Malformed dining request", "error", err)
		return Result{MessageID: delivery.MessageID}, fmt.Errorf("%w: %w", fulfillmenterrors.ErrMalformedRequest, err)
	}

	cuisine := sanitizer.NormalizeTag(req.Cuisine)
	ids, err := w.index.SearchByCuisine(ctx, cuisine)
	if err != nil {
		log.Error("Restaurant search failed", "cuisine", cuisine, "error", err)
		return Result{MessageID: delivery.MessageID}, fmt.Errorf("%w: %w", fulfillmenterrors.ErrSearch, err)
	}

	if len(ids) < SuggestionCount {
		log.Warn("Not enough restaurants, leaving request on the queue",
			"cuisine", cuisine,
			"matches", len(ids),
		)
		return Result{
			Outcome:   OutcomeNotEnoughRestaurants,
			MessageID: delivery.MessageID,
			Body:      MsgNotEnoughRestaurants,
		}, nil
	}

	chosen := chooseDistinct(w.rng, ids, SuggestionCount)
	restaurants := make([]*model.Restaurant, 0, len(chosen))
	for _, id := range chosen {
		restaurant, err := w.store.FindByBusinessID(ctx, id)
		if err != nil {
			log.Error("Restaurant lookup failed", "business_id", id, "error", err)
			return Result{MessageID: delivery.MessageID}, fmt.Errorf("%w: %s: %w", fulfillmenterrors.ErrLookup, id, err)
		}
		restaurants = append(restaurants, restaurant)
	}

	body := composeSuggestions(req, restaurants)

	if err := w.notifier.Send(ctx, "+1"+req.PhoneNumber, body); err != nil {
		log.Error("Suggestion delivery failed", "error", err)
		return Result{MessageID: delivery.MessageID}, fmt.Errorf("%w: %w", fulfillmenterrors.ErrDelivery, err)
	}

	result := Result{
		Outcome:   OutcomeDelivered,
		MessageID: delivery.MessageID,
		Body:      body,
	}

	if err := w.receiver.Acknowledge(ctx, delivery.Token); err != nil {
		log.Error("Suggestions sent but request not acknowledged", "error", err)
		return result, fmt.Errorf("%w: %w", fulfillmenterrors.ErrAcknowledge, err)
	}

	log.Info("Suggestions delivered", "cuisine", cuisine, "business_ids", chosen)
	return result, nil
}
