package repository

import (
	"context"
	"time"

	"dinebot/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// RestaurantStore looks up full restaurant records by business id.
type RestaurantStore interface {
	FindByBusinessID(ctx context.Context, businessID string) (*model.Restaurant, error)
}

// SearchIndex returns the business ids of every restaurant whose cuisine
// matches. The cuisine is the canonical lower-case tag.
type SearchIndex interface {
	SearchByCuisine(ctx context.Context, cuisine string) ([]string, error)
}

// withTimeout bounds ctx by timeout, keeping an earlier deadline if ctx
// already has one.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
