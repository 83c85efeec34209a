package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	restauranterrors "dinebot/internal/restaurants/errors"
	"dinebot/pkg/config"
	"dinebot/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	FieldBusinessID  = "business_id"
	FieldCuisineType = "cuisine_type"
)

type MongoRestaurantRepository struct {
	collection  *mongo.Collection
	readTimeout time.Duration
}

// NewMongoRestaurantRepository serves both lookups by business id and, for
// deployments without Elasticsearch, cuisine search on the same collection.
func NewMongoRestaurantRepository(cfg *config.Config) *MongoRestaurantRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &MongoRestaurantRepository{
		collection:  db.Collection(cfg.RestaurantsCollection),
		readTimeout: cfg.ReadTimeout,
	}
}

func (r *MongoRestaurantRepository) FindByBusinessID(ctx context.Context, businessID string) (*model.Restaurant, error) {
	if businessID == "" {
		return nil, restauranterrors.ErrEmptyBusinessID
	}

	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	var restaurant model.Restaurant
	err := r.collection.FindOne(ctx, bson.M{FieldBusinessID: businessID}).Decode(&restaurant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", restauranterrors.ErrNotFound, businessID)
		}
		return nil, fmt.Errorf("failed to find restaurant %s: %w", businessID, err)
	}
	return &restaurant, nil
}

// SearchByCuisine counts the matches first and then lists exactly that many,
// so a collection growing during the read cannot make the listing unbounded.
func (r *MongoRestaurantRepository) SearchByCuisine(ctx context.Context, cuisine string) ([]string, error) {
	if cuisine == "" {
		return nil, restauranterrors.ErrEmptyCuisine
	}

	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	filter := bson.M{FieldCuisineType: cuisine}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: count by cuisine %q: %v", restauranterrors.ErrSearchFailed, cuisine, err)
	}
	if count == 0 {
		return []string{}, nil
	}

	ids, err := r.findBusinessIDs(ctx, filter, count)
	if err != nil {
		return nil, fmt.Errorf("%w: find by cuisine %q: %v", restauranterrors.ErrSearchFailed, cuisine, err)
	}
	return ids, nil
}

func (r *MongoRestaurantRepository) findBusinessIDs(ctx context.Context, filter bson.M, limit int64) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{FieldBusinessID: 1, "_id": 0}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		BusinessID string `bson:"business_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.BusinessID != "" {
			ids = append(ids, row.BusinessID)
		}
	}
	return ids, nil
}
