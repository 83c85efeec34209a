package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dinebot/internal/migrations/mongo/validators"
	"dinebot/internal/restaurants/repository"
	"dinebot/pkg/logger"
)

var RestaurantIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: repository.FieldBusinessID, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("business_id_unique"),
	},
	{
		Keys:    bson.D{{Key: repository.FieldCuisineType, Value: 1}},
		Options: options.Index().SetName("cuisine_type"),
	},
}

type CollectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections maps each collection name to its schema validator and indexes.
func Collections(restaurantsCollection string) map[string]CollectionDef {
	return map[string]CollectionDef{
		restaurantsCollection: {
			Indexes:   RestaurantIndexes,
			Validator: validators.RestaurantValidator,
		},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, restaurantsCollection string, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range Collections(restaurantsCollection) {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
