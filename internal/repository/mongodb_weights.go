package repository

import (
	"context"

	"capsule-machine/internal/model"
	"capsule-machine/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongodbWeightRepository implements WeightRepository using MongoDB
type mongodbWeightRepository struct {
	collection *mongo.Collection
}

// NewWeightRepository creates a new MongoDB-based category weight repository
func NewWeightRepository(db *mongo.Database) WeightRepository {
	return &mongodbWeightRepository{
		collection: db.Collection(database.WeightsCollection),
	}
}

// GetWeights returns one row per declared category in declared order.
// Categories without a stored row report weight 0.
func (r *mongodbWeightRepository) GetWeights(ctx context.Context) ([]model.CategoryWeight, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stored := make(map[model.Category]int)
	for cursor.Next(ctx) {
		var row model.CategoryWeight
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		stored[row.Category] = row.Weight
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	weights := make([]model.CategoryWeight, 0, len(model.Categories))
	for _, category := range model.Categories {
		weights = append(weights, model.CategoryWeight{
			Category: category,
			Weight:   stored[category],
		})
	}
	return weights, nil
}

// SetWeights replaces the weights for the given categories
func (r *mongodbWeightRepository) SetWeights(ctx context.Context, weights map[model.Category]int) error {
	for category, weight := range weights {
		_, err := r.collection.UpdateOne(
			ctx,
			bson.M{"category": category},
			bson.M{"$set": bson.M{"weight": weight}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaults inserts default weights for categories with no row yet
func (r *mongodbWeightRepository) SeedDefaults(ctx context.Context) error {
	for category, weight := range model.DefaultCategoryWeights {
		_, err := r.collection.UpdateOne(
			ctx,
			bson.M{"category": category},
			bson.M{"$setOnInsert": bson.M{"weight": weight}},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return err
		}
	}
	return nil
}
