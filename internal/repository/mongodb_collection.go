package repository

import (
	"context"

	"capsule-machine/internal/model"
	"capsule-machine/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongodbCollectionRepository implements CollectionRepository using MongoDB
type mongodbCollectionRepository struct {
	collection *mongo.Collection
}

// NewCollectionRepository creates a new MongoDB-based draw log repository
func NewCollectionRepository(db *mongo.Database) CollectionRepository {
	return &mongodbCollectionRepository{
		collection: db.Collection(database.CollectionsCollection),
	}
}

// AppendRecord appends one draw event
func (r *mongodbCollectionRepository) AppendRecord(ctx context.Context, record *model.CollectionRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

// HasRecord reports whether any prior record exists for the pair
func (r *mongodbCollectionRepository) HasRecord(ctx context.Context, participantID, entryID string) (bool, error) {
	err := r.collection.FindOne(ctx, bson.M{
		"participant_id": participantID,
		"entry_id":       entryID,
	}).Err()

	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// Groups derives the per-entry owned counts and obtain times from the
// append-only log, most recently obtained first
func (r *mongodbCollectionRepository) Groups(ctx context.Context, participantID string) ([]model.CollectionGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participant_id": participantID}}},
		{{Key: "$group", Value: bson.M{
			"_id":               "$entry_id",
			"owned_count":       bson.M{"$sum": 1},
			"first_obtained_at": bson.M{"$min": "$obtained_at"},
			"last_obtained_at":  bson.M{"$max": "$obtained_at"},
		}}},
		{{Key: "$sort", Value: bson.M{"last_obtained_at": -1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var groups []model.CollectionGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
