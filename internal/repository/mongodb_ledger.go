package repository

import (
	"context"
	"time"

	"capsule-machine/internal/model"
	"capsule-machine/pkg/database"
	apperrors "capsule-machine/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongodbLedgerRepository implements LedgerRepository using MongoDB
type mongodbLedgerRepository struct {
	collection *mongo.Collection
}

// NewLedgerRepository creates a new MongoDB-based participant ledger
func NewLedgerRepository(db *mongo.Database) LedgerRepository {
	return &mongodbLedgerRepository{
		collection: db.Collection(database.ParticipantsCollection),
	}
}

// GetBalance returns the balance, upserting the participant with zero
// credits on first reference
func (r *mongodbLedgerRepository) GetBalance(ctx context.Context, participantID string) (int, error) {
	result := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"participant_id": participantID},
		bson.M{"$setOnInsert": bson.M{"credits": 0, "updated_at": time.Now()}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return 0, result.Err()
	}

	var participant model.Participant
	if err := result.Decode(&participant); err != nil {
		return 0, err
	}
	return participant.Credits, nil
}

// TryDebit atomically decrements the balance only when it covers amount.
// The $gte guard makes the check-and-write a single conditional update, so
// concurrent debits for one participant serialize in the store.
func (r *mongodbLedgerRepository) TryDebit(ctx context.Context, participantID string, amount int) (int, error) {
	result := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{
			"participant_id": participantID,
			"credits":        bson.M{"$gte": amount}, // Only update if balance >= amount
		},
		bson.M{
			"$inc": bson.M{"credits": -amount}, // Atomic decrement
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetUpsert(false),
	)
	if result.Err() != nil {
		if result.Err() == mongo.ErrNoDocuments {
			return 0, apperrors.ErrInsufficientCredits
		}
		return 0, result.Err()
	}

	var participant model.Participant
	if err := result.Decode(&participant); err != nil {
		return 0, err
	}
	return participant.Credits, nil
}

// Credit atomically increments the balance, creating the participant if
// needed
func (r *mongodbLedgerRepository) Credit(ctx context.Context, participantID string, amount int) (int, error) {
	result := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"participant_id": participantID},
		bson.M{
			"$inc": bson.M{"credits": amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	)
	if result.Err() != nil {
		return 0, result.Err()
	}

	var participant model.Participant
	if err := result.Decode(&participant); err != nil {
		return 0, err
	}
	return participant.Credits, nil
}
