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

// mongodbCodeRepository implements CodeRepository using MongoDB
type mongodbCodeRepository struct {
	collection *mongo.Collection
}

// NewCodeRepository creates a new MongoDB-based redemption code repository
func NewCodeRepository(db *mongo.Database) CodeRepository {
	return &mongodbCodeRepository{
		collection: db.Collection(database.CodesCollection),
	}
}

// GetCode retrieves a code by its normalized text
func (r *mongodbCodeRepository) GetCode(ctx context.Context, code string) (*model.RedemptionCode, error) {
	var rc model.RedemptionCode
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&rc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrInvalidCode
		}
		return nil, err
	}
	return &rc, nil
}

// ClaimCode flips used=false to used=true exactly once. The used=false
// filter makes the claim a single conditional update: of any number of
// concurrent claims, only one matches the document.
func (r *mongodbCodeRepository) ClaimCode(ctx context.Context, code, participantID string, at time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"code": code, "used": false},
		bson.M{"$set": bson.M{
			"used":    true,
			"used_by": participantID,
			"used_at": at,
		}},
	)
	if err != nil {
		return err
	}
	if result.ModifiedCount == 0 {
		return apperrors.ErrCodeAlreadyUsed
	}
	return nil
}

// InsertCode creates a new code
func (r *mongodbCodeRepository) InsertCode(ctx context.Context, code *model.RedemptionCode) error {
	_, err := r.collection.InsertOne(ctx, code)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrCodeExists
		}
		return err
	}
	return nil
}

// ResetCode re-arms an existing code to unused (operator reissue)
func (r *mongodbCodeRepository) ResetCode(ctx context.Context, code string, creditValue int, expiresAt *time.Time) error {
	set := bson.M{
		"used":         false,
		"credit_value": creditValue,
	}
	unset := bson.M{
		"used_by": "",
		"used_at": "",
	}
	if expiresAt != nil {
		set["expires_at"] = *expiresAt
	} else {
		unset["expires_at"] = ""
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"code": code},
		bson.M{"$set": set, "$unset": unset},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrInvalidCode
	}
	return nil
}

// ListCodes returns all codes, unused first, newest first
func (r *mongodbCodeRepository) ListCodes(ctx context.Context) ([]*model.RedemptionCode, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{
			{Key: "used", Value: 1},
			{Key: "created_at", Value: -1},
		}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var codes []*model.RedemptionCode
	if err := cursor.All(ctx, &codes); err != nil {
		return nil, err
	}
	return codes, nil
}
