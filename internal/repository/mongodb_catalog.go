package repository

import (
	"context"

	"capsule-machine/internal/model"
	"capsule-machine/pkg/database"
	apperrors "capsule-machine/pkg/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongodbCatalogRepository implements CatalogRepository using MongoDB
type mongodbCatalogRepository struct {
	collection *mongo.Collection
}

// NewCatalogRepository creates a new MongoDB-based catalog repository
func NewCatalogRepository(db *mongo.Database) CatalogRepository {
	return &mongodbCatalogRepository{
		collection: db.Collection(database.CatalogCollection),
	}
}

// UpsertEntry creates or replaces a catalog entry by id
func (r *mongodbCatalogRepository) UpsertEntry(ctx context.Context, entry *model.CatalogEntry) error {
	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"entry_id": entry.ID},
		entry,
		options.Replace().SetUpsert(true),
	)
	return err
}

// GetEntry retrieves an entry by id
func (r *mongodbCatalogRepository) GetEntry(ctx context.Context, id string) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	err := r.collection.FindOne(ctx, bson.M{"entry_id": id}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetEntries retrieves entries for the given ids, keyed by id
func (r *mongodbCatalogRepository) GetEntries(ctx context.Context, ids []string) (map[string]*model.CatalogEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"entry_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make(map[string]*model.CatalogEntry, len(ids))
	for cursor.Next(ctx) {
		var entry model.CatalogEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, err
		}
		entries[entry.ID] = &entry
	}
	return entries, cursor.Err()
}

// DeleteEntry removes an entry by id
func (r *mongodbCatalogRepository) DeleteEntry(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"entry_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.ErrEntryNotFound
	}
	return nil
}

// ListEntries returns the whole catalog ordered by creation time
func (r *mongodbCatalogRepository) ListEntries(ctx context.Context) ([]*model.CatalogEntry, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.CatalogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListEnabledByCategory returns the enabled entries of one category
func (r *mongodbCatalogRepository) ListEnabledByCategory(ctx context.Context, category model.Category) ([]*model.CatalogEntry, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"category": category,
		"enabled":  true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.CatalogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// LatestEnabledByCategory returns the newest enabled entry of a category
func (r *mongodbCatalogRepository) LatestEnabledByCategory(ctx context.Context, category model.Category) (*model.CatalogEntry, error) {
	var entry model.CatalogEntry
	err := r.collection.FindOne(
		ctx,
		bson.M{"category": category, "enabled": true},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}
