package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the engine's four stores.
const (
	ParticipantsCollection = "participants"
	CodesCollection        = "codes"
	CatalogCollection      = "catalog"
	CollectionsCollection  = "collections"
	WeightsCollection      = "category_weights"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect establishes a connection to MongoDB
func Connect(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(uri)

	// Set connection timeout
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)

	mongoDB := &MongoDB{
		Client:   client,
		Database: db,
	}

	// Create indexes
	if err := mongoDB.CreateIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return mongoDB, nil
}

// CreateIndexes creates all necessary indexes for the application
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	// Unique index on participants.participant_id: one ledger row per key
	participants := m.Database.Collection(ParticipantsCollection)
	participantIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "participant_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("participant_id_unique"),
	}
	if _, err := participants.Indexes().CreateOne(ctx, participantIndex); err != nil {
		return fmt.Errorf("failed to create participant index: %w", err)
	}

	// Unique index on codes.code: the single-use claim races on this row
	codes := m.Database.Collection(CodesCollection)
	codeIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("code_unique"),
	}
	if _, err := codes.Indexes().CreateOne(ctx, codeIndex); err != nil {
		return fmt.Errorf("failed to create code index: %w", err)
	}

	// Unique index on catalog.entry_id plus a secondary category index for
	// the per-tier listing the selector reads
	catalog := m.Database.Collection(CatalogCollection)
	entryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "entry_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("entry_id_unique"),
	}
	if _, err := catalog.Indexes().CreateOne(ctx, entryIndex); err != nil {
		return fmt.Errorf("failed to create entry index: %w", err)
	}
	categoryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "category", Value: 1}},
		Options: options.Index().SetName("category_index"),
	}
	if _, err := catalog.Indexes().CreateOne(ctx, categoryIndex); err != nil {
		return fmt.Errorf("failed to create category index: %w", err)
	}

	// Compound grouping index on the append-only collection log. NOT
	// unique: duplicate draws append rows and counts are derived at query
	// time.
	records := m.Database.Collection(CollectionsCollection)
	groupingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "participant_id", Value: 1},
			{Key: "entry_id", Value: 1},
		},
		Options: options.Index().SetName("participant_entry_index"),
	}
	if _, err := records.Indexes().CreateOne(ctx, groupingIndex); err != nil {
		return fmt.Errorf("failed to create collection grouping index: %w", err)
	}

	return nil
}

// Disconnect closes the MongoDB connection
func (m *MongoDB) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
