package repositories

import (
	"context"
	"time"

	"safewatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LocationRepository struct {
	collection *mongo.Collection
}

type locationDocument struct {
	UserID    string            `bson:"_id"`
	Location  models.Coordinate `bson:"location"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

func NewLocationRepository(db *mongo.Database) *LocationRepository {
	return &LocationRepository{
		collection: db.Collection("current_locations"),
	}
}

// SaveLocation keeps only the latest fix per user.
func (lr *LocationRepository) SaveLocation(ctx context.Context, userID string, location models.Coordinate) error {
	doc := locationDocument{
		UserID:    userID,
		Location:  location,
		UpdatedAt: time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := lr.collection.ReplaceOne(ctx, bson.M{"_id": userID}, doc, opts)
	return err
}

// GetCurrentLocation returns nil, nil when the user has never reported a fix.
func (lr *LocationRepository) GetCurrentLocation(ctx context.Context, userID string) (*models.Coordinate, error) {
	var doc locationDocument
	err := lr.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &doc.Location, nil
}
