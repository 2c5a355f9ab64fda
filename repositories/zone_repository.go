package repositories

import (
	"context"
	"time"

	"safewatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ZoneRepository is the network zone source, backed by the safety_zones
// collection.
type ZoneRepository struct {
	collection *mongo.Collection
}

func NewZoneRepository(db *mongo.Database) *ZoneRepository {
	return &ZoneRepository{
		collection: db.Collection("safety_zones"),
	}
}

func (zr *ZoneRepository) FetchZones(ctx context.Context) ([]models.SafetyZone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := zr.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []models.SafetyZone
	err = cursor.All(ctx, &zones)
	return zones, err
}

// Upsert writes a zone by ID. Only seeding writes zones; the service reads
// them.
func (zr *ZoneRepository) Upsert(ctx context.Context, zone models.SafetyZone) error {
	zone.UpdatedAt = time.Now()
	opts := options.Replace().SetUpsert(true)
	_, err := zr.collection.ReplaceOne(ctx, bson.M{"_id": zone.ID}, zone, opts)
	return err
}
