package database

import (
	"context"
	"time"

	"safewatch/models"
	"safewatch/repositories"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Seeder struct {
	Name string
	Seed func(context.Context, *mongo.Database) error
}

var seeders = []Seeder{
	{Name: "demo_zones", Seed: seedDemoZones},
	{Name: "demo_profile", Seed: seedDemoProfile},
}

// RunSeeders loads development fixtures once per database.
func RunSeeders(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedersCol := db.Collection("seeders")

	for _, seeder := range seeders {
		count, err := seedersCol.CountDocuments(ctx, bson.M{"name": seeder.Name})
		if err == nil && count > 0 {
			continue
		}

		logrus.Infof("🌱 Running seeder: %s", seeder.Name)
		if err := seeder.Seed(ctx, db); err != nil {
			logrus.Errorf("❌ Seeder %s failed: %v", seeder.Name, err)
			continue
		}

		if _, err := seedersCol.InsertOne(ctx, bson.M{"name": seeder.Name, "createdAt": time.Now()}); err != nil {
			logrus.Warnf("Failed to record seeder %s: %v", seeder.Name, err)
		}
	}

	return nil
}

// zoneWriter is the write side of the zone repository.
type zoneWriter interface {
	Upsert(ctx context.Context, zone models.SafetyZone) error
}

func seedDemoZones(ctx context.Context, db *mongo.Database) error {
	return upsertZones(ctx, repositories.NewZoneRepository(db), demoZones())
}

func upsertZones(ctx context.Context, repo zoneWriter, zones []models.SafetyZone) error {
	for _, zone := range zones {
		if err := repo.Upsert(ctx, zone); err != nil {
			return err
		}
	}
	return nil
}

func demoZones() []models.SafetyZone {
	return []models.SafetyZone{
		{
			ID:          "demo-connaught-place",
			Name:        "Connaught Place",
			SafetyLevel: models.SafetyLevelSafe,
			Boundary: []models.Coordinate{
				{Latitude: 28.610, Longitude: 77.205},
				{Latitude: 28.610, Longitude: 77.213},
				{Latitude: 28.618, Longitude: 77.213},
				{Latitude: 28.618, Longitude: 77.205},
			},
		},
		{
			ID:          "demo-old-market",
			Name:        "Old Market Lanes",
			SafetyLevel: models.SafetyLevelCaution,
			Description: "Crowded after dark",
			Boundary: []models.Coordinate{
				{Latitude: 28.650, Longitude: 77.225},
				{Latitude: 28.650, Longitude: 77.235},
				{Latitude: 28.660, Longitude: 77.235},
				{Latitude: 28.660, Longitude: 77.225},
			},
		},
		{
			ID:          "demo-rail-yard",
			Name:        "Rail Yard",
			SafetyLevel: models.SafetyLevelRestricted,
			Boundary: []models.Coordinate{
				{Latitude: 28.640, Longitude: 77.200},
				{Latitude: 28.640, Longitude: 77.208},
				{Latitude: 28.646, Longitude: 77.204},
			},
		},
	}
}

func seedDemoProfile(ctx context.Context, db *mongo.Database) error {
	profile := models.UserProfile{
		ID:          "demo-user",
		FirstName:   "Demo",
		LastName:    "User",
		Phone:       "+15555550100",
		CircleTopic: "circle-demo",
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Alex", Phone: "+15555550101", Relationship: "sibling", Priority: 1},
		},
	}

	opts := options.Replace().SetUpsert(true)
	_, err := db.Collection("users").ReplaceOne(ctx, bson.M{"_id": profile.ID}, profile, opts)
	return err
}
