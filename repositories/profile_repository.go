package repositories

import (
	"context"
	"errors"

	"safewatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProfileRepository struct {
	collection *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{
		collection: db.Collection("users"),
	}
}

func (pr *ProfileRepository) GetCurrentUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := pr.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &profile, nil
}

// GetEmergencyContacts returns an empty list, not an error, for a user with
// no contacts configured.
func (pr *ProfileRepository) GetEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	opts := options.FindOne().SetProjection(bson.M{"emergencyContacts": 1})

	var profile models.UserProfile
	err := pr.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return []models.EmergencyContact{}, nil
		}
		return nil, err
	}

	if profile.EmergencyContacts == nil {
		return []models.EmergencyContact{}, nil
	}
	return profile.EmergencyContacts, nil
}
