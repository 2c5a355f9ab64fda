package repositories

import (
	"context"
	"time"

	"safewatch/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AlertTaskRepository is the durable store behind the dispatch queue. Only
// pending and failed_permanent tasks are kept; delivered tasks are removed.
type AlertTaskRepository struct {
	collection *mongo.Collection
}

func NewAlertTaskRepository(db *mongo.Database) *AlertTaskRepository {
	return &AlertTaskRepository{
		collection: db.Collection("alert_tasks"),
	}
}

// Persist upserts the task by ID. in_flight is never written; it is stored as
// pending so a crash mid-delivery leads to a retry rather than a lost alert.
func (ar *AlertTaskRepository) Persist(ctx context.Context, task models.AlertTask) error {
	if task.Status == models.AlertStatusInFlight {
		task.Status = models.AlertStatusPending
	}
	task.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := ar.collection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task, opts)
	return err
}

func (ar *AlertTaskRepository) LoadPending(ctx context.Context) ([]models.AlertTask, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.AlertStatus{
			models.AlertStatusPending,
			models.AlertStatusInFlight,
			models.AlertStatusFailedPermanent,
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := ar.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []models.AlertTask
	err = cursor.All(ctx, &tasks)
	return tasks, err
}

func (ar *AlertTaskRepository) Remove(ctx context.Context, taskID string) error {
	_, err := ar.collection.DeleteOne(ctx, bson.M{"_id": taskID})
	return err
}

func (ar *AlertTaskRepository) CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error) {
	return ar.collection.CountDocuments(ctx, bson.M{"status": status})
}
