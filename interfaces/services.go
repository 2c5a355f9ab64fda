package interfaces

import (
	"context"
	"time"

	"safewatch/models"
)

// ZoneSource fetches the current safety zones from the network.
type ZoneSource interface {
	FetchZones(ctx context.Context) ([]models.SafetyZone, error)
}

// ZoneCache keeps the last good zone list for when the source is unreachable.
type ZoneCache interface {
	SaveZones(ctx context.Context, zones []models.SafetyZone, ttl time.Duration) error
	LoadZones(ctx context.Context) ([]models.SafetyZone, error)
}

// LocationSource yields the user's current location. It returns nil with no
// error when no fix is known yet.
type LocationSource interface {
	GetCurrentLocation(ctx context.Context, userID string) (*models.Coordinate, error)
}

type LocationStore interface {
	SaveLocation(ctx context.Context, userID string, location models.Coordinate) error
	GetCurrentLocation(ctx context.Context, userID string) (*models.Coordinate, error)
}

type ProfileStore interface {
	GetEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	GetCurrentUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// AlertSender is the outbound transport. A nil error means delivered.
type AlertSender interface {
	Send(ctx context.Context, task models.AlertTask) error
}

// AlertTaskStore is durable storage for tasks that must survive a restart.
type AlertTaskStore interface {
	Persist(ctx context.Context, task models.AlertTask) error
	LoadPending(ctx context.Context) ([]models.AlertTask, error)
	Remove(ctx context.Context, taskID string) error
}

// EventBroadcaster pushes observable state to connected clients.
type EventBroadcaster interface {
	BroadcastPanicState(userID string, session models.PanicSession)
	BroadcastQueueStatus(status models.QueueStatus)
	BroadcastGeofenceEvent(userID string, event models.GeofenceEvent)
}
