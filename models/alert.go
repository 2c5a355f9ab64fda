package models

import (
	"time"
)

// ==================== ALERT TASKS ====================

type AlertType string

const (
	AlertTypeEmergency      AlertType = "emergency_alert"
	AlertTypeLocationUpdate AlertType = "location_update"
	AlertTypeGeofenceNotice AlertType = "geofence_notice"
)

type AlertPriority string

const (
	AlertPriorityHigh   AlertPriority = "high"
	AlertPriorityMedium AlertPriority = "medium"
	AlertPriorityLow    AlertPriority = "low"
)

// Rank orders priorities for draining, highest first.
func (p AlertPriority) Rank() int {
	switch p {
	case AlertPriorityHigh:
		return 3
	case AlertPriorityMedium:
		return 2
	case AlertPriorityLow:
		return 1
	default:
		return 0
	}
}

type AlertStatus string

const (
	AlertStatusPending         AlertStatus = "pending"
	AlertStatusInFlight        AlertStatus = "in_flight"
	AlertStatusDelivered       AlertStatus = "delivered"
	AlertStatusFailedPermanent AlertStatus = "failed_permanent"
)

// IsTerminal reports whether no further delivery attempt will be made.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertStatusDelivered || s == AlertStatusFailedPermanent
}

// AlertTask is owned by the dispatch queue from Enqueue until it reaches a
// terminal status.
type AlertTask struct {
	ID          string                 `json:"id" bson:"_id"`
	UserID      string                 `json:"userId" bson:"userId"`
	Type        AlertType              `json:"type" bson:"type" validate:"alert_type"`
	Priority    AlertPriority          `json:"priority" bson:"priority" validate:"alert_priority"`
	Payload     map[string]interface{} `json:"payload" bson:"payload"`
	CreatedAt   time.Time              `json:"createdAt" bson:"createdAt"`
	Attempts    int                    `json:"attempts" bson:"attempts"`
	NextRetryAt *time.Time             `json:"nextRetryAt,omitempty" bson:"nextRetryAt,omitempty"`
	Status      AlertStatus            `json:"status" bson:"status"`
	LastError   string                 `json:"lastError,omitempty" bson:"lastError,omitempty"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updatedAt"`

	// Dirty marks a task whose latest state has not reached durable storage.
	Dirty bool `json:"-" bson:"-"`
}

// Eligible reports whether a drain pass may attempt the task at now.
func (t AlertTask) Eligible(now time.Time) bool {
	if t.Status != AlertStatusPending {
		return false
	}
	return t.NextRetryAt == nil || !t.NextRetryAt.After(now)
}

// Clone copies the task including its payload map and retry time.
func (t AlertTask) Clone() AlertTask {
	c := t
	if t.Payload != nil {
		c.Payload = make(map[string]interface{}, len(t.Payload))
		for k, v := range t.Payload {
			c.Payload[k] = v
		}
	}
	if t.NextRetryAt != nil {
		next := *t.NextRetryAt
		c.NextRetryAt = &next
	}
	return c
}

// DrainResult summarises a single drain pass. Partial drains are normal.
type DrainResult struct {
	Attempted       int         `json:"attempted"`
	Delivered       []string    `json:"delivered"`
	Retrying        []string    `json:"retrying"`
	FailedPermanent []AlertTask `json:"failedPermanent"`
	StartedAt       time.Time   `json:"startedAt"`
	FinishedAt      time.Time   `json:"finishedAt"`
}

type QueueStatus struct {
	Size            int        `json:"size"`
	Pending         int        `json:"pending"`
	InFlight        int        `json:"inFlight"`
	FailedPermanent int        `json:"failedPermanent"`
	NextRetryAt     *time.Time `json:"nextRetryAt,omitempty"`
	// SyncState is what the UI shows: "synced", "pending sync" or "action required".
	SyncState string `json:"syncState"`
}

const (
	SyncStateSynced         = "synced"
	SyncStatePending        = "pending sync"
	SyncStateActionRequired = "action required"
)
