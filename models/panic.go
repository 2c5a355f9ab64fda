package models

import (
	"time"
)

// ==================== PANIC SESSION ====================

type PanicState string

const (
	PanicStateIdle         PanicState = "idle"
	PanicStateCountingDown PanicState = "counting_down"
	PanicStateActivating   PanicState = "activating"
	PanicStateActive       PanicState = "active"
	PanicStateDeactivating PanicState = "deactivating"
)

// PanicSession has one instance per user session and is only mutated by the
// panic state machine. Callers receive copies.
type PanicSession struct {
	State              PanicState `json:"state"`
	CountdownRemaining int        `json:"countdownRemaining"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	ActivatedAt        *time.Time `json:"activatedAt,omitempty"`
	AlertTaskID        string     `json:"alertTaskId,omitempty"`
	FailureReason      string     `json:"failureReason,omitempty"`
}

const (
	PreconditionLocationRequired = "location_required"
	PreconditionNoContacts       = "no_contacts"
)

// ActivationResult is reported once per countdown that reaches zero.
type ActivationResult struct {
	Activated   bool       `json:"activated"`
	AlertTaskID string     `json:"alertTaskId,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Message     string     `json:"message,omitempty"`
	Location    Coordinate `json:"location"`
	At          time.Time  `json:"at"`
}

// ==================== PROFILE ====================

type EmergencyContact struct {
	Name         string `json:"name" bson:"name"`
	Phone        string `json:"phone" bson:"phone"`
	Relationship string `json:"relationship,omitempty" bson:"relationship,omitempty"`
	Priority     int    `json:"priority" bson:"priority"`
}

type UserProfile struct {
	ID                string             `json:"id" bson:"_id"`
	FirstName         string             `json:"firstName" bson:"firstName"`
	LastName          string             `json:"lastName" bson:"lastName"`
	Phone             string             `json:"phone,omitempty" bson:"phone,omitempty"`
	DeviceToken       string             `json:"-" bson:"deviceToken,omitempty"`
	CircleTopic       string             `json:"circleTopic,omitempty" bson:"circleTopic,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts" bson:"emergencyContacts"`
}

func (p UserProfile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return "A SafeWatch user"
	}
	return name
}

// ==================== GEOFENCE EVENTS ====================

type GeofenceEventType string

const (
	GeofenceEventEnter GeofenceEventType = "enter"
	GeofenceEventExit  GeofenceEventType = "exit"
)

type GeofenceEvent struct {
	Type          GeofenceEventType `json:"type"`
	Zone          *SafetyZone       `json:"zone"`
	PreviousLevel SafetyLevel       `json:"previousLevel"`
	NewLevel      SafetyLevel       `json:"newLevel"`
	Location      Coordinate        `json:"location"`
	Notified      bool              `json:"notified"`
	AlertTaskID   string            `json:"alertTaskId,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// Worsens reports whether the transition moves to a more restrictive level.
func (e GeofenceEvent) Worsens() bool {
	return e.NewLevel.MoreRestrictiveThan(e.PreviousLevel)
}
