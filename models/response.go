package models

import "time"

// APIResponse wraps every HTTP response body.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// Request bodies

type LocationRequest struct {
	Latitude  float64    `json:"latitude" validate:"latitude_range"`
	Longitude float64    `json:"longitude" validate:"longitude_range"`
	Accuracy  float64    `json:"accuracy" validate:"gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (r LocationRequest) Coordinate() Coordinate {
	c := Coordinate{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
	}
	if r.Timestamp != nil {
		c.Timestamp = *r.Timestamp
	}
	return c
}

type ScoreRequest struct {
	LocationRequest
	Hour *int `json:"hour,omitempty" validate:"omitempty,gte=0,lte=23"`
}

type LocationUpdateResponse struct {
	Assessment SafetyAssessment `json:"assessment"`
	Event      *GeofenceEvent   `json:"event,omitempty"`
}

type PanicResponse struct {
	Session        PanicSession      `json:"session"`
	LastActivation *ActivationResult `json:"lastActivation,omitempty"`
	Message        string            `json:"message,omitempty"`
}

type QueueResponse struct {
	Status   QueueStatus `json:"status"`
	Failures []AlertTask `json:"failures"`
}
