package models

import "time"

// WSMessage is the envelope for every frame pushed to a connected client.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	UserID    string      `json:"userId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

// WSRequest is a frame sent by the client.
type WSRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

const (
	WSTypePanicState    = "panic_state"
	WSTypeQueueStatus   = "queue_status"
	WSTypeGeofenceEvent = "geofence_event"
	WSTypePing          = "ping"
	WSTypePong          = "pong"
	WSTypeSnapshot      = "snapshot"
	WSTypeError         = "error"
)

type WSSnapshot struct {
	Panic PanicSession `json:"panic"`
	Queue QueueStatus  `json:"queue"`
}
