package websocket

import (
	"context"
	"sync"
	"time"

	"safewatch/models"

	"github.com/sirupsen/logrus"
)

// SnapshotProvider supplies the state a client sees right after connecting.
type SnapshotProvider interface {
	PanicSession(userID string) models.PanicSession
	QueueStatus() models.QueueStatus
}

type userMessage struct {
	userID  string
	message models.WSMessage
}

type HubStats struct {
	TotalConnections  int64     `json:"totalConnections"`
	ActiveConnections int       `json:"activeConnections"`
	MessagesSent      int64     `json:"messagesSent"`
	MessagesDropped   int64     `json:"messagesDropped"`
	StartTime         time.Time `json:"startTime"`
}

// Hub fans panic, queue and geofence events out to connected clients. A user
// may hold several connections; each one receives every event for that user.
// It implements interfaces.EventBroadcaster.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	sendToUser chan userMessage
	broadcast  chan models.WSMessage

	snapshots SnapshotProvider

	stats HubStats
	mutex sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(snapshots SnapshotProvider) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		sendToUser:  make(chan userMessage, 256),
		broadcast:   make(chan models.WSMessage, 256),
		snapshots:   snapshots,
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.sendToUser:
			h.deliverToUser(msg)

		case message := <-h.broadcast:
			h.deliverToAll(message)

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Shutdown() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	if h.userClients[client.userID] == nil {
		h.userClients[client.userID] = make(map[*Client]bool)
	}
	h.userClients[client.userID][client] = true
	h.stats.ActiveConnections++
	h.stats.TotalConnections++
	active := h.stats.ActiveConnections
	h.mutex.Unlock()

	if h.snapshots != nil {
		client.SendMessage(models.WSMessage{
			Type: models.WSTypeSnapshot,
			Data: models.WSSnapshot{
				Panic: h.snapshots.PanicSession(client.userID),
				Queue: h.snapshots.QueueStatus(),
			},
			UserID:    client.userID,
			Timestamp: time.Now(),
		})
	}

	logrus.Infof("Client registered: %s (Total: %d)", client.userID, active)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	if conns := h.userClients[client.userID]; conns != nil {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userClients, client.userID)
		}
	}
	h.stats.ActiveConnections--
	client.close()

	logrus.Infof("Client unregistered: %s (Total: %d)", client.userID, h.stats.ActiveConnections)
}

func (h *Hub) deliverToUser(msg userMessage) {
	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.userClients[msg.userID]))
	for client := range h.userClients[msg.userID] {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.countSend(client.SendMessage(msg.message))
	}
}

func (h *Hub) deliverToAll(message models.WSMessage) {
	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	for _, client := range targets {
		h.countSend(client.SendMessage(message))
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		client.close()
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
	h.stats.ActiveConnections = 0
}

func (h *Hub) countSend(ok bool) {
	h.mutex.Lock()
	if ok {
		h.stats.MessagesSent++
	} else {
		h.stats.MessagesDropped++
	}
	h.mutex.Unlock()
}

// Broadcasting never blocks the caller; a full hub queue drops the event.

func (h *Hub) BroadcastPanicState(userID string, session models.PanicSession) {
	h.enqueueForUser(userID, models.WSMessage{
		Type:      models.WSTypePanicState,
		Data:      session,
		UserID:    userID,
		Timestamp: time.Now(),
	})
}

func (h *Hub) BroadcastGeofenceEvent(userID string, event models.GeofenceEvent) {
	h.enqueueForUser(userID, models.WSMessage{
		Type:      models.WSTypeGeofenceEvent,
		Data:      event,
		UserID:    userID,
		Timestamp: time.Now(),
	})
}

func (h *Hub) BroadcastQueueStatus(status models.QueueStatus) {
	message := models.WSMessage{
		Type:      models.WSTypeQueueStatus,
		Data:      status,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- message:
	default:
		logrus.Warn("Broadcast channel full, dropping queue status")
	}
}

func (h *Hub) enqueueForUser(userID string, message models.WSMessage) {
	select {
	case h.sendToUser <- userMessage{userID: userID, message: message}:
	default:
		logrus.Warnf("User channel full, dropping %s for %s", message.Type, userID)
	}
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.userClients[userID]) > 0
}

func (h *Hub) GetStats() HubStats {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.stats
}
