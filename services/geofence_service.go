package services

import (
	"context"
	"sync"

	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
)

const maxGeofenceHistory = 100

// ZoneProvider hands out the current read-only prepared zone snapshot.
type ZoneProvider interface {
	Prepared() []PreparedZone
}

// GeofenceMonitor watches one user's location stream and reports changes of
// safety level. Only transitions to a more restrictive level notify anyone;
// improvements are kept in the history.
type GeofenceMonitor struct {
	userID     string
	classifier *ZoneClassifier
	zones      ZoneProvider
	queue      AlertEnqueuer
	clock      utils.Clock

	// level and zone from the previous update; an unseen user counts as safe
	previousLevel models.SafetyLevel
	previousZone  *models.SafetyZone
	history       []models.GeofenceEvent
	mutex         sync.Mutex

	listeners []func(models.GeofenceEvent)
}

func NewGeofenceMonitor(
	userID string,
	classifier *ZoneClassifier,
	zones ZoneProvider,
	queue AlertEnqueuer,
	clock utils.Clock,
) *GeofenceMonitor {
	if clock == nil {
		clock = utils.SystemClock()
	}

	return &GeofenceMonitor{
		userID:        userID,
		classifier:    classifier,
		zones:         zones,
		queue:         queue,
		clock:         clock,
		previousLevel: models.SafetyLevelSafe,
	}
}

// OnEvent registers fn to receive every emitted transition.
func (gm *GeofenceMonitor) OnEvent(fn func(models.GeofenceEvent)) {
	gm.mutex.Lock()
	gm.listeners = append(gm.listeners, fn)
	gm.mutex.Unlock()
}

// OnLocationUpdate reclassifies location and returns the transition event, or
// nil when the safety level is unchanged. Moving between two zones of the same
// level is not a transition.
func (gm *GeofenceMonitor) OnLocationUpdate(ctx context.Context, location models.Coordinate) *models.GeofenceEvent {
	assessment := gm.classifier.Classify(location, gm.zones.Prepared())

	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	newLevel := assessment.SafetyLevel
	if newLevel == gm.previousLevel {
		gm.previousZone = assessment.MatchedZone
		return nil
	}

	event := models.GeofenceEvent{
		PreviousLevel: gm.previousLevel,
		NewLevel:      newLevel,
		Location:      location,
		OccurredAt:    gm.clock.Now(),
	}

	if event.Worsens() {
		event.Type = models.GeofenceEventEnter
		event.Zone = assessment.MatchedZone

		task := gm.queue.Enqueue(ctx, gm.noticeTask(event))
		event.Notified = true
		event.AlertTaskID = task.ID
	} else {
		event.Type = models.GeofenceEventExit
		event.Zone = gm.previousZone
	}

	gm.previousLevel = newLevel
	gm.previousZone = assessment.MatchedZone

	gm.history = append(gm.history, event)
	if len(gm.history) > maxGeofenceHistory {
		gm.history = gm.history[len(gm.history)-maxGeofenceHistory:]
	}

	logrus.WithFields(logrus.Fields{
		"userId":   gm.userID,
		"type":     event.Type,
		"from":     event.PreviousLevel,
		"to":       event.NewLevel,
		"notified": event.Notified,
	}).Info("Safety level changed")

	for _, fn := range gm.listeners {
		fn(event)
	}

	return &event
}

// History returns the recorded transitions, oldest first.
func (gm *GeofenceMonitor) History() []models.GeofenceEvent {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()

	history := make([]models.GeofenceEvent, len(gm.history))
	copy(history, gm.history)
	return history
}

func (gm *GeofenceMonitor) CurrentLevel() models.SafetyLevel {
	gm.mutex.Lock()
	defer gm.mutex.Unlock()
	return gm.previousLevel
}

func (gm *GeofenceMonitor) noticeTask(event models.GeofenceEvent) models.AlertTask {
	payload := map[string]interface{}{
		"previousLevel": string(event.PreviousLevel),
		"newLevel":      string(event.NewLevel),
		"latitude":      event.Location.Latitude,
		"longitude":     event.Location.Longitude,
	}
	if event.Zone != nil {
		payload["zoneId"] = event.Zone.ID
		payload["zoneName"] = event.Zone.Name
	}

	return models.AlertTask{
		UserID:   gm.userID,
		Type:     models.AlertTypeGeofenceNotice,
		Priority: models.AlertPriorityMedium,
		Payload:  payload,
	}
}
