package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewatch/models"
	"safewatch/utils"
)

var (
	outside    = models.Coordinate{Latitude: 50, Longitude: 50}
	inCaution  = models.Coordinate{Latitude: 5, Longitude: 5}
	inDocks    = models.Coordinate{Latitude: 5, Longitude: 25}
	inRestrict = models.Coordinate{Latitude: 5.5, Longitude: 5.5}
)

func newTestMonitor() (*GeofenceMonitor, *recordingQueue, *utils.ManualClock) {
	zones := staticZones{
		rect("market", models.SafetyLevelCaution, 0, 0, 10, 10),
		rect("docks", models.SafetyLevelCaution, 0, 20, 10, 30),
		rect("yard", models.SafetyLevelRestricted, 5, 5, 6, 6),
	}
	queue := &recordingQueue{}
	clock := utils.NewManualClock(testStart)
	return NewGeofenceMonitor("u1", NewZoneClassifier(), zones, queue, clock), queue, clock
}

func TestGeofence_OnlyWorseningNotifies(t *testing.T) {
	monitor, queue, clock := newTestMonitor()
	ctx := context.Background()

	assert.Nil(t, monitor.OnLocationUpdate(ctx, outside))

	clock.Advance(time.Minute)
	entered := monitor.OnLocationUpdate(ctx, inCaution)
	require.NotNil(t, entered)
	assert.Equal(t, models.GeofenceEventEnter, entered.Type)
	assert.Equal(t, models.SafetyLevelSafe, entered.PreviousLevel)
	assert.Equal(t, models.SafetyLevelCaution, entered.NewLevel)
	assert.Equal(t, "market", entered.Zone.ID)
	assert.True(t, entered.Notified)
	assert.Equal(t, testStart.Add(time.Minute), entered.OccurredAt)

	clock.Advance(time.Minute)
	exited := monitor.OnLocationUpdate(ctx, outside)
	require.NotNil(t, exited)
	assert.Equal(t, models.GeofenceEventExit, exited.Type)
	assert.Equal(t, "market", exited.Zone.ID)
	assert.False(t, exited.Notified)

	tasks := queue.enqueued()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.AlertTypeGeofenceNotice, tasks[0].Type)
	assert.Equal(t, models.AlertPriorityMedium, tasks[0].Priority)
	assert.Equal(t, "market", tasks[0].Payload["zoneId"])
	assert.Equal(t, tasks[0].ID, entered.AlertTaskID)

	history := monitor.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.GeofenceEventEnter, history[0].Type)
	assert.Equal(t, models.GeofenceEventExit, history[1].Type)
}

func TestGeofence_SameLevelMoveIsNotATransition(t *testing.T) {
	monitor, queue, _ := newTestMonitor()
	ctx := context.Background()

	require.NotNil(t, monitor.OnLocationUpdate(ctx, inCaution))
	assert.Nil(t, monitor.OnLocationUpdate(ctx, inDocks))
	assert.Equal(t, models.SafetyLevelCaution, monitor.CurrentLevel())

	// The exit names the zone actually left.
	exited := monitor.OnLocationUpdate(ctx, outside)
	require.NotNil(t, exited)
	assert.Equal(t, "docks", exited.Zone.ID)
	assert.Len(t, queue.enqueued(), 1)
}

func TestGeofence_EscalationNotifiesEachStep(t *testing.T) {
	monitor, queue, _ := newTestMonitor()
	ctx := context.Background()

	var events []models.GeofenceEvent
	monitor.OnEvent(func(e models.GeofenceEvent) {
		events = append(events, e)
	})

	monitor.OnLocationUpdate(ctx, inCaution)
	escalated := monitor.OnLocationUpdate(ctx, inRestrict)
	require.NotNil(t, escalated)
	assert.Equal(t, models.SafetyLevelCaution, escalated.PreviousLevel)
	assert.Equal(t, models.SafetyLevelRestricted, escalated.NewLevel)
	assert.Equal(t, "yard", escalated.Zone.ID)

	// Stepping back down one level is an improvement.
	eased := monitor.OnLocationUpdate(ctx, inCaution)
	require.NotNil(t, eased)
	assert.Equal(t, models.GeofenceEventExit, eased.Type)
	assert.False(t, eased.Notified)

	assert.Len(t, queue.enqueued(), 2)
	assert.Len(t, events, 3)
}

func TestGeofence_HistoryIsBounded(t *testing.T) {
	monitor, _, _ := newTestMonitor()
	ctx := context.Background()

	for i := 0; i < maxGeofenceHistory; i++ {
		monitor.OnLocationUpdate(ctx, inCaution)
		monitor.OnLocationUpdate(ctx, outside)
	}

	history := monitor.History()
	assert.Len(t, history, maxGeofenceHistory)
	assert.Equal(t, models.GeofenceEventExit, history[len(history)-1].Type)
}
