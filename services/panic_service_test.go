package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewatch/models"
	"safewatch/utils"
)

type panicFixture struct {
	ps        *PanicService
	clock     *utils.ManualClock
	queue     *recordingQueue
	locations *stubLocations
	profiles  *stubProfiles
}

func newPanicFixture() *panicFixture {
	f := &panicFixture{
		clock: utils.NewManualClock(testStart),
		queue: &recordingQueue{},
		locations: &stubLocations{
			location: &models.Coordinate{Latitude: 28.614, Longitude: 77.209, Accuracy: 8},
		},
		profiles: &stubProfiles{
			contacts: []models.EmergencyContact{{Name: "Alex", Phone: "+15555550101", Priority: 1}},
		},
	}
	f.ps = NewPanicService("u1", f.locations, f.profiles, f.queue, f.clock, DefaultPanicConfig())
	return f
}

func TestPanic_CountdownActivates(t *testing.T) {
	f := newPanicFixture()
	ctx := context.Background()

	session, err := f.ps.Trigger(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PanicStateCountingDown, session.State)
	assert.Equal(t, 3, session.CountdownRemaining)

	f.clock.Advance(time.Second)
	assert.Equal(t, 2, f.ps.Session().CountdownRemaining)
	assert.Empty(t, f.queue.enqueued())

	f.clock.Advance(2 * time.Second)

	session = f.ps.Session()
	assert.Equal(t, models.PanicStateActive, session.State)
	require.NotNil(t, session.ActivatedAt)
	assert.Equal(t, testStart.Add(3*time.Second), *session.ActivatedAt)

	tasks := f.queue.enqueued()
	require.Len(t, tasks, 1)
	assert.Equal(t, models.AlertTypeEmergency, tasks[0].Type)
	assert.Equal(t, models.AlertPriorityHigh, tasks[0].Priority)
	assert.Equal(t, "u1", tasks[0].UserID)
	assert.Equal(t, 28.614, tasks[0].Payload["latitude"])
	assert.Equal(t, tasks[0].ID, session.AlertTaskID)

	result, err := f.ps.LastActivation()
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Activated)
}

func TestPanic_SecondTriggerCancels(t *testing.T) {
	f := newPanicFixture()
	ctx := context.Background()

	_, err := f.ps.Trigger(ctx)
	require.NoError(t, err)
	f.clock.Advance(time.Second)

	session, err := f.ps.Trigger(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PanicStateIdle, session.State)

	f.clock.Advance(10 * time.Second)
	assert.Equal(t, models.PanicStateIdle, f.ps.Session().State)
	assert.Empty(t, f.queue.enqueued())
}

func TestPanic_StaleTickIsIgnored(t *testing.T) {
	f := newPanicFixture()
	ctx := context.Background()

	_, err := f.ps.Trigger(ctx)
	require.NoError(t, err)
	stale := f.ps.token

	f.ps.Cancel()
	f.ps.onTick(stale)
	assert.Equal(t, models.PanicStateIdle, f.ps.Session().State)

	// A fresh countdown is not advanced by the old one's ticks.
	_, err = f.ps.Trigger(ctx)
	require.NoError(t, err)
	f.ps.onTick(stale)
	f.ps.onTick(stale)
	f.ps.onTick(stale)

	session := f.ps.Session()
	assert.Equal(t, models.PanicStateCountingDown, session.State)
	assert.Equal(t, 3, session.CountdownRemaining)
	assert.Empty(t, f.queue.enqueued())
}

func TestPanic_RefusedWithoutLocation(t *testing.T) {
	f := newPanicFixture()
	f.locations.location = nil

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)

	session := f.ps.Session()
	assert.Equal(t, models.PanicStateIdle, session.State)
	assert.Equal(t, models.PreconditionLocationRequired, session.FailureReason)
	assert.Empty(t, f.queue.enqueued())

	result, err := f.ps.LastActivation()
	assert.True(t, utils.IsPreconditionError(err))
	assert.Equal(t, models.PreconditionLocationRequired, utils.PreconditionReason(err))
	require.NotNil(t, result)
	assert.False(t, result.Activated)
	assert.NotEmpty(t, result.Message)
}

func TestPanic_LookupErrorsMapToPreconditions(t *testing.T) {
	f := newPanicFixture()
	f.locations.err = errors.New("gps timeout")

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)
	assert.Equal(t, models.PreconditionLocationRequired, f.ps.Session().FailureReason)

	f = newPanicFixture()
	f.profiles.err = errors.New("profile service down")

	_, err = f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)
	assert.Equal(t, models.PreconditionNoContacts, f.ps.Session().FailureReason)
}

func TestPanic_RefusedWithoutContacts(t *testing.T) {
	f := newPanicFixture()
	f.profiles.contacts = nil

	var outcomes []models.ActivationResult
	f.ps.OnActivation(func(result models.ActivationResult, err error) {
		outcomes = append(outcomes, result)
	})

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)

	assert.Equal(t, models.PanicStateIdle, f.ps.Session().State)
	assert.Equal(t, models.PreconditionNoContacts, f.ps.Session().FailureReason)
	assert.Empty(t, f.queue.enqueued())

	require.Len(t, outcomes, 1)
	assert.Equal(t, models.PreconditionNoContacts, outcomes[0].Reason)

	// A refused activation can be retried with a new trigger.
	f.profiles.contacts = []models.EmergencyContact{{Name: "Sam", Phone: "+15555550102"}}
	_, err = f.ps.Trigger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.ps.Session().FailureReason)
	f.clock.Advance(3 * time.Second)
	assert.Equal(t, models.PanicStateActive, f.ps.Session().State)
}

func TestPanic_DeactivationFlow(t *testing.T) {
	f := newPanicFixture()
	ctx := context.Background()

	_, err := f.ps.RequestDeactivate(ctx)
	assert.True(t, utils.HasCode(err, utils.ErrCodeConflict))

	_, err = f.ps.Trigger(ctx)
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)
	require.Equal(t, models.PanicStateActive, f.ps.Session().State)

	_, err = f.ps.Trigger(ctx)
	assert.True(t, utils.HasCode(err, utils.ErrCodeConflict))

	_, err = f.ps.ConfirmDeactivate(ctx)
	assert.True(t, utils.HasCode(err, utils.ErrCodeConflict))

	session, err := f.ps.RequestDeactivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PanicStateDeactivating, session.State)

	session, err = f.ps.ConfirmDeactivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PanicStateIdle, session.State)
	assert.Empty(t, session.AlertTaskID)

	// Deactivating never touches the queued alert.
	assert.Len(t, f.queue.enqueued(), 1)
}

func TestPanic_StateListenerSeesEveryTransition(t *testing.T) {
	f := newPanicFixture()

	var states []models.PanicState
	f.ps.OnStateChange(func(s models.PanicSession) {
		states = append(states, s.State)
	})

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)

	assert.Equal(t, []models.PanicState{
		models.PanicStateCountingDown,
		models.PanicStateCountingDown,
		models.PanicStateCountingDown,
		models.PanicStateActivating,
		models.PanicStateActive,
	}, states)
}

func TestPanic_CloseStopsCountdown(t *testing.T) {
	f := newPanicFixture()

	var states []models.PanicState
	f.ps.OnStateChange(func(s models.PanicSession) { states = append(states, s.State) })

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.ps.Close()
	f.clock.Advance(5 * time.Second)

	assert.Equal(t, models.PanicStateIdle, f.ps.Session().State)
	assert.Zero(t, f.ps.Session().CountdownRemaining)
	assert.Equal(t, []models.PanicState{models.PanicStateCountingDown, models.PanicStateIdle}, states)
	assert.Empty(t, f.queue.enqueued())
	assert.Zero(t, f.clock.Pending())
}

func TestPanic_CloseKeepsActiveSession(t *testing.T) {
	f := newPanicFixture()

	_, err := f.ps.Trigger(context.Background())
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)
	require.Equal(t, models.PanicStateActive, f.ps.Session().State)

	f.ps.Close()
	assert.Equal(t, models.PanicStateActive, f.ps.Session().State)
}
