package services

import (
	"context"
	"sync"
	"time"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"
)

type userSession struct {
	panicSM  *PanicService
	monitor  *GeofenceMonitor
	lastSeen time.Time
}

// SafetyService is the entry point used by the API layer. It owns one panic
// state machine and one geofence monitor per user session, all sharing the
// same zone snapshot and dispatch queue.
type SafetyService struct {
	zones      *ZoneService
	classifier *ZoneClassifier
	scorer     *SafetyScorer
	queue      *DispatchQueue
	locations  *LocationService
	profiles   interfaces.ProfileStore
	clock      utils.Clock
	panicCfg   PanicConfig

	sessions     map[string]*userSession
	sessionMutex sync.Mutex

	broadcaster interfaces.EventBroadcaster
	onEmergency []func()
	hookMutex   sync.RWMutex
}

func NewSafetyService(
	zones *ZoneService,
	classifier *ZoneClassifier,
	scorer *SafetyScorer,
	queue *DispatchQueue,
	locations *LocationService,
	profiles interfaces.ProfileStore,
	clock utils.Clock,
	panicCfg PanicConfig,
) *SafetyService {
	if clock == nil {
		clock = utils.SystemClock()
	}

	ss := &SafetyService{
		zones:      zones,
		classifier: classifier,
		scorer:     scorer,
		queue:      queue,
		locations:  locations,
		profiles:   profiles,
		clock:      clock,
		panicCfg:   panicCfg,
		sessions:   make(map[string]*userSession),
	}

	queue.OnStatusChange(func(status models.QueueStatus) {
		if b := ss.getBroadcaster(); b != nil {
			b.BroadcastQueueStatus(status)
		}
	})

	return ss
}

// SetBroadcaster wires the observable streams to connected clients.
func (ss *SafetyService) SetBroadcaster(b interfaces.EventBroadcaster) {
	ss.hookMutex.Lock()
	ss.broadcaster = b
	ss.hookMutex.Unlock()
}

// OnEmergencyQueued registers fn to run right after a panic alert is handed
// to the queue, so delivery can start without waiting for the next poll.
func (ss *SafetyService) OnEmergencyQueued(fn func()) {
	ss.hookMutex.Lock()
	ss.onEmergency = append(ss.onEmergency, fn)
	ss.hookMutex.Unlock()
}

// Classify resolves location against the current zones. Zones dropped from
// the snapshot as malformed are listed in SkippedZones.
func (ss *SafetyService) Classify(location models.Coordinate) models.SafetyAssessment {
	assessment := ss.classifier.Classify(location, ss.zones.Prepared())
	if skipped := ss.zones.Skipped(); len(skipped) > 0 {
		assessment.SkippedZones = append([]string(nil), skipped...)
	}
	return assessment
}

func (ss *SafetyService) Score(location models.Coordinate, ctx models.ScoreContext) models.SafetyAssessment {
	return ss.scorer.Score(ss.Classify(location), ctx)
}

// ScoreNow scores location with the fix's own accuracy and the hour on the
// device's clock, taken from the fix timestamp and its offset. A fix without a
// timestamp falls back to the server's hour.
func (ss *SafetyService) ScoreNow(location models.Coordinate) models.SafetyAssessment {
	hour := ss.clock.Now().Hour()
	if !location.Timestamp.IsZero() {
		hour = location.Timestamp.Hour()
	}
	return ss.Score(location, models.ScoreContext{
		Hour:                   hour,
		LocationAccuracyMeters: location.Accuracy,
	})
}

// UpdateLocation records the fix for panic activation and feeds the user's
// geofence monitor.
func (ss *SafetyService) UpdateLocation(ctx context.Context, userID string, location models.Coordinate) (*models.GeofenceEvent, error) {
	if location.Timestamp.IsZero() {
		location.Timestamp = ss.clock.Now()
	}
	if err := ss.locations.UpdateLocation(ctx, userID, location); err != nil {
		return nil, err
	}
	return ss.session(userID).monitor.OnLocationUpdate(ctx, location), nil
}

func (ss *SafetyService) GeofenceHistory(userID string) []models.GeofenceEvent {
	session, ok := ss.lookup(userID)
	if !ok {
		return []models.GeofenceEvent{}
	}
	return session.monitor.History()
}

func (ss *SafetyService) TriggerPanic(ctx context.Context, userID string) (models.PanicSession, error) {
	return ss.session(userID).panicSM.Trigger(ctx)
}

func (ss *SafetyService) RequestPanicDeactivate(ctx context.Context, userID string) (models.PanicSession, error) {
	return ss.session(userID).panicSM.RequestDeactivate(ctx)
}

func (ss *SafetyService) ConfirmPanicDeactivate(ctx context.Context, userID string) (models.PanicSession, error) {
	return ss.session(userID).panicSM.ConfirmDeactivate(ctx)
}

// PanicSession reports the user's panic state. A user without a live session
// is idle; reading does not create one.
func (ss *SafetyService) PanicSession(userID string) models.PanicSession {
	session, ok := ss.lookup(userID)
	if !ok {
		return models.PanicSession{State: models.PanicStateIdle}
	}
	return session.panicSM.Session()
}

func (ss *SafetyService) LastActivation(userID string) (*models.ActivationResult, error) {
	session, ok := ss.lookup(userID)
	if !ok {
		return nil, nil
	}
	return session.panicSM.LastActivation()
}

func (ss *SafetyService) QueueStatus() models.QueueStatus {
	return ss.queue.Status()
}

// AlertFailures lists the user's alerts that need action.
func (ss *SafetyService) AlertFailures(userID string) []models.AlertTask {
	failures := make([]models.AlertTask, 0)
	for _, task := range ss.queue.Failures() {
		if task.UserID == userID {
			failures = append(failures, task)
		}
	}
	return failures
}

func (ss *SafetyService) RetryAlert(ctx context.Context, userID, taskID string) (models.AlertTask, error) {
	if err := ss.checkOwner(userID, taskID); err != nil {
		return models.AlertTask{}, err
	}
	return ss.queue.Retry(ctx, taskID)
}

func (ss *SafetyService) DiscardAlert(ctx context.Context, userID, taskID string) error {
	if err := ss.checkOwner(userID, taskID); err != nil {
		return err
	}
	return ss.queue.Discard(ctx, taskID)
}

// checkOwner hides other users' tasks behind NOT_FOUND.
func (ss *SafetyService) checkOwner(userID, taskID string) error {
	task, ok := ss.queue.Get(taskID)
	if !ok || task.UserID != userID {
		return utils.NewNotFoundError("alert task")
	}
	return nil
}

// ActiveSessions is the number of users holding a panic state machine and
// geofence monitor.
func (ss *SafetyService) ActiveSessions() int {
	ss.sessionMutex.Lock()
	defer ss.sessionMutex.Unlock()
	return len(ss.sessions)
}

// ReleaseIdleSessions forgets every session untouched for at least maxIdle
// whose panic state machine is idle. A released user starts over as safe with
// an empty geofence history. It returns how many sessions were released.
func (ss *SafetyService) ReleaseIdleSessions(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := ss.clock.Now().Add(-maxIdle)

	var released []*userSession
	ss.sessionMutex.Lock()
	for userID, session := range ss.sessions {
		if session.lastSeen.After(cutoff) {
			continue
		}
		if session.panicSM.Session().State != models.PanicStateIdle {
			continue
		}
		delete(ss.sessions, userID)
		released = append(released, session)
	}
	ss.sessionMutex.Unlock()

	for _, session := range released {
		session.panicSM.Close()
	}
	return len(released)
}

func (ss *SafetyService) lookup(userID string) (*userSession, bool) {
	ss.sessionMutex.Lock()
	defer ss.sessionMutex.Unlock()

	session, ok := ss.sessions[userID]
	if ok {
		session.lastSeen = ss.clock.Now()
	}
	return session, ok
}

func (ss *SafetyService) session(userID string) *userSession {
	ss.sessionMutex.Lock()
	defer ss.sessionMutex.Unlock()

	if session, ok := ss.sessions[userID]; ok {
		session.lastSeen = ss.clock.Now()
		return session
	}

	panicService := NewPanicService(userID, ss.locations, ss.profiles, ss.queue, ss.clock, ss.panicCfg)
	panicService.OnStateChange(func(state models.PanicSession) {
		if b := ss.getBroadcaster(); b != nil {
			b.BroadcastPanicState(userID, state)
		}
	})
	panicService.OnActivation(func(result models.ActivationResult, err error) {
		if !result.Activated {
			return
		}
		ss.hookMutex.RLock()
		hooks := ss.onEmergency
		ss.hookMutex.RUnlock()
		for _, fn := range hooks {
			fn()
		}
	})

	monitor := NewGeofenceMonitor(userID, ss.classifier, ss.zones, ss.queue, ss.clock)
	monitor.OnEvent(func(event models.GeofenceEvent) {
		if b := ss.getBroadcaster(); b != nil {
			b.BroadcastGeofenceEvent(userID, event)
		}
	})

	session := &userSession{panicSM: panicService, monitor: monitor, lastSeen: ss.clock.Now()}
	ss.sessions[userID] = session
	return session
}

func (ss *SafetyService) getBroadcaster() interfaces.EventBroadcaster {
	ss.hookMutex.RLock()
	defer ss.hookMutex.RUnlock()
	return ss.broadcaster
}
