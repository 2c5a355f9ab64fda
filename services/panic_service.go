package services

import (
	"context"
	"sync"
	"time"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
)

// AlertEnqueuer is the hand-off into the dispatch queue. It must accept every
// task, online or not.
type AlertEnqueuer interface {
	Enqueue(ctx context.Context, task models.AlertTask) models.AlertTask
}

type PanicConfig struct {
	CountdownSeconds  int
	ActivationTimeout time.Duration
}

func DefaultPanicConfig() PanicConfig {
	return PanicConfig{
		CountdownSeconds:  3,
		ActivationTimeout: 10 * time.Second,
	}
}

// PanicService drives one user's panic session:
//
//	idle -> counting_down -> activating -> active -> deactivating -> idle
//
// Every transition, including timer-driven ones, runs under a single mutex,
// so requests queue behind each other and never interleave. Listeners are
// called while that mutex is held and must not call back into the service.
type PanicService struct {
	userID    string
	locations interfaces.LocationSource
	profiles  interfaces.ProfileStore
	queue     AlertEnqueuer
	clock     utils.Clock
	config    PanicConfig

	transition sync.Mutex

	// countdown generation; any tick carrying an older token is dropped
	token uint64
	timer utils.Timer

	session    models.PanicSession
	lastResult *models.ActivationResult
	lastErr    error
	stateMutex sync.RWMutex

	listeners           []func(models.PanicSession)
	activationListeners []func(models.ActivationResult, error)
}

func NewPanicService(
	userID string,
	locations interfaces.LocationSource,
	profiles interfaces.ProfileStore,
	queue AlertEnqueuer,
	clock utils.Clock,
	config PanicConfig,
) *PanicService {
	if clock == nil {
		clock = utils.SystemClock()
	}
	if config.CountdownSeconds <= 0 {
		config.CountdownSeconds = DefaultPanicConfig().CountdownSeconds
	}
	if config.ActivationTimeout <= 0 {
		config.ActivationTimeout = DefaultPanicConfig().ActivationTimeout
	}

	return &PanicService{
		userID:    userID,
		locations: locations,
		profiles:  profiles,
		queue:     queue,
		clock:     clock,
		config:    config,
		session:   models.PanicSession{State: models.PanicStateIdle},
	}
}

// OnStateChange registers fn to receive every session change.
func (ps *PanicService) OnStateChange(fn func(models.PanicSession)) {
	ps.transition.Lock()
	ps.listeners = append(ps.listeners, fn)
	ps.transition.Unlock()
}

// OnActivation registers fn to receive the outcome of each countdown that
// reaches zero. err is a precondition error when activation was refused.
func (ps *PanicService) OnActivation(fn func(models.ActivationResult, error)) {
	ps.transition.Lock()
	ps.activationListeners = append(ps.activationListeners, fn)
	ps.transition.Unlock()
}

func (ps *PanicService) Session() models.PanicSession {
	ps.stateMutex.RLock()
	defer ps.stateMutex.RUnlock()
	return copySession(ps.session)
}

// LastActivation returns the most recent activation outcome, if any.
func (ps *PanicService) LastActivation() (*models.ActivationResult, error) {
	ps.stateMutex.RLock()
	defer ps.stateMutex.RUnlock()

	if ps.lastResult == nil {
		return nil, ps.lastErr
	}
	result := *ps.lastResult
	return &result, ps.lastErr
}

// Trigger starts the countdown from idle. A second trigger while counting
// down cancels back to idle; it never restarts the countdown.
func (ps *PanicService) Trigger(ctx context.Context) (models.PanicSession, error) {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	switch ps.Session().State {
	case models.PanicStateIdle:
		ps.startCountdownLocked()
	case models.PanicStateCountingDown:
		ps.cancelCountdownLocked()
	default:
		return ps.Session(), utils.NewConflictError("Panic alert is already active")
	}

	return ps.Session(), nil
}

// Cancel stops a running countdown. It is a no-op in any other state.
func (ps *PanicService) Cancel() models.PanicSession {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	if ps.Session().State == models.PanicStateCountingDown {
		ps.cancelCountdownLocked()
	}
	return ps.Session()
}

func (ps *PanicService) RequestDeactivate(ctx context.Context) (models.PanicSession, error) {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	if ps.Session().State != models.PanicStateActive {
		return ps.Session(), utils.NewConflictError("Panic alert is not active")
	}

	ps.setLocked(func(s *models.PanicSession) {
		s.State = models.PanicStateDeactivating
	})
	logrus.Infof("Panic deactivation requested for user %s", ps.userID)

	return ps.Session(), nil
}

func (ps *PanicService) ConfirmDeactivate(ctx context.Context) (models.PanicSession, error) {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	if ps.Session().State != models.PanicStateDeactivating {
		return ps.Session(), utils.NewConflictError("No deactivation pending")
	}

	ps.setLocked(func(s *models.PanicSession) {
		*s = models.PanicSession{State: models.PanicStateIdle}
	})
	logrus.Infof("Panic session closed for user %s", ps.userID)

	return ps.Session(), nil
}

// Close stops any pending countdown tick and drops an unfinished countdown
// back to idle. Used when the user session ends.
func (ps *PanicService) Close() {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	if ps.Session().State == models.PanicStateCountingDown {
		ps.cancelCountdownLocked()
		return
	}

	ps.token++
	if ps.timer != nil {
		ps.timer.Stop()
		ps.timer = nil
	}
}

func (ps *PanicService) startCountdownLocked() {
	ps.token++
	now := ps.clock.Now()

	ps.setLocked(func(s *models.PanicSession) {
		*s = models.PanicSession{
			State:              models.PanicStateCountingDown,
			CountdownRemaining: ps.config.CountdownSeconds,
			StartedAt:          utils.TimePtr(now),
		}
	})
	ps.scheduleTickLocked(ps.token)

	logrus.Infof("Panic countdown started for user %s (%ds)", ps.userID, ps.config.CountdownSeconds)
}

func (ps *PanicService) cancelCountdownLocked() {
	ps.token++
	if ps.timer != nil {
		ps.timer.Stop()
		ps.timer = nil
	}

	ps.setLocked(func(s *models.PanicSession) {
		*s = models.PanicSession{State: models.PanicStateIdle}
	})

	logrus.Infof("Panic countdown cancelled for user %s", ps.userID)
}

func (ps *PanicService) scheduleTickLocked(token uint64) {
	ps.timer = ps.clock.AfterFunc(time.Second, func() {
		ps.onTick(token)
	})
}

// onTick advances the countdown by one second. Ticks from a cancelled or
// superseded countdown do nothing.
func (ps *PanicService) onTick(token uint64) {
	ps.transition.Lock()
	defer ps.transition.Unlock()

	if token != ps.token || ps.Session().State != models.PanicStateCountingDown {
		return
	}

	remaining := ps.Session().CountdownRemaining - 1
	if remaining > 0 {
		ps.setLocked(func(s *models.PanicSession) {
			s.CountdownRemaining = remaining
		})
		ps.scheduleTickLocked(token)
		return
	}

	ps.token++
	ps.timer = nil
	ps.setLocked(func(s *models.PanicSession) {
		s.CountdownRemaining = 0
		s.State = models.PanicStateActivating
	})

	ps.activateLocked()
}

// activateLocked checks the preconditions and hands the emergency alert to
// the queue. Precondition failures return straight to idle and are not
// retried.
func (ps *PanicService) activateLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), ps.config.ActivationTimeout)
	defer cancel()

	now := ps.clock.Now()

	location, err := ps.locations.GetCurrentLocation(ctx, ps.userID)
	if err != nil {
		logrus.Warnf("Location lookup failed during panic activation for user %s: %v", ps.userID, err)
	}
	if err != nil || location == nil {
		ps.refuseLocked(models.PreconditionLocationRequired, now)
		return
	}

	contacts, err := ps.profiles.GetEmergencyContacts(ctx, ps.userID)
	if err != nil {
		logrus.Warnf("Emergency contact lookup failed during panic activation for user %s: %v", ps.userID, err)
	}
	if err != nil || len(contacts) == 0 {
		ps.refuseLocked(models.PreconditionNoContacts, now)
		return
	}

	task := ps.queue.Enqueue(ctx, models.AlertTask{
		UserID:   ps.userID,
		Type:     models.AlertTypeEmergency,
		Priority: models.AlertPriorityHigh,
		Payload: map[string]interface{}{
			"latitude":     location.Latitude,
			"longitude":    location.Longitude,
			"accuracy":     location.Accuracy,
			"contactCount": len(contacts),
			"triggeredAt":  now,
		},
	})

	ps.setLocked(func(s *models.PanicSession) {
		s.State = models.PanicStateActive
		s.ActivatedAt = utils.TimePtr(now)
		s.AlertTaskID = task.ID
		s.FailureReason = ""
	})

	logrus.WithFields(logrus.Fields{
		"userId": ps.userID,
		"taskId": task.ID,
	}).Info("Panic alert activated")

	ps.finishActivationLocked(models.ActivationResult{
		Activated:   true,
		AlertTaskID: task.ID,
		Location:    *location,
		At:          now,
	}, nil)
}

func (ps *PanicService) refuseLocked(reason string, now time.Time) {
	err := utils.NewPreconditionError(reason)

	ps.setLocked(func(s *models.PanicSession) {
		*s = models.PanicSession{
			State:         models.PanicStateIdle,
			FailureReason: reason,
		}
	})

	logrus.WithFields(logrus.Fields{
		"userId": ps.userID,
		"reason": reason,
	}).Warn("Panic activation refused")

	ps.finishActivationLocked(models.ActivationResult{
		Activated: false,
		Reason:    reason,
		Message:   utils.UserMessage(err),
		At:        now,
	}, err)
}

func (ps *PanicService) finishActivationLocked(result models.ActivationResult, err error) {
	ps.stateMutex.Lock()
	ps.lastResult = &result
	ps.lastErr = err
	ps.stateMutex.Unlock()

	for _, fn := range ps.activationListeners {
		fn(result, err)
	}
}

func (ps *PanicService) setLocked(mutate func(*models.PanicSession)) {
	ps.stateMutex.Lock()
	mutate(&ps.session)
	snapshot := copySession(ps.session)
	ps.stateMutex.Unlock()

	for _, fn := range ps.listeners {
		fn(snapshot)
	}
}

func copySession(s models.PanicSession) models.PanicSession {
	c := s
	if s.StartedAt != nil {
		c.StartedAt = utils.TimePtr(*s.StartedAt)
	}
	if s.ActivatedAt != nil {
		c.ActivatedAt = utils.TimePtr(*s.ActivatedAt)
	}
	return c
}
