package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
)

// RetryPolicy controls how failed deliveries are rescheduled.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	SendTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		SendTimeout: 30 * time.Second,
	}
}

// Backoff is the wait before the next attempt after the given number of
// failed attempts.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	return utils.ExponentialBackoff(attempts, p.BaseDelay, p.MaxDelay)
}

// DispatchQueue is the durable, priority-ordered outbox for alerts. Enqueue
// never fails; delivery happens in Drain passes whenever the sender is
// reachable.
type DispatchQueue struct {
	sender interfaces.AlertSender
	store  interfaces.AlertTaskStore
	clock  utils.Clock
	policy RetryPolicy

	tasks map[string]*models.AlertTask
	mutex sync.Mutex

	listeners     []func(models.QueueStatus)
	listenerMutex sync.RWMutex
}

func NewDispatchQueue(
	sender interfaces.AlertSender,
	store interfaces.AlertTaskStore,
	clock utils.Clock,
	policy RetryPolicy,
) *DispatchQueue {
	if clock == nil {
		clock = utils.SystemClock()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultRetryPolicy().BaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = DefaultRetryPolicy().MaxDelay
	}
	if policy.SendTimeout <= 0 {
		policy.SendTimeout = DefaultRetryPolicy().SendTimeout
	}

	return &DispatchQueue{
		sender: sender,
		store:  store,
		clock:  clock,
		policy: policy,
		tasks:  make(map[string]*models.AlertTask),
	}
}

// OnStatusChange registers fn to receive the queue status after every change.
func (q *DispatchQueue) OnStatusChange(fn func(models.QueueStatus)) {
	q.listenerMutex.Lock()
	q.listeners = append(q.listeners, fn)
	q.listenerMutex.Unlock()
}

// Enqueue takes ownership of task and returns it as stored. A storage failure
// is logged and retried on the next drain; the task is accepted regardless.
func (q *DispatchQueue) Enqueue(ctx context.Context, task models.AlertTask) models.AlertTask {
	now := q.clock.Now()

	if task.ID == "" {
		task.ID = utils.GenerateUUID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.Priority == "" {
		task.Priority = defaultPriority(task.Type)
	}
	if task.Payload == nil {
		task.Payload = make(map[string]interface{})
	}
	task.Status = models.AlertStatusPending
	task.NextRetryAt = nil
	task.UpdatedAt = now

	q.mutex.Lock()
	if existing, ok := q.tasks[task.ID]; ok {
		stored := existing.Clone()
		q.mutex.Unlock()
		logrus.Warnf("Alert task %s already queued, ignoring duplicate", task.ID)
		return stored
	}
	stored := task.Clone()
	q.tasks[task.ID] = &stored
	q.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"taskId":   task.ID,
		"type":     task.Type,
		"priority": task.Priority,
	}).Info("Alert task queued")

	q.persist(ctx, task.ID)
	q.notify()

	return task.Clone()
}

// Drain attempts every eligible pending task once, high priority first and
// oldest first within a priority. Tasks claimed by a concurrent pass are
// skipped. The pass is not cancelled by ctx.
func (q *DispatchQueue) Drain(ctx context.Context) models.DrainResult {
	ctx = context.WithoutCancel(ctx)
	result := models.DrainResult{
		Delivered:       []string{},
		Retrying:        []string{},
		FailedPermanent: []models.AlertTask{},
		StartedAt:       q.clock.Now(),
	}

	batch, dirty := q.claim(result.StartedAt)
	for _, id := range dirty {
		q.persist(ctx, id)
	}

	if len(batch) > 0 {
		q.notify()
	}

	for _, task := range batch {
		result.Attempted++
		err := q.deliver(ctx, task)
		q.complete(ctx, task.ID, err, &result)
	}

	result.FinishedAt = q.clock.Now()

	if result.Attempted > 0 {
		logrus.WithFields(logrus.Fields{
			"attempted": result.Attempted,
			"delivered": len(result.Delivered),
			"retrying":  len(result.Retrying),
			"failed":    len(result.FailedPermanent),
		}).Info("Dispatch queue drained")
	}

	return result
}

// DrainAsync runs Drain on its own goroutine. The channel receives exactly one
// result and is then closed.
func (q *DispatchQueue) DrainAsync(ctx context.Context) <-chan models.DrainResult {
	done := make(chan models.DrainResult, 1)
	go func() {
		defer close(done)
		done <- q.Drain(ctx)
	}()
	return done
}

// Restore reloads tasks from durable storage after a restart. Tasks left
// in_flight by a crash come back as pending.
func (q *DispatchQueue) Restore(ctx context.Context) (int, error) {
	if q.store == nil {
		return 0, nil
	}

	tasks, err := q.store.LoadPending(ctx)
	if err != nil {
		return 0, utils.WrapDatabaseError(err, "load pending alert tasks")
	}

	restored := 0
	q.mutex.Lock()
	for _, task := range tasks {
		switch task.Status {
		case models.AlertStatusDelivered:
			continue
		case models.AlertStatusInFlight, "":
			task.Status = models.AlertStatusPending
		}
		if _, exists := q.tasks[task.ID]; exists {
			continue
		}
		stored := task.Clone()
		q.tasks[task.ID] = &stored
		restored++
	}
	q.mutex.Unlock()

	if restored > 0 {
		logrus.Infof("Restored %d alert tasks from storage", restored)
		q.notify()
	}

	return restored, nil
}

func (q *DispatchQueue) Status() models.QueueStatus {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.statusLocked()
}

func (q *DispatchQueue) Get(taskID string) (models.AlertTask, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	task, ok := q.tasks[taskID]
	if !ok {
		return models.AlertTask{}, false
	}
	return task.Clone(), true
}

// Tasks returns a snapshot of every task the queue still owns, in drain order.
func (q *DispatchQueue) Tasks() []models.AlertTask {
	q.mutex.Lock()
	tasks := make([]models.AlertTask, 0, len(q.tasks))
	for _, task := range q.tasks {
		tasks = append(tasks, task.Clone())
	}
	q.mutex.Unlock()

	sortForDrain(tasks)
	return tasks
}

// Failures lists tasks that exhausted their attempts and need explicit action.
func (q *DispatchQueue) Failures() []models.AlertTask {
	var failed []models.AlertTask
	for _, task := range q.Tasks() {
		if task.Status == models.AlertStatusFailedPermanent {
			failed = append(failed, task)
		}
	}
	return failed
}

// Retry re-queues a permanently failed task as a fresh task with the same
// payload and drops the failed one. Attempt counts never go backwards on a
// task, so the retry gets a new ID.
func (q *DispatchQueue) Retry(ctx context.Context, taskID string) (models.AlertTask, error) {
	failed, err := q.takeFailed(ctx, taskID)
	if err != nil {
		return models.AlertTask{}, err
	}

	retry := models.AlertTask{
		UserID:   failed.UserID,
		Type:     failed.Type,
		Priority: failed.Priority,
		Payload:  failed.Clone().Payload,
	}
	retry.Payload["retryOf"] = failed.ID

	return q.Enqueue(ctx, retry), nil
}

// Discard drops a permanently failed task after the user or an operator has
// acknowledged it.
func (q *DispatchQueue) Discard(ctx context.Context, taskID string) error {
	_, err := q.takeFailed(ctx, taskID)
	return err
}

func (q *DispatchQueue) takeFailed(ctx context.Context, taskID string) (models.AlertTask, error) {
	q.mutex.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mutex.Unlock()
		return models.AlertTask{}, utils.NewNotFoundError("Alert task")
	}
	// delivered tasks leave the map, so a terminal task here has failed for good
	if !task.Status.IsTerminal() {
		q.mutex.Unlock()
		return models.AlertTask{}, utils.NewConflictError("Only permanently failed alerts can be retried or discarded")
	}
	taken := task.Clone()
	delete(q.tasks, taskID)
	q.mutex.Unlock()

	if q.store != nil {
		if err := q.store.Remove(ctx, taskID); err != nil {
			logrus.Errorf("Failed to remove alert task %s from storage: %v", taskID, err)
		}
	}
	q.notify()

	return taken, nil
}

// claim marks eligible tasks in_flight and returns them in drain order, plus
// the IDs of tasks whose last persist failed.
func (q *DispatchQueue) claim(now time.Time) ([]models.AlertTask, []string) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	var batch []models.AlertTask
	var dirty []string
	for id, task := range q.tasks {
		if task.Eligible(now) {
			task.Status = models.AlertStatusInFlight
			task.UpdatedAt = now
			batch = append(batch, task.Clone())
			continue
		}
		if task.Dirty && task.Status != models.AlertStatusInFlight {
			dirty = append(dirty, id)
		}
	}

	sortForDrain(batch)
	return batch, dirty
}

func (q *DispatchQueue) deliver(ctx context.Context, task models.AlertTask) error {
	if q.sender == nil {
		return utils.NewDeliveryError("no alert sender configured", nil)
	}

	sendCtx, cancel := context.WithTimeout(ctx, q.policy.SendTimeout)
	defer cancel()

	return q.sender.Send(sendCtx, task)
}

func (q *DispatchQueue) complete(ctx context.Context, taskID string, sendErr error, result *models.DrainResult) {
	now := q.clock.Now()

	q.mutex.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mutex.Unlock()
		return
	}

	task.Attempts++
	task.UpdatedAt = now

	if sendErr == nil {
		task.Status = models.AlertStatusDelivered
		task.NextRetryAt = nil
		task.LastError = ""
		delete(q.tasks, taskID)
		q.mutex.Unlock()

		result.Delivered = append(result.Delivered, taskID)
		if q.store != nil {
			if err := q.store.Remove(ctx, taskID); err != nil {
				logrus.Errorf("Failed to remove delivered alert task %s from storage: %v", taskID, err)
			}
		}
		q.notify()
		return
	}

	task.LastError = sendErr.Error()
	if task.Attempts < q.policy.MaxAttempts {
		task.Status = models.AlertStatusPending
		task.NextRetryAt = utils.TimePtr(now.Add(q.policy.Backoff(task.Attempts)))
		attempts, next := task.Attempts, *task.NextRetryAt
		q.mutex.Unlock()

		result.Retrying = append(result.Retrying, taskID)
		logrus.WithFields(logrus.Fields{
			"taskId":      taskID,
			"attempts":    attempts,
			"nextRetryAt": next,
		}).Warnf("Alert delivery failed, will retry: %v", sendErr)
	} else {
		task.Status = models.AlertStatusFailedPermanent
		task.NextRetryAt = nil
		failed := task.Clone()
		q.mutex.Unlock()

		result.FailedPermanent = append(result.FailedPermanent, failed)
		logrus.WithFields(logrus.Fields{
			"taskId": taskID,
			"type":   failed.Type,
		}).Error(utils.NewPermanentFailure(taskID, failed.Attempts, sendErr))
	}

	q.persist(ctx, taskID)
	q.notify()
}

func (q *DispatchQueue) persist(ctx context.Context, taskID string) {
	if q.store == nil {
		return
	}

	q.mutex.Lock()
	task, ok := q.tasks[taskID]
	if !ok {
		q.mutex.Unlock()
		return
	}
	snapshot := task.Clone()
	q.mutex.Unlock()

	if snapshot.Status == models.AlertStatusInFlight {
		return
	}

	err := q.store.Persist(ctx, snapshot)

	q.mutex.Lock()
	if task, ok := q.tasks[taskID]; ok {
		task.Dirty = err != nil
	}
	q.mutex.Unlock()

	if err != nil {
		logrus.Warnf("Failed to persist alert task %s, will retry on next drain: %v", taskID, err)
	}
}

func (q *DispatchQueue) notify() {
	q.listenerMutex.RLock()
	listeners := q.listeners
	q.listenerMutex.RUnlock()

	if len(listeners) == 0 {
		return
	}

	status := q.Status()
	for _, fn := range listeners {
		fn(status)
	}
}

func (q *DispatchQueue) statusLocked() models.QueueStatus {
	status := models.QueueStatus{Size: len(q.tasks)}

	for _, task := range q.tasks {
		switch task.Status {
		case models.AlertStatusPending:
			status.Pending++
			if task.NextRetryAt != nil && (status.NextRetryAt == nil || task.NextRetryAt.Before(*status.NextRetryAt)) {
				next := *task.NextRetryAt
				status.NextRetryAt = &next
			}
		case models.AlertStatusInFlight:
			status.InFlight++
		case models.AlertStatusFailedPermanent:
			status.FailedPermanent++
		}
	}

	switch {
	case status.FailedPermanent > 0:
		status.SyncState = models.SyncStateActionRequired
	case status.Pending > 0 || status.InFlight > 0:
		status.SyncState = models.SyncStatePending
	default:
		status.SyncState = models.SyncStateSynced
	}

	return status
}

func sortForDrain(tasks []models.AlertTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func defaultPriority(alertType models.AlertType) models.AlertPriority {
	switch alertType {
	case models.AlertTypeEmergency:
		return models.AlertPriorityHigh
	case models.AlertTypeGeofenceNotice:
		return models.AlertPriorityMedium
	default:
		return models.AlertPriorityLow
	}
}
