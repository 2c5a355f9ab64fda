package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// SessionReleaser drops per-user state that has gone quiet.
type SessionReleaser interface {
	ReleaseIdleSessions(maxIdle time.Duration) int
}

// SessionWorker periodically releases idle user sessions so panic state
// machines and geofence monitors do not pile up for users who left.
type SessionWorker struct {
	sessions SessionReleaser
	interval time.Duration
	maxIdle  time.Duration

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionWorker(sessions SessionReleaser, interval, maxIdle time.Duration) *SessionWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if maxIdle <= 0 {
		maxIdle = 30 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SessionWorker{
		sessions: sessions,
		interval: interval,
		maxIdle:  maxIdle,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (sw *SessionWorker) Start() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if sw.isRunning {
		return nil
	}
	sw.isRunning = true

	sw.wg.Add(1)
	go sw.run()

	logrus.Infof("Session Worker started (sweep every %s, idle after %s)", sw.interval, sw.maxIdle)
	return nil
}

func (sw *SessionWorker) Stop() error {
	sw.mutex.Lock()
	defer sw.mutex.Unlock()

	if !sw.isRunning {
		return nil
	}

	sw.cancel()
	sw.isRunning = false
	sw.wg.Wait()

	logrus.Info("Session Worker stopped successfully")
	return nil
}

func (sw *SessionWorker) run() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep()
		case <-sw.ctx.Done():
			return
		}
	}
}

func (sw *SessionWorker) sweep() int {
	released := sw.sessions.ReleaseIdleSessions(sw.maxIdle)
	if released > 0 {
		logrus.Debugf("Released %d idle user sessions", released)
	}
	return released
}

func StartSessionWorker(sessions SessionReleaser, interval, maxIdle time.Duration) *SessionWorker {
	worker := NewSessionWorker(sessions, interval, maxIdle)

	if err := worker.Start(); err != nil {
		logrus.Errorf("Failed to start session worker: %v", err)
		return nil
	}

	return worker
}
