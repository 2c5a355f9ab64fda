package workers

import (
	"context"
	"sync"
	"time"

	"safewatch/models"
	"safewatch/services"

	"github.com/sirupsen/logrus"
)

type DispatchWorkerConfig struct {
	PollInterval time.Duration `json:"pollInterval"`
}

type DispatchWorkerStats struct {
	Drains          int64     `json:"drains"`
	Delivered       int64     `json:"delivered"`
	Retried         int64     `json:"retried"`
	FailedPermanent int64     `json:"failedPermanent"`
	LastDrainAt     time.Time `json:"lastDrainAt"`
	StartTime       time.Time `json:"startTime"`
}

// DispatchWorker drains the alert queue on a fixed poll interval and
// whenever it is kicked, which is how retries whose backoff has elapsed and
// freshly queued emergencies get delivered.
type DispatchWorker struct {
	queue  *services.DispatchQueue
	config DispatchWorkerConfig
	kick   chan struct{}

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      DispatchWorkerStats
	statsMutex sync.RWMutex
}

func NewDispatchWorker(queue *services.DispatchQueue, config DispatchWorkerConfig) *DispatchWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DispatchWorker{
		queue:  queue,
		config: config,
		kick:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (dw *DispatchWorker) Start() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.isRunning {
		return nil
	}
	dw.isRunning = true

	dw.statsMutex.Lock()
	dw.stats.StartTime = time.Now()
	dw.statsMutex.Unlock()

	dw.wg.Add(1)
	go dw.run()

	logrus.Infof("Dispatch Worker started (poll every %s)", dw.config.PollInterval)
	return nil
}

// Stop waits for an in-progress drain to finish. A drain is never abandoned
// halfway, so every in-flight task ends up pending, delivered or failed.
func (dw *DispatchWorker) Stop() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if !dw.isRunning {
		return nil
	}

	logrus.Info("Stopping Dispatch Worker...")
	dw.cancel()
	dw.isRunning = false
	dw.wg.Wait()

	logrus.Info("Dispatch Worker stopped successfully")
	return nil
}

// Kick requests a drain as soon as possible. Kicks arriving while one is
// already pending are merged.
func (dw *DispatchWorker) Kick() {
	select {
	case dw.kick <- struct{}{}:
	default:
	}
}

func (dw *DispatchWorker) run() {
	defer dw.wg.Done()

	ticker := time.NewTicker(dw.config.PollInterval)
	defer ticker.Stop()

	dw.drain()

	for {
		select {
		case <-ticker.C:
			dw.drain()
		case <-dw.kick:
			dw.drain()
		case <-dw.ctx.Done():
			return
		}
	}
}

func (dw *DispatchWorker) drain() {
	result := <-dw.queue.DrainAsync(dw.ctx)
	dw.record(result)

	for _, task := range result.FailedPermanent {
		logrus.WithFields(logrus.Fields{
			"taskId":   task.ID,
			"userId":   task.UserID,
			"type":     task.Type,
			"attempts": task.Attempts,
		}).Error("Alert requires user action: delivery failed permanently")
	}
}

func (dw *DispatchWorker) record(result models.DrainResult) {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()

	dw.stats.Drains++
	dw.stats.Delivered += int64(len(result.Delivered))
	dw.stats.Retried += int64(len(result.Retrying))
	dw.stats.FailedPermanent += int64(len(result.FailedPermanent))
	dw.stats.LastDrainAt = result.FinishedAt
}

func (dw *DispatchWorker) GetStats() DispatchWorkerStats {
	dw.statsMutex.RLock()
	defer dw.statsMutex.RUnlock()
	return dw.stats
}

func StartDispatchWorker(queue *services.DispatchQueue, pollInterval time.Duration) *DispatchWorker {
	worker := NewDispatchWorker(queue, DispatchWorkerConfig{PollInterval: pollInterval})

	if err := worker.Start(); err != nil {
		logrus.Errorf("Failed to start dispatch worker: %v", err)
		return nil
	}

	return worker
}
