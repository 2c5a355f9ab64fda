package workers

import (
	"context"
	"sync"
	"time"

	"safewatch/services"

	"github.com/sirupsen/logrus"
)

// ZoneWorker refreshes the zone snapshot periodically. A failed refresh keeps
// the previous snapshot.
type ZoneWorker struct {
	zones    *services.ZoneService
	interval time.Duration
	timeout  time.Duration

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewZoneWorker(zones *services.ZoneService, interval time.Duration) *ZoneWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ZoneWorker{
		zones:    zones,
		interval: interval,
		timeout:  30 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (zw *ZoneWorker) Start() error {
	zw.mutex.Lock()
	defer zw.mutex.Unlock()

	if zw.isRunning {
		return nil
	}
	zw.isRunning = true

	zw.wg.Add(1)
	go zw.run()

	logrus.Infof("Zone Worker started (refresh every %s)", zw.interval)
	return nil
}

func (zw *ZoneWorker) Stop() error {
	zw.mutex.Lock()
	defer zw.mutex.Unlock()

	if !zw.isRunning {
		return nil
	}

	zw.cancel()
	zw.isRunning = false
	zw.wg.Wait()

	logrus.Info("Zone Worker stopped successfully")
	return nil
}

func (zw *ZoneWorker) run() {
	defer zw.wg.Done()

	ticker := time.NewTicker(zw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			zw.refresh()
		case <-zw.ctx.Done():
			return
		}
	}
}

func (zw *ZoneWorker) refresh() {
	ctx, cancel := context.WithTimeout(zw.ctx, zw.timeout)
	defer cancel()

	if _, err := zw.zones.Refresh(ctx); err != nil {
		logrus.Warnf("Zone refresh failed, keeping %d zones: %v", len(zw.zones.Snapshot()), err)
	}
}

func StartZoneWorker(zones *services.ZoneService, interval time.Duration) *ZoneWorker {
	worker := NewZoneWorker(zones, interval)

	if err := worker.Start(); err != nil {
		logrus.Errorf("Failed to start zone worker: %v", err)
		return nil
	}

	return worker
}
