package controllers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"safewatch/database"
	"safewatch/models"
	"safewatch/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

// AlertStatusCounter counts durably stored alert tasks by status.
type AlertStatusCounter interface {
	CountByStatus(ctx context.Context, status models.AlertStatus) (int64, error)
}

type HealthController struct {
	redis     *redis.Client
	zones     *services.ZoneService
	alerts    AlertStatusCounter
	startTime time.Time
}

func NewHealthController(redisClient *redis.Client, zones *services.ZoneService, alerts AlertStatusCounter) *HealthController {
	return &HealthController{
		redis:     redisClient,
		zones:     zones,
		alerts:    alerts,
		startTime: time.Now(),
	}
}

// HealthCheck reports degraded, not down, when a backing store is
// unreachable: alerts keep queueing in memory and zones stay loaded.
func (hc *HealthController) HealthCheck(c *gin.Context) {
	mongoUp, redisUp := true, true
	failedAlerts := "unknown"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		mongoUp = database.IsConnected()
		return nil
	})
	if hc.redis != nil {
		g.Go(func() error {
			redisUp = hc.redis.Ping(ctx).Err() == nil
			return nil
		})
	}
	if hc.alerts != nil {
		g.Go(func() error {
			if n, err := hc.alerts.CountByStatus(ctx, models.AlertStatusFailedPermanent); err == nil {
				failedAlerts = strconv.FormatInt(n, 10)
			}
			return nil
		})
	}
	_ = g.Wait()

	checks := map[string]string{
		"mongodb": upOrDown(mongoUp),
		"redis":   upOrDown(redisUp),
		// stored alerts that exhausted their retries and wait on the user
		"alertsFailedPermanent": failedAlerts,
	}
	status := "healthy"
	if !mongoUp || !redisUp {
		status = "degraded"
	}

	switch {
	case len(hc.zones.Snapshot()) == 0:
		checks["zones"] = "empty"
	case hc.zones.FromCache():
		checks["zones"] = "cached"
	default:
		checks["zones"] = "loaded"
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  checks,
		Version:   version,
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
	})
}

func upOrDown(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
