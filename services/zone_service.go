package services

import (
	"context"
	"sync/atomic"
	"time"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type zoneSnapshot struct {
	zones     []models.SafetyZone
	prepared  []PreparedZone
	skipped   []string
	fetchedAt time.Time
	fromCache bool
}

// ZoneService owns the session's zone list. Readers get the current snapshot
// without locking; a refresh builds a complete replacement before swapping it
// in, so a classification in progress keeps working on the old one.
type ZoneService struct {
	source    interfaces.ZoneSource
	cache     interfaces.ZoneCache
	validator *utils.ValidationService
	clock     utils.Clock
	cacheTTL  time.Duration

	snapshot atomic.Pointer[zoneSnapshot]
	group    singleflight.Group
}

func NewZoneService(
	source interfaces.ZoneSource,
	cache interfaces.ZoneCache,
	validator *utils.ValidationService,
	clock utils.Clock,
	cacheTTL time.Duration,
) *ZoneService {
	if clock == nil {
		clock = utils.SystemClock()
	}
	if validator == nil {
		validator = utils.NewValidationService()
	}

	zs := &ZoneService{
		source:    source,
		cache:     cache,
		validator: validator,
		clock:     clock,
		cacheTTL:  cacheTTL,
	}
	zs.snapshot.Store(&zoneSnapshot{})
	return zs
}

// Snapshot returns the current zones. The slice is shared and must not be
// modified.
func (zs *ZoneService) Snapshot() []models.SafetyZone {
	return zs.snapshot.Load().zones
}

// Prepared returns the current zones with their polygons built once when the
// snapshot was installed. Shared, read-only.
func (zs *ZoneService) Prepared() []PreparedZone {
	return zs.snapshot.Load().prepared
}

// Skipped lists the IDs of zones left out of the current snapshot as
// malformed.
func (zs *ZoneService) Skipped() []string {
	return zs.snapshot.Load().skipped
}

func (zs *ZoneService) LastRefresh() time.Time {
	return zs.snapshot.Load().fetchedAt
}

// FromCache reports whether the current zones came from the local cache
// because the source was unreachable.
func (zs *ZoneService) FromCache() bool {
	return zs.snapshot.Load().fromCache
}

// Replace installs zones directly, after validation.
func (zs *ZoneService) Replace(zones []models.SafetyZone) int {
	valid, skipped := zs.filterValid(zones)
	zs.install(valid, skipped, false)
	return len(valid)
}

// Refresh fetches a new zone list. Concurrent calls share one fetch. When the
// source fails and nothing has been loaded yet, the cached copy is used;
// otherwise the previous snapshot stays in place.
func (zs *ZoneService) Refresh(ctx context.Context) (int, error) {
	v, err, _ := zs.group.Do("refresh", func() (interface{}, error) {
		return zs.refresh(ctx)
	})
	if v == nil {
		return 0, err
	}
	return v.(int), err
}

func (zs *ZoneService) refresh(ctx context.Context) (int, error) {
	zones, err := zs.source.FetchZones(ctx)
	if err != nil {
		logrus.Warnf("Failed to fetch safety zones: %v", err)
		return zs.fallbackToCache(ctx, err)
	}

	valid, skipped := zs.filterValid(zones)
	zs.install(valid, skipped, false)

	if zs.cache != nil {
		if err := zs.cache.SaveZones(ctx, valid, zs.cacheTTL); err != nil {
			logrus.Warnf("Failed to cache safety zones: %v", err)
		}
	}

	logrus.Infof("Loaded %d safety zones (%d skipped)", len(valid), len(zones)-len(valid))
	return len(valid), nil
}

func (zs *ZoneService) fallbackToCache(ctx context.Context, fetchErr error) (int, error) {
	current := zs.snapshot.Load()
	if len(current.zones) > 0 || zs.cache == nil {
		return len(current.zones), fetchErr
	}

	cached, err := zs.cache.LoadZones(ctx)
	if err != nil {
		logrus.Warnf("No cached safety zones available: %v", err)
		return 0, fetchErr
	}

	valid, skipped := zs.filterValid(cached)
	zs.install(valid, skipped, true)

	logrus.Infof("Using %d cached safety zones", len(valid))
	return len(valid), fetchErr
}

func (zs *ZoneService) install(valid []models.SafetyZone, skipped []string, fromCache bool) {
	prepared, unusable := PrepareZones(valid)
	zs.snapshot.Store(&zoneSnapshot{
		zones:     valid,
		prepared:  prepared,
		skipped:   append(skipped, unusable...),
		fetchedAt: zs.clock.Now(),
		fromCache: fromCache,
	})
}

func (zs *ZoneService) filterValid(zones []models.SafetyZone) (valid []models.SafetyZone, skipped []string) {
	valid = make([]models.SafetyZone, 0, len(zones))
	for _, zone := range zones {
		if err := zs.validator.ValidateZone(zone); err != nil {
			logrus.WithField("zoneId", zone.ID).Warnf("Skipping safety zone: %v", err)
			skipped = append(skipped, zone.ID)
			continue
		}
		valid = append(valid, zone)
	}
	return valid, skipped
}
