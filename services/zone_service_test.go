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

func newTestZoneService(source *stubZoneSource, cache *memoryZoneCache) *ZoneService {
	return NewZoneService(source, cache, utils.NewValidationService(), utils.NewManualClock(testStart), time.Hour)
}

func TestZoneService_RefreshFiltersAndCaches(t *testing.T) {
	source := &stubZoneSource{zones: []models.SafetyZone{
		rect("ok", models.SafetyLevelSafe, 0, 0, 1, 1),
		rect("bad-level", models.SafetyLevel("purple"), 0, 0, 1, 1),
		{ID: "too-small", SafetyLevel: models.SafetyLevelCaution, Boundary: []models.Coordinate{{Latitude: 0, Longitude: 0}}},
	}}
	cache := &memoryZoneCache{}
	zs := newTestZoneService(source, cache)

	count, err := zs.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, zs.Snapshot(), 1)
	assert.Equal(t, "ok", zs.Snapshot()[0].ID)
	assert.Equal(t, testStart, zs.LastRefresh())

	assert.Equal(t, []string{"bad-level", "too-small"}, zs.Skipped())

	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, time.Hour, cache.ttl)
	assert.Len(t, cache.zones, 1)
}

func TestZoneService_FailureKeepsPreviousSnapshot(t *testing.T) {
	source := &stubZoneSource{zones: []models.SafetyZone{rect("a", models.SafetyLevelSafe, 0, 0, 1, 1)}}
	cache := &memoryZoneCache{}
	zs := newTestZoneService(source, cache)

	_, err := zs.Refresh(context.Background())
	require.NoError(t, err)

	// Poison the cache so a fallback would be visible.
	cache.zones = []models.SafetyZone{rect("stale", models.SafetyLevelCaution, 0, 0, 1, 1)}
	source.set(nil, errors.New("connection refused"))

	count, err := zs.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "a", zs.Snapshot()[0].ID)
}

func TestZoneService_FallsBackToCacheWhenEmpty(t *testing.T) {
	source := &stubZoneSource{err: errors.New("offline")}
	cache := &memoryZoneCache{zones: []models.SafetyZone{rect("cached", models.SafetyLevelRestricted, 0, 0, 1, 1)}}
	zs := newTestZoneService(source, cache)

	count, err := zs.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, zs.Snapshot(), 1)
	assert.Equal(t, "cached", zs.Snapshot()[0].ID)
	assert.True(t, zs.FromCache())
}

func TestZoneService_NoSourceNoCache(t *testing.T) {
	source := &stubZoneSource{err: errors.New("offline")}
	zs := newTestZoneService(source, &memoryZoneCache{})

	count, err := zs.Refresh(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, zs.Snapshot())
}

func TestZoneService_ReplaceSwapsSnapshot(t *testing.T) {
	zs := newTestZoneService(&stubZoneSource{}, &memoryZoneCache{})

	before := zs.Snapshot()
	n := zs.Replace([]models.SafetyZone{
		rect("a", models.SafetyLevelSafe, 0, 0, 1, 1),
		rect("b", models.SafetyLevelCaution, 2, 2, 3, 3),
	})

	assert.Equal(t, 2, n)
	assert.Empty(t, before)
	assert.Len(t, zs.Snapshot(), 2)
}

func TestZoneService_PolygonsBuiltOncePerSnapshot(t *testing.T) {
	zs := newTestZoneService(&stubZoneSource{}, &memoryZoneCache{})
	zs.Replace([]models.SafetyZone{
		rect("a", models.SafetyLevelSafe, 0, 0, 1, 1),
		rect("b", models.SafetyLevelCaution, 2, 2, 3, 3),
	})

	first := zs.Prepared()
	second := zs.Prepared()
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].Zone.ID)
	assert.Equal(t, "b", first[1].Zone.ID)
	for i := range first {
		assert.Same(t, first[i].polygon, second[i].polygon)
	}
	assert.False(t, zs.FromCache())

	zs.Replace([]models.SafetyZone{rect("a", models.SafetyLevelSafe, 0, 0, 1, 1)})
	replaced := zs.Prepared()
	require.Len(t, replaced, 1)
	assert.NotSame(t, first[0].polygon, replaced[0].polygon)
}
