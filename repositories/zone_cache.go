package repositories

import (
	"context"
	"encoding/json"
	"time"

	"safewatch/models"

	"github.com/go-redis/redis/v8"
)

const zoneCacheKey = "safewatch:zones:snapshot"

// ZoneCache keeps the last good zone list in redis so a restart without
// network still has zones to classify against.
type ZoneCache struct {
	client *redis.Client
	key    string
}

func NewZoneCache(client *redis.Client) *ZoneCache {
	return &ZoneCache{
		client: client,
		key:    zoneCacheKey,
	}
}

func (zc *ZoneCache) SaveZones(ctx context.Context, zones []models.SafetyZone, ttl time.Duration) error {
	data, err := json.Marshal(zones)
	if err != nil {
		return err
	}
	return zc.client.Set(ctx, zc.key, data, ttl).Err()
}

func (zc *ZoneCache) LoadZones(ctx context.Context) ([]models.SafetyZone, error) {
	data, err := zc.client.Get(ctx, zc.key).Bytes()
	if err != nil {
		return nil, err
	}

	var zones []models.SafetyZone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}
