package services

import (
	"context"
	"sync"

	"safewatch/interfaces"
	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
)

// LocationService remembers each user's last known fix and backs it with the
// location store so it survives a restart.
type LocationService struct {
	store     interfaces.LocationStore
	validator *utils.ValidationService

	latest map[string]models.Coordinate
	mutex  sync.RWMutex
}

func NewLocationService(store interfaces.LocationStore, validator *utils.ValidationService) *LocationService {
	if validator == nil {
		validator = utils.NewValidationService()
	}

	return &LocationService{
		store:     store,
		validator: validator,
		latest:    make(map[string]models.Coordinate),
	}
}

// UpdateLocation records a new fix. A storage failure is logged; the fix is
// still used in memory.
func (ls *LocationService) UpdateLocation(ctx context.Context, userID string, location models.Coordinate) error {
	if err := ls.validator.ValidateCoordinate(location); err != nil {
		return err
	}

	ls.mutex.Lock()
	ls.latest[userID] = location
	ls.mutex.Unlock()

	if ls.store != nil {
		if err := ls.store.SaveLocation(ctx, userID, location); err != nil {
			logrus.Warnf("Failed to save location for user %s: %v", userID, err)
		}
	}

	return nil
}

// GetCurrentLocation returns nil, nil when no fix is known.
func (ls *LocationService) GetCurrentLocation(ctx context.Context, userID string) (*models.Coordinate, error) {
	ls.mutex.RLock()
	location, ok := ls.latest[userID]
	ls.mutex.RUnlock()

	if ok {
		return &location, nil
	}

	if ls.store == nil {
		return nil, nil
	}

	stored, err := ls.store.GetCurrentLocation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		ls.mutex.Lock()
		if _, exists := ls.latest[userID]; !exists {
			ls.latest[userID] = *stored
		}
		ls.mutex.Unlock()
	}

	return stored, nil
}
