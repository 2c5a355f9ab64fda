package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"safewatch/models"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// scriptedSender fails the first failures[taskID] sends of each task, or every
// send when alwaysFail is set.
type scriptedSender struct {
	mu         sync.Mutex
	alwaysFail bool
	failures   map[string]int
	sent       []models.AlertTask
	calls      map[string]int
	block      chan struct{}
	entered    chan struct{}
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (s *scriptedSender) Send(ctx context.Context, task models.AlertTask) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[task.ID]++
	if s.alwaysFail || s.calls[task.ID] <= s.failures[task.ID] {
		return errors.New("network unreachable")
	}
	s.sent = append(s.sent, task)
	return nil
}

func (s *scriptedSender) sentIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.sent))
	for _, task := range s.sent {
		ids = append(ids, task.ID)
	}
	return ids
}

func (s *scriptedSender) callCount(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[taskID]
}

type memoryTaskStore struct {
	mu          sync.Mutex
	tasks       map[string]models.AlertTask
	failPersist bool
	persists    int
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[string]models.AlertTask)}
}

func (m *memoryTaskStore) Persist(ctx context.Context, task models.AlertTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.persists++
	if m.failPersist {
		return errors.New("disk full")
	}
	m.tasks[task.ID] = task.Clone()
	return nil
}

func (m *memoryTaskStore) LoadPending(ctx context.Context) ([]models.AlertTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]models.AlertTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		tasks = append(tasks, task.Clone())
	}
	return tasks, nil
}

func (m *memoryTaskStore) Remove(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *memoryTaskStore) get(taskID string) (models.AlertTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	return task, ok
}

type stubLocations struct {
	location *models.Coordinate
	err      error
}

func (s *stubLocations) GetCurrentLocation(ctx context.Context, userID string) (*models.Coordinate, error) {
	return s.location, s.err
}

type stubProfiles struct {
	contacts []models.EmergencyContact
	profile  *models.UserProfile
	err      error
}

func (s *stubProfiles) GetEmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	return s.contacts, s.err
}

func (s *stubProfiles) GetCurrentUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

type recordingQueue struct {
	mu    sync.Mutex
	tasks []models.AlertTask
}

func (r *recordingQueue) Enqueue(ctx context.Context, task models.AlertTask) models.AlertTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = fmt.Sprintf("task-%d", len(r.tasks)+1)
	}
	task.Status = models.AlertStatusPending
	r.tasks = append(r.tasks, task)
	return task
}

func (r *recordingQueue) enqueued() []models.AlertTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AlertTask{}, r.tasks...)
}

func rect(id string, level models.SafetyLevel, minLat, minLon, maxLat, maxLon float64) models.SafetyZone {
	return models.SafetyZone{
		ID:          id,
		Name:        id,
		SafetyLevel: level,
		Boundary: []models.Coordinate{
			{Latitude: minLat, Longitude: minLon},
			{Latitude: minLat, Longitude: maxLon},
			{Latitude: maxLat, Longitude: maxLon},
			{Latitude: maxLat, Longitude: minLon},
		},
	}
}

type staticZones []models.SafetyZone

func (z staticZones) Prepared() []PreparedZone {
	prepared, _ := PrepareZones(z)
	return prepared
}

type stubZoneSource struct {
	mu    sync.Mutex
	zones []models.SafetyZone
	err   error
	calls int
}

func (s *stubZoneSource) FetchZones(ctx context.Context) ([]models.SafetyZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.zones, s.err
}

func (s *stubZoneSource) set(zones []models.SafetyZone, err error) {
	s.mu.Lock()
	s.zones, s.err = zones, err
	s.mu.Unlock()
}

type memoryZoneCache struct {
	zones []models.SafetyZone
	ttl   time.Duration
	saves int
}

func (m *memoryZoneCache) SaveZones(ctx context.Context, zones []models.SafetyZone, ttl time.Duration) error {
	m.zones = append([]models.SafetyZone{}, zones...)
	m.ttl = ttl
	m.saves++
	return nil
}

func (m *memoryZoneCache) LoadZones(ctx context.Context) ([]models.SafetyZone, error) {
	if m.zones == nil {
		return nil, errors.New("cache miss")
	}
	return m.zones, nil
}
