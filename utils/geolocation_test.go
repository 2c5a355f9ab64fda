package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewatch/models"
)

func square(minLat, minLon, maxLat, maxLon float64) []models.Coordinate {
	return []models.Coordinate{
		{Latitude: minLat, Longitude: minLon},
		{Latitude: minLat, Longitude: maxLon},
		{Latitude: maxLat, Longitude: maxLon},
		{Latitude: maxLat, Longitude: minLon},
	}
}

// contains treats a boundary that cannot be built as containing nothing.
func contains(point models.Coordinate, boundary []models.Coordinate) bool {
	poly, err := NewZonePolygon(boundary)
	if err != nil {
		return false
	}
	return poly.Contains(point)
}

func TestZonePolygon_ContainsSquare(t *testing.T) {
	zone := square(28.610, 77.205, 28.618, 77.213)

	assert.True(t, contains(models.Coordinate{Latitude: 28.614, Longitude: 77.209}, zone))
	assert.False(t, contains(models.Coordinate{Latitude: 28.620, Longitude: 77.209}, zone))
	assert.False(t, contains(models.Coordinate{Latitude: 28.614, Longitude: 77.200}, zone))
}

func TestZonePolygon_ContainsConcave(t *testing.T) {
	// U shape opening north; the notch is outside.
	zone := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 3},
		{Latitude: 3, Longitude: 3},
		{Latitude: 3, Longitude: 2},
		{Latitude: 1, Longitude: 2},
		{Latitude: 1, Longitude: 1},
		{Latitude: 3, Longitude: 1},
		{Latitude: 3, Longitude: 0},
	}

	assert.True(t, contains(models.Coordinate{Latitude: 2, Longitude: 0.5}, zone))
	assert.True(t, contains(models.Coordinate{Latitude: 0.5, Longitude: 1.5}, zone))
	assert.False(t, contains(models.Coordinate{Latitude: 2, Longitude: 1.5}, zone))
}

func TestZonePolygon_ContainsTooFewVertices(t *testing.T) {
	line := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
	}
	assert.False(t, contains(models.Coordinate{Latitude: 0.5, Longitude: 0.5}, line))
	assert.False(t, contains(models.Coordinate{}, nil))
}

func TestZonePolygon_ContainsClosedRingMatchesOpenRing(t *testing.T) {
	open := square(10, 10, 20, 20)
	closed := append(append([]models.Coordinate{}, open...), open[0])

	points := []models.Coordinate{
		{Latitude: 15, Longitude: 15},
		{Latitude: 25, Longitude: 15},
		{Latitude: 10.0001, Longitude: 19.9999},
	}
	for _, p := range points {
		assert.Equal(t, contains(p, open), contains(p, closed))
	}
}

func TestZonePolygon_ContainsBoundaryIsDeterministic(t *testing.T) {
	zone := square(0, 0, 1, 1)
	edge := models.Coordinate{Latitude: 0, Longitude: 0.5}

	first := contains(edge, zone)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, contains(edge, zone))
	}
}

func TestNewZonePolygon_Errors(t *testing.T) {
	_, err := NewZonePolygon(square(0, 0, 1, 1)[:2])
	assert.ErrorIs(t, err, ErrTooFewVertices)

	_, err = NewZonePolygon([]models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 91, Longitude: 0},
		{Latitude: 0, Longitude: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidVertex)

	_, err = NewZonePolygon([]models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 1, Longitude: 1},
		{Latitude: 2, Longitude: 2},
	})
	assert.ErrorIs(t, err, ErrDegeneratePolygon)

	_, err = NewZonePolygon([]models.Coordinate{
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 1, Longitude: 0},
		{Latitude: 0, Longitude: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidVertex)
}

func TestZonePolygon_Centroid(t *testing.T) {
	boundary := square(0, 0, 2, 4)
	boundary = append(boundary, boundary[0])

	poly, err := NewZonePolygon(boundary)
	require.NoError(t, err)

	c := poly.Centroid()
	assert.InDelta(t, 1.0, c.Latitude, 1e-9)
	assert.InDelta(t, 2.0, c.Longitude, 1e-9)
}

func TestHaversineDistance(t *testing.T) {
	a := models.Coordinate{Latitude: 0, Longitude: 0}
	b := models.Coordinate{Latitude: 0, Longitude: 1}

	// one degree of longitude at the equator
	assert.InDelta(t, 111195, HaversineDistance(a, b), 10)
	assert.InDelta(t, 0, HaversineDistance(a, a), 1e-9)
	assert.InDelta(t, HaversineDistance(a, b), HaversineDistance(b, a), 1e-9)
}

func TestIsValidCoordinate(t *testing.T) {
	assert.True(t, IsValidCoordinate(90, 180))
	assert.True(t, IsValidCoordinate(-90, -180))
	assert.False(t, IsValidCoordinate(90.1, 0))
	assert.False(t, IsValidCoordinate(0, -180.5))
	assert.False(t, IsValidCoordinate(math.NaN(), 0))
}
