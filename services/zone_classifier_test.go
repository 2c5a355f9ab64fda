package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewatch/models"
)

// classify prepares zones on the fly, the way a zone snapshot would.
func classify(location models.Coordinate, zones []models.SafetyZone) models.SafetyAssessment {
	prepared, skipped := PrepareZones(zones)
	assessment := NewZoneClassifier().Classify(location, prepared)
	assessment.SkippedZones = skipped
	return assessment
}

func TestClassify_InsideSafeZone(t *testing.T) {
	zones := []models.SafetyZone{
		rect("z1", models.SafetyLevelSafe, 28.610, 77.205, 28.618, 77.213),
	}

	result := classify(models.Coordinate{Latitude: 28.614, Longitude: 77.209}, zones)

	assert.Equal(t, models.SafetyLevelSafe, result.SafetyLevel)
	require.NotNil(t, result.MatchedZone)
	assert.Equal(t, "z1", result.MatchedZone.ID)
}

func TestClassify_NoMatchIsSafe(t *testing.T) {
	zones := []models.SafetyZone{
		rect("r1", models.SafetyLevelRestricted, 10, 10, 11, 11),
	}

	result := classify(models.Coordinate{Latitude: 50, Longitude: 50}, zones)

	assert.Equal(t, models.SafetyLevelSafe, result.SafetyLevel)
	assert.Nil(t, result.MatchedZone)
	assert.Empty(t, result.SkippedZones)

	empty := classify(models.Coordinate{Latitude: 50, Longitude: 50}, nil)
	assert.Equal(t, models.SafetyLevelSafe, empty.SafetyLevel)
}

func TestClassify_MostRestrictiveWinsRegardlessOfOrder(t *testing.T) {
	safe := rect("safe", models.SafetyLevelSafe, 0, 0, 10, 10)
	restricted := rect("restricted", models.SafetyLevelRestricted, 4, 4, 6, 6)
	caution := rect("caution", models.SafetyLevelCaution, 3, 3, 7, 7)
	point := models.Coordinate{Latitude: 5, Longitude: 5}

	orders := [][]models.SafetyZone{
		{safe, restricted, caution},
		{restricted, safe, caution},
		{caution, safe, restricted},
	}
	for _, zones := range orders {
		result := classify(point, zones)
		assert.Equal(t, models.SafetyLevelRestricted, result.SafetyLevel)
		assert.Equal(t, "restricted", result.MatchedZone.ID)
	}
}

func TestClassify_SameLevelTieBreak(t *testing.T) {
	// The point sits nearer the centroid of "near".
	near := rect("near", models.SafetyLevelCaution, 0, 0, 2, 2)
	far := rect("far", models.SafetyLevelCaution, 0, 0, 10, 10)
	point := models.Coordinate{Latitude: 1.2, Longitude: 1.2}

	result := classify(point, []models.SafetyZone{far, near})
	assert.Equal(t, "near", result.MatchedZone.ID)

	// Identical geometry falls back to the smaller ID.
	b := rect("b", models.SafetyLevelCaution, 0, 0, 2, 2)
	a := rect("a", models.SafetyLevelCaution, 0, 0, 2, 2)
	result = classify(point, []models.SafetyZone{b, a})
	assert.Equal(t, "a", result.MatchedZone.ID)
}

func TestClassify_SkipsMalformedZones(t *testing.T) {
	degenerate := models.SafetyZone{
		ID:          "line",
		SafetyLevel: models.SafetyLevelRestricted,
		Boundary: []models.Coordinate{
			{Latitude: 0, Longitude: 0},
			{Latitude: 10, Longitude: 10},
		},
	}
	unknown := rect("unknown", models.SafetyLevel("dangerous"), 0, 0, 10, 10)
	caution := rect("caution", models.SafetyLevelCaution, 0, 0, 10, 10)

	result := classify(
		models.Coordinate{Latitude: 5, Longitude: 5},
		[]models.SafetyZone{degenerate, unknown, caution},
	)

	assert.Equal(t, models.SafetyLevelCaution, result.SafetyLevel)
	assert.ElementsMatch(t, []string{"line", "unknown"}, result.SkippedZones)
}

func TestPrepareZones_KeepsOrderAndReusesPolygons(t *testing.T) {
	zones := []models.SafetyZone{
		rect("park", models.SafetyLevelSafe, 0, 0, 10, 10),
		rect("bogus", models.SafetyLevel("purple"), 0, 0, 10, 10),
		rect("yard", models.SafetyLevelRestricted, 5, 5, 8, 8),
	}
	prepared, skipped := PrepareZones(zones)
	require.Len(t, prepared, 2)
	assert.Equal(t, "park", prepared[0].Zone.ID)
	assert.Equal(t, "yard", prepared[1].Zone.ID)
	assert.Equal(t, []string{"bogus"}, skipped)

	classifier := NewZoneClassifier()
	inside := classifier.Classify(models.Coordinate{Latitude: 7, Longitude: 7}, prepared)
	assert.Equal(t, models.SafetyLevelRestricted, inside.SafetyLevel)

	// Same prepared slice, many points, no rebuild between them.
	polygon := prepared[1].polygon
	outside := classifier.Classify(models.Coordinate{Latitude: 1, Longitude: 1}, prepared)
	assert.Equal(t, "park", outside.MatchedZone.ID)
	assert.Same(t, polygon, prepared[1].polygon)
}
