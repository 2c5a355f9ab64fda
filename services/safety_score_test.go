package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"safewatch/models"
)

func scoreAt(level models.SafetyLevel, hour int, accuracy float64) models.SafetyAssessment {
	scorer := NewSafetyScorer(DefaultScoringPolicy())
	return scorer.Score(
		models.SafetyAssessment{SafetyLevel: level},
		models.ScoreContext{Hour: hour, LocationAccuracyMeters: accuracy},
	)
}

func TestScore_RestrictedAtNight(t *testing.T) {
	result := scoreAt(models.SafetyLevelRestricted, 2, 50)

	assert.Equal(t, 0, result.Score)
	assert.Equal(t, models.RiskLevelCritical, result.RiskLevel)
	assert.Equal(t, []models.SafetyFactor{
		{Label: FactorRestrictedZone, Impact: -40},
		{Label: FactorNightTime, Impact: -15},
	}, result.Factors)
}

func TestScore_SafeDaytimeAccurate(t *testing.T) {
	result := scoreAt(models.SafetyLevelSafe, 12, 5)

	assert.Equal(t, 100, result.Score)
	assert.Equal(t, models.RiskLevelLow, result.RiskLevel)
	assert.Equal(t, []string{FactorSafeZone, FactorDaylightHours, FactorAccurateLocation}, labels(result.Factors))
}

func TestScore_CautionDaytime(t *testing.T) {
	// 40 - 20 + 10
	result := scoreAt(models.SafetyLevelCaution, 10, 30)

	assert.Equal(t, 30, result.Score)
	assert.Equal(t, models.RiskLevelCritical, result.RiskLevel)
}

func TestScore_StaysInRange(t *testing.T) {
	levels := []models.SafetyLevel{models.SafetyLevelSafe, models.SafetyLevelCaution, models.SafetyLevelRestricted}
	for _, level := range levels {
		for hour := 0; hour < 24; hour++ {
			for _, accuracy := range []float64{0, 15, 16, 500} {
				result := scoreAt(level, hour, accuracy)
				assert.GreaterOrEqual(t, result.Score, 0)
				assert.LessOrEqual(t, result.Score, 100)
			}
		}
	}
}

func TestScore_MonotonicInRestriction(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, accuracy := range []float64{5, 100} {
			safe := scoreAt(models.SafetyLevelSafe, hour, accuracy).Score
			caution := scoreAt(models.SafetyLevelCaution, hour, accuracy).Score
			restricted := scoreAt(models.SafetyLevelRestricted, hour, accuracy).Score

			assert.GreaterOrEqual(t, safe, caution)
			assert.GreaterOrEqual(t, caution, restricted)
		}
	}
}

func TestScore_PoorAccuracyNotPenalised(t *testing.T) {
	accurate := scoreAt(models.SafetyLevelCaution, 20, 15)
	poor := scoreAt(models.SafetyLevelCaution, 20, 200)

	assert.Equal(t, accurate.Score-5, poor.Score)
	assert.NotContains(t, labels(poor.Factors), FactorAccurateLocation)
}

func TestRiskLevelForScore(t *testing.T) {
	assert.Equal(t, models.RiskLevelLow, models.RiskLevelForScore(80))
	assert.Equal(t, models.RiskLevelMedium, models.RiskLevelForScore(79))
	assert.Equal(t, models.RiskLevelMedium, models.RiskLevelForScore(60))
	assert.Equal(t, models.RiskLevelHigh, models.RiskLevelForScore(40))
	assert.Equal(t, models.RiskLevelCritical, models.RiskLevelForScore(39))
}

func labels(factors []models.SafetyFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Label)
	}
	return out
}
