package services

import (
	"safewatch/models"
	"safewatch/utils"
)

// ScoringPolicy holds the tunable constants of the safety score.
type ScoringPolicy struct {
	BaseSafe       int
	BaseCaution    int
	BaseRestricted int

	ZoneSafeImpact       int
	ZoneCautionImpact    int
	ZoneRestrictedImpact int

	DaylightStartHour int
	DaylightEndHour   int
	DaylightImpact    int
	NightImpact       int

	AccurateLocationMeters float64
	AccurateLocationImpact int
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		BaseSafe:       70,
		BaseCaution:    40,
		BaseRestricted: 10,

		ZoneSafeImpact:       20,
		ZoneCautionImpact:    -20,
		ZoneRestrictedImpact: -40,

		DaylightStartHour: 6,
		DaylightEndHour:   18,
		DaylightImpact:    10,
		NightImpact:       -15,

		AccurateLocationMeters: 15,
		AccurateLocationImpact: 5,
	}
}

const (
	FactorSafeZone         = "Safe Zone"
	FactorCautionZone      = "Caution Zone"
	FactorRestrictedZone   = "Restricted Zone"
	FactorDaylightHours    = "Daylight Hours"
	FactorNightTime        = "Night Time"
	FactorAccurateLocation = "Accurate Location"
)

type SafetyScorer struct {
	policy ScoringPolicy
}

func NewSafetyScorer(policy ScoringPolicy) *SafetyScorer {
	return &SafetyScorer{policy: policy}
}

// Score returns a copy of assessment with Score, Factors and RiskLevel
// filled in. Factors are ordered zone, time of day, accuracy.
func (ss *SafetyScorer) Score(assessment models.SafetyAssessment, ctx models.ScoreContext) models.SafetyAssessment {
	p := ss.policy
	scored := assessment

	var base int
	var zoneFactor models.SafetyFactor
	switch assessment.SafetyLevel {
	case models.SafetyLevelRestricted:
		base = p.BaseRestricted
		zoneFactor = models.SafetyFactor{Label: FactorRestrictedZone, Impact: p.ZoneRestrictedImpact}
	case models.SafetyLevelCaution:
		base = p.BaseCaution
		zoneFactor = models.SafetyFactor{Label: FactorCautionZone, Impact: p.ZoneCautionImpact}
	default:
		base = p.BaseSafe
		zoneFactor = models.SafetyFactor{Label: FactorSafeZone, Impact: p.ZoneSafeImpact}
	}

	factors := []models.SafetyFactor{zoneFactor}

	if ctx.Hour >= p.DaylightStartHour && ctx.Hour <= p.DaylightEndHour {
		factors = append(factors, models.SafetyFactor{Label: FactorDaylightHours, Impact: p.DaylightImpact})
	} else {
		factors = append(factors, models.SafetyFactor{Label: FactorNightTime, Impact: p.NightImpact})
	}

	// Poor accuracy is never penalised.
	if ctx.LocationAccuracyMeters <= p.AccurateLocationMeters {
		factors = append(factors, models.SafetyFactor{Label: FactorAccurateLocation, Impact: p.AccurateLocationImpact})
	}

	total := base
	for _, f := range factors {
		total += f.Impact
	}

	scored.Factors = factors
	scored.Score = utils.ClampInt(total, 0, 100)
	scored.RiskLevel = models.RiskLevelForScore(scored.Score)
	return scored
}
