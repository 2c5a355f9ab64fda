package models

import (
	"time"
)

// ==================== COORDINATE ====================

// Coordinate is a single location fix. Treat it as immutable once created.
type Coordinate struct {
	Latitude  float64   `json:"latitude" bson:"latitude" validate:"latitude_range"`
	Longitude float64   `json:"longitude" bson:"longitude" validate:"longitude_range"`
	Accuracy  float64   `json:"accuracy" bson:"accuracy" validate:"gte=0"` // meters
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// ==================== SAFETY ZONES ====================

type SafetyLevel string

const (
	SafetyLevelSafe       SafetyLevel = "safe"
	SafetyLevelCaution    SafetyLevel = "caution"
	SafetyLevelRestricted SafetyLevel = "restricted"
)

// Rank orders levels from least to most restrictive. Unknown levels rank below safe.
func (l SafetyLevel) Rank() int {
	switch l {
	case SafetyLevelSafe:
		return 1
	case SafetyLevelCaution:
		return 2
	case SafetyLevelRestricted:
		return 3
	default:
		return 0
	}
}

func (l SafetyLevel) IsValid() bool {
	return l.Rank() > 0
}

// MoreRestrictiveThan reports whether l is strictly more restrictive than other.
func (l SafetyLevel) MoreRestrictiveThan(other SafetyLevel) bool {
	return l.Rank() > other.Rank()
}

// SafetyZone is read-only reference data shared across a session.
// Boundary is a closed polygon and must not self-intersect.
type SafetyZone struct {
	ID          string       `json:"id" bson:"_id" validate:"required"`
	Name        string       `json:"name" bson:"name"`
	Boundary    []Coordinate `json:"boundary" bson:"boundary" validate:"min=3,dive"`
	SafetyLevel SafetyLevel  `json:"safetyLevel" bson:"safetyLevel" validate:"safety_level"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// ==================== ASSESSMENT ====================

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// RiskLevelForScore buckets a final score for display. This is the only place
// the bucketing is defined.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelLow
	case score >= 60:
		return RiskLevelMedium
	case score >= 40:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

type SafetyFactor struct {
	Label  string `json:"label"`
	Impact int    `json:"impact"`
}

type SafetyAssessment struct {
	Location     Coordinate     `json:"location"`
	SafetyLevel  SafetyLevel    `json:"safetyLevel"`
	Score        int            `json:"score"`
	RiskLevel    RiskLevel      `json:"riskLevel,omitempty"`
	MatchedZone  *SafetyZone    `json:"matchedZone"`
	Factors      []SafetyFactor `json:"factors"`
	SkippedZones []string       `json:"skippedZones,omitempty"`
}

type ScoreContext struct {
	Hour                   int     `json:"hour" validate:"gte=0,lte=23"`
	LocationAccuracyMeters float64 `json:"locationAccuracyMeters" validate:"gte=0"`
}
