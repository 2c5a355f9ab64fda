package services

import (
	"safewatch/models"
	"safewatch/utils"

	"github.com/sirupsen/logrus"
)

// ZoneClassifier resolves a location against a set of possibly overlapping
// zones. It holds no state and is safe for concurrent use.
type ZoneClassifier struct{}

func NewZoneClassifier() *ZoneClassifier {
	return &ZoneClassifier{}
}

// PreparedZone is a zone whose boundary polygon and centroid have been built,
// so classification does no per-update geometry setup.
type PreparedZone struct {
	Zone     models.SafetyZone
	polygon  *utils.ZonePolygon
	centroid models.Coordinate
}

// PrepareZones builds the polygon for every usable zone, keeping input order.
// Zones with an unknown level or an unusable boundary are logged and their IDs
// returned in skipped.
func PrepareZones(zones []models.SafetyZone) (prepared []PreparedZone, skipped []string) {
	prepared = make([]PreparedZone, 0, len(zones))
	for _, zone := range zones {
		if !zone.SafetyLevel.IsValid() {
			skipped = append(skipped, skipZone(zone, "unknown safety level"))
			continue
		}

		polygon, err := utils.NewZonePolygon(zone.Boundary)
		if err != nil {
			skipped = append(skipped, skipZone(zone, err.Error()))
			continue
		}

		prepared = append(prepared, PreparedZone{
			Zone:     zone,
			polygon:  polygon,
			centroid: polygon.Centroid(),
		})
	}
	return prepared, skipped
}

type zoneMatch struct {
	zone     models.SafetyZone
	distance float64
}

// Classify returns the assessment for location. With no match the location is
// safe. Overlaps resolve most-restrictive-wins, then by the shortest distance
// to the zone centroid, then by zone ID.
func (zc *ZoneClassifier) Classify(location models.Coordinate, zones []PreparedZone) models.SafetyAssessment {
	assessment := models.SafetyAssessment{
		Location:    location,
		SafetyLevel: models.SafetyLevelSafe,
		Factors:     []models.SafetyFactor{},
	}

	var best *zoneMatch
	for i := range zones {
		pz := &zones[i]
		if !pz.polygon.Contains(location) {
			continue
		}

		candidate := zoneMatch{
			zone:     pz.Zone,
			distance: utils.HaversineDistance(location, pz.centroid),
		}
		if best == nil || outranks(candidate, *best) {
			best = &candidate
		}
	}

	if best != nil {
		matched := best.zone
		assessment.SafetyLevel = matched.SafetyLevel
		assessment.MatchedZone = &matched
	}

	return assessment
}

func skipZone(zone models.SafetyZone, reason string) string {
	logrus.WithFields(logrus.Fields{
		"zoneId": zone.ID,
		"reason": reason,
	}).Warn("Skipping malformed safety zone")
	return zone.ID
}

func outranks(a, b zoneMatch) bool {
	if a.zone.SafetyLevel.Rank() != b.zone.SafetyLevel.Rank() {
		return a.zone.SafetyLevel.Rank() > b.zone.SafetyLevel.Rank()
	}
	if a.distance != b.distance {
		return a.distance < b.distance
	}
	return a.zone.ID < b.zone.ID
}
