package utils

import (
	"errors"
	"math"

	"safewatch/models"

	"github.com/twpayne/go-geom"
)

const (
	EarthRadiusKm = 6371.0
	EarthRadiusM  = 6371000.0
	DegToRad      = math.Pi / 180.0
	RadToDeg      = 180.0 / math.Pi
)

var (
	ErrTooFewVertices    = errors.New("polygon needs at least 3 distinct vertices")
	ErrInvalidVertex     = errors.New("polygon vertex out of range")
	ErrDegeneratePolygon = errors.New("polygon has zero area")
)

// CalculateDistance calculates the distance between two coordinates using the Haversine formula
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lon1Rad := lon1 * DegToRad
	lat2Rad := lat2 * DegToRad
	lon2Rad := lon2 * DegToRad

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// HaversineDistance returns the great-circle distance between a and b in meters.
func HaversineDistance(a, b models.Coordinate) float64 {
	return CalculateDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ZonePolygon is a zone boundary prepared for repeated containment checks.
// Longitude and latitude are treated as planar x/y, which holds at city scale
// but not near the poles or across the antimeridian.
type ZonePolygon struct {
	poly   *geom.Polygon
	bounds *geom.Bounds
	flat   []float64
}

// NewZonePolygon validates a boundary and builds its planar ring. A repeated
// closing vertex is accepted and dropped.
func NewZonePolygon(boundary []models.Coordinate) (*ZonePolygon, error) {
	vertices := openRing(boundary)
	if len(vertices) < 3 {
		return nil, ErrTooFewVertices
	}

	coords := make([]geom.Coord, 0, len(vertices))
	for _, v := range vertices {
		if !IsValidCoordinate(v.Latitude, v.Longitude) {
			return nil, ErrInvalidVertex
		}
		coords = append(coords, geom.Coord{v.Longitude, v.Latitude})
	}

	if shoelaceArea(coords) == 0 {
		return nil, ErrDegeneratePolygon
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, err
	}

	return &ZonePolygon{
		poly:   poly,
		bounds: poly.Bounds(),
		flat:   poly.FlatCoords(),
	}, nil
}

// Contains runs an even-odd ray cast after a bounding box pre-check. Points
// exactly on an edge get a fixed answer for a given polygon.
func (zp *ZonePolygon) Contains(point models.Coordinate) bool {
	x, y := point.Longitude, point.Latitude
	if !zp.bounds.OverlapsPoint(geom.XY, geom.Coord{x, y}) {
		return false
	}

	n := len(zp.flat) / 2
	inside := false

	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := zp.flat[2*i], zp.flat[2*i+1]
		xj, yj := zp.flat[2*j], zp.flat[2*j+1]

		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}

	return inside
}

// Centroid is the mean of the boundary vertices.
func (zp *ZonePolygon) Centroid() models.Coordinate {
	n := len(zp.flat) / 2
	var latSum, lonSum float64
	for i := 0; i < n; i++ {
		lonSum += zp.flat[2*i]
		latSum += zp.flat[2*i+1]
	}
	return models.Coordinate{
		Latitude:  latSum / float64(n),
		Longitude: lonSum / float64(n),
	}
}

func openRing(polygon []models.Coordinate) []models.Coordinate {
	n := len(polygon)
	if n > 1 && polygon[0].Latitude == polygon[n-1].Latitude && polygon[0].Longitude == polygon[n-1].Longitude {
		return polygon[:n-1]
	}
	return polygon
}

func shoelaceArea(coords []geom.Coord) float64 {
	var area float64
	n := len(coords)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += coords[i][0] * coords[j][1]
		area -= coords[j][0] * coords[i][1]
	}

	return math.Abs(area) / 2.0
}
