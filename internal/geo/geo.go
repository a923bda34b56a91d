// Package geo holds the planar geometry used for safe-spot ranking.
//
// Distances are computed directly on latitude/longitude degrees and ignore
// earth curvature. That is only meaningful over small areas such as a city.
package geo

import (
	"math"
	"sort"

	"github.com/safezone/server/internal/model"
)

// Point is a coordinate pair in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FromLocation converts a stored location into a Point
func FromLocation(l model.Location) Point {
	return Point{Lat: l.Lat, Lng: l.Lng}
}

// Location converts the point into the stored representation
func (p Point) Location() model.Location {
	return model.Location{Lat: p.Lat, Lng: p.Lng}
}

// Valid reports whether both coordinates are finite numbers
func (p Point) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lng)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// PlanarDistance returns sqrt((a.lat-b.lat)^2 + (a.lng-b.lng)^2)
func PlanarDistance(a, b Point) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lng-b.Lng)
}

// Nearest returns at most limit items ordered by ascending planar distance
// from origin. Items at equal distance keep their input order.
func Nearest[T any](items []T, origin Point, pointOf func(T) Point, limit int) []T {
	if limit <= 0 || len(items) == 0 {
		return []T{}
	}

	type ranked struct {
		item     T
		distance float64
	}
	withDistance := make([]ranked, len(items))
	for i, item := range items {
		withDistance[i] = ranked{item: item, distance: PlanarDistance(pointOf(item), origin)}
	}

	sort.SliceStable(withDistance, func(i, j int) bool {
		return withDistance[i].distance < withDistance[j].distance
	})

	if limit > len(withDistance) {
		limit = len(withDistance)
	}
	out := make([]T, limit)
	for i := 0; i < limit; i++ {
		out[i] = withDistance[i].item
	}
	return out
}
