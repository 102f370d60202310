// Package matching keeps geospatial indexes of open bookings and online
// drivers and answers nearby queries for both sides.
package matching

import "rideway/internal/types"

// Candidate is one geo index hit, nearest first.
type Candidate struct {
	ID         types.ID    `json:"id"`
	Position   types.Point `json:"position"`
	DistanceKm float64     `json:"distance_km"`
}

// Defaults when the caller does not constrain the search.
const (
	DefaultRadiusKm = 10.0
	DefaultLimit    = 20
)
