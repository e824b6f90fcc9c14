package model

import "github.com/twpayne/go-geom"

// Building is an individual footprint and the unit of final classification.
type Building struct {
	ID         string
	Geom       *geom.MultiPolygon
	FloorCount int
	LivingArea float64
	Detached   bool

	// Centroid is the representative point used for cell containment. It is
	// derived from Geom when the building is indexed.
	Centroid geom.Coord

	// AssignedType is the rule name given to the building by the last run,
	// empty when the building was left unclassified.
	AssignedType string
}
