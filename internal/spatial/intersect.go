package spatial

import (
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/model"
)

// Intersector finds the buildings contained in a census cell. Containment is
// decided by the building centroid alone, not by footprint overlap: a
// building belongs to the cell its centroid falls strictly inside.
type Intersector struct {
	buildings []*model.Building
	index     Index
	skipped   []*model.GeometryError
}

// NewIntersector validates every building, sets its Centroid and indexes the
// valid ones. Buildings with invalid geometry are left out of every pool and
// reported by Skipped. The Intersector is read-only afterwards and safe for
// concurrent Pool calls.
func NewIntersector(buildings []*model.Building) *Intersector {
	valid := make([]*model.Building, 0, len(buildings))
	var skipped []*model.GeometryError

	for _, b := range buildings {
		if b == nil {
			continue
		}
		if err := Validate(b.Geom); err != nil {
			skipped = append(skipped, model.NewGeometryError("building", b.ID, err))
			continue
		}
		c, err := Centroid(b.Geom)
		if err != nil {
			skipped = append(skipped, model.NewGeometryError("building", b.ID, err))
			continue
		}
		b.Centroid = c
		valid = append(valid, b)
	}

	if len(skipped) > 0 {
		zap.L().Warn("spatial: buildings with invalid geometry left out of the index",
			zap.String("component", "spatial.intersector"),
			zap.Int("skipped", len(skipped)),
			zap.Int("indexed", len(valid)),
		)
		for _, ge := range skipped {
			zap.L().Debug("spatial: skipped building", zap.String("building_id", ge.ID), zap.Error(ge.Err))
		}
	}

	return &Intersector{
		buildings: valid,
		index:     NewRTree(valid),
		skipped:   skipped,
	}
}

// Pool returns a new slice of the buildings whose centroid lies strictly
// inside the cell, in input order. An invalid cell geometry yields a
// *model.GeometryError.
func (x *Intersector) Pool(cell *model.Cell) ([]*model.Building, error) {
	if err := Validate(cell.Geom); err != nil {
		return nil, model.NewGeometryError("cell", cell.ID, err)
	}

	minXY, maxXY := BoundsOf(cell.Geom)
	candidates := x.index.Candidates(minXY, maxXY)

	pool := make([]*model.Building, 0, len(candidates))
	for _, i := range candidates {
		b := x.buildings[i]
		if ContainsInterior(cell.Geom, b.Centroid) {
			pool = append(pool, b)
		}
	}
	return pool, nil
}

// Indexed returns the number of buildings available to pools.
func (x *Intersector) Indexed() int {
	return len(x.buildings)
}

// Skipped returns the buildings rejected for invalid geometry.
func (x *Intersector) Skipped() []*model.GeometryError {
	return x.skipped
}
