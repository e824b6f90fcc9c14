package spatial

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/sells-group/census-disagg/internal/model"
)

// Index answers coarse bounding-box queries over an indexed building slice.
// Candidates may over-select; callers apply the exact test themselves.
type Index interface {
	// Candidates returns positions into the indexed slice whose points lie
	// in the query envelope, in ascending order.
	Candidates(minXY, maxXY [2]float64) []int
	Len() int
}

// RTree is an Index backed by an R-tree over building centroids.
type RTree struct {
	tree rtree.RTreeG[int]
}

// NewRTree indexes the centroid of every building that has one. Containment
// is decided by the centroid alone, so the footprint envelope would only
// widen the candidate set. The stored value is the building's position in
// buildings.
func NewRTree(buildings []*model.Building) *RTree {
	t := &RTree{}
	for i, b := range buildings {
		if b == nil || len(b.Centroid) < 2 {
			continue
		}
		p := [2]float64{b.Centroid.X(), b.Centroid.Y()}
		t.tree.Insert(p, p, i)
	}
	return t
}

// Candidates implements Index. Results are sorted so pool order follows
// input order regardless of tree layout.
func (t *RTree) Candidates(minXY, maxXY [2]float64) []int {
	var out []int
	t.tree.Search(minXY, maxXY, func(_, _ [2]float64, i int) bool {
		out = append(out, i)
		return true
	})
	sort.Ints(out)
	return out
}

// Len implements Index.
func (t *RTree) Len() int {
	return t.tree.Len()
}
