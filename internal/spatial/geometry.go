// Package spatial answers which buildings lie in which census cell: geometry
// validation, representative points, a bounding-box index and exact
// containment.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Validate rejects geometries that cannot take part in containment tests:
// nil or empty multipolygons, rings that are short, open or contain
// non-finite coordinates, zero-area polygons and self-intersecting rings.
func Validate(g *geom.MultiPolygon) error {
	if g == nil || g.NumPolygons() == 0 {
		return eris.New("empty geometry")
	}
	for i := 0; i < g.NumPolygons(); i++ {
		p := g.Polygon(i)
		if p.NumLinearRings() == 0 {
			return eris.Errorf("polygon %d has no rings", i)
		}
		for j := 0; j < p.NumLinearRings(); j++ {
			if err := validateRing(g.Layout(), p.LinearRing(j).FlatCoords()); err != nil {
				return eris.Wrapf(err, "polygon %d ring %d", i, j)
			}
		}
		if p.Area() == 0 {
			return eris.Errorf("polygon %d has zero area", i)
		}
	}
	return nil
}

func validateRing(layout geom.Layout, flat []float64) error {
	stride := layout.Stride()
	n := len(flat) / stride
	if n < 4 {
		return eris.Errorf("ring has %d coordinates, need at least 4", n)
	}
	for _, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return eris.New("ring has non-finite coordinate")
		}
	}
	last := (n - 1) * stride
	if flat[0] != flat[last] || flat[1] != flat[last+1] {
		return eris.New("ring is not closed")
	}
	if selfIntersects(ringPoints(flat, stride)) {
		return eris.New("ring is self-intersecting")
	}
	return nil
}

// ringPoints returns the 2D vertices of a closed ring with consecutive
// repeats collapsed. Repeated vertices are legal and would otherwise show
// up as zero-length segments touching their neighbours.
func ringPoints(flat []float64, stride int) [][2]float64 {
	pts := make([][2]float64, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		p := [2]float64{flat[i], flat[i+1]}
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		pts = append(pts, p)
	}
	return pts
}

// selfIntersects tests every pair of non-adjacent segments of a closed ring.
// Rings here are building footprints and grid squares, so the quadratic
// scan is small.
func selfIntersects(pts [][2]float64) bool {
	segs := len(pts) - 1
	for i := 0; i < segs; i++ {
		for j := i + 1; j < segs; j++ {
			// Adjacent segments share an endpoint, including the closing pair.
			if j == i+1 || (i == 0 && j == segs-1) {
				continue
			}
			if segmentsIntersect(pts[i], pts[i+1], pts[j], pts[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsIntersect(p1, p2, q1, q2 [2]float64) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

func orient(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p [2]float64) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// Centroid returns the area-weighted centroid of g, the representative point
// used for containment.
func Centroid(g *geom.MultiPolygon) (geom.Coord, error) {
	if g == nil || g.NumPolygons() == 0 {
		return nil, eris.New("spatial: centroid of empty geometry")
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return nil, eris.Wrap(err, "spatial: centroid")
	}
	if math.IsNaN(c.X()) || math.IsNaN(c.Y()) {
		return nil, eris.New("spatial: centroid is not finite")
	}
	return c, nil
}

// ContainsInterior reports whether p lies strictly inside g: in the interior
// of some polygon's shell and outside every hole of that polygon. Points on
// a boundary are not contained, so a centroid on the edge shared by two
// grid cells belongs to neither.
func ContainsInterior(g *geom.MultiPolygon, p geom.Coord) bool {
	layout := g.Layout()
	for i := 0; i < g.NumPolygons(); i++ {
		poly := g.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if xy.LocatePointInRing(layout, p, poly.LinearRing(0).FlatCoords()) != location.Interior {
			continue
		}
		inHole := false
		for j := 1; j < poly.NumLinearRings(); j++ {
			if xy.LocatePointInRing(layout, p, poly.LinearRing(j).FlatCoords()) != location.Exterior {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// BoundsOf returns the 2D envelope of g as min/max corner pairs.
func BoundsOf(g *geom.MultiPolygon) (minXY, maxXY [2]float64) {
	b := g.Bounds()
	return [2]float64{b.Min(0), b.Min(1)}, [2]float64{b.Max(0), b.Max(1)}
}
