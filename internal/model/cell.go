package model

import "github.com/twpayne/go-geom"

// Cell is one census aggregation unit (a 100m grid square) with the
// building counts the census reports for it.
type Cell struct {
	ID   string
	Geom *geom.MultiPolygon

	// Expected holds the reported count per rule, indexed by RuleSet position.
	Expected []int

	// Total is the census all-sizes building count (count_build_siz). It is
	// used for cross-checking only.
	Total int

	// Subtotal is the census apartment count (count_apart). Cross-check only.
	Subtotal int
}

// ExpectedFor returns the reported count for the rule at position i.
func (c *Cell) ExpectedFor(i int) int {
	if i < 0 || i >= len(c.Expected) {
		return 0
	}
	return c.Expected[i]
}

// ExpectedSum returns the sum of the per-rule reported counts.
func (c *Cell) ExpectedSum() int {
	var sum int
	for _, n := range c.Expected {
		sum += n
	}
	return sum
}
