package model

// Tally counts census-reported buildings that could not be matched to a
// physical building, indexed by RuleSet position. The zero value is an
// empty tally.
type Tally []int

// NewTally returns a zeroed tally sized for n rules.
func NewTally(n int) Tally {
	return make(Tally, n)
}

// Merge returns the per-position sum of t and o. Positions missing from the
// shorter tally count as zero. Neither input is modified.
func (t Tally) Merge(o Tally) Tally {
	n := len(t)
	if len(o) > n {
		n = len(o)
	}
	out := make(Tally, n)
	copy(out, t)
	for i, v := range o {
		out[i] += v
	}
	return out
}

// Total returns the sum across all rules.
func (t Tally) Total() int {
	var sum int
	for _, v := range t {
		sum += v
	}
	return sum
}

// At returns the count at position i, zero when out of range.
func (t Tally) At(i int) int {
	if i < 0 || i >= len(t) {
		return 0
	}
	return t[i]
}

// ByName keys the tally by rule name. Rules with a zero count are included.
func (t Tally) ByName(rs *RuleSet) map[string]int {
	out := make(map[string]int, rs.Len())
	for i, name := range rs.Names() {
		out[name] = t.At(i)
	}
	return out
}
