package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyMerge(t *testing.T) {
	a := Tally{1, 0, 2}
	b := Tally{0, 3, 1}

	got := a.Merge(b)
	assert.Equal(t, Tally{1, 3, 3}, got)

	// Inputs untouched.
	assert.Equal(t, Tally{1, 0, 2}, a)
	assert.Equal(t, Tally{0, 3, 1}, b)
}

func TestTallyMerge_UnionOfPositions(t *testing.T) {
	assert.Equal(t, Tally{2, 1, 5}, Tally{2}.Merge(Tally{0, 1, 5}))
	assert.Equal(t, Tally{4, 1}, Tally{4, 1}.Merge(nil))
	assert.Equal(t, Tally{}, Tally(nil).Merge(Tally{}))
}

func TestTallyMerge_CommutativeAssociative(t *testing.T) {
	a, b, c := Tally{1, 2, 3}, Tally{0, 0, 7}, Tally{5}

	assert.Equal(t, a.Merge(b), b.Merge(a))
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
}

func TestTallyTotalAndAt(t *testing.T) {
	tl := Tally{3, 0, 4}
	assert.Equal(t, 7, tl.Total())
	assert.Equal(t, 4, tl.At(2))
	assert.Equal(t, 0, tl.At(3))
	assert.Equal(t, 0, tl.At(-1))
}

func TestTallyByName(t *testing.T) {
	rs, err := NewRuleSet([]Rule{{Name: "x", MaxLivingArea: 1}, {Name: "y", MaxLivingArea: 1}})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"x": 0, "y": 2}, Tally{0, 2}.ByName(rs))
}

func TestCellExpected(t *testing.T) {
	c := &Cell{ID: "100mN1E1", Expected: []int{2, 0, 3}}
	assert.Equal(t, 5, c.ExpectedSum())
	assert.Equal(t, 3, c.ExpectedFor(2))
	assert.Equal(t, 0, c.ExpectedFor(9))
}
