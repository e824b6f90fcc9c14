package allocate

import (
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/census-disagg/internal/model"
)

func TestLessID(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"9", "10", true},
		{"10", "9", false},
		{"10", "a", true},
		{"a", "10", false},
		{"a", "b", true},
		{"007", "7", true},
		{"7", "007", false},
		{"-1", "0", true},
		{"x", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+"<"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, lessID(tt.a, tt.b))
		})
	}
}

func TestLessID_SortsMixedIdentifiers(t *testing.T) {
	ids := []string{"b", "100", "DEBY_12", "2", "a", "10"}
	sort.SliceStable(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	assert.Equal(t, []string{"2", "10", "100", "DEBY_12", "a", "b"}, ids)
}

func TestNewSelector(t *testing.T) {
	for _, order := range []SurplusOrder{"", OrderID, OrderInput, OrderRandom} {
		sel, err := NewSelector(order, 1)
		require.NoError(t, err, order)
		assert.NotNil(t, sel)
	}

	_, err := NewSelector("largest", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown surplus order")
}

func TestSelectors(t *testing.T) {
	matches := []*model.Building{
		bld("30", 1, 100, true),
		bld("4", 1, 100, true),
		bld("12", 1, 100, true),
		bld("7", 1, 100, true),
	}

	tests := []struct {
		order      SurplusOrder
		wantPicked []string
		wantRest   []string
	}{
		{OrderID, []string{"4", "7"}, []string{"30", "12"}},
		{OrderInput, []string{"30", "4"}, []string{"12", "7"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			sel, err := NewSelector(tt.order, 0)
			require.NoError(t, err)

			picked, rest := sel("c", 0, matches, 2)
			assert.Equal(t, tt.wantPicked, buildingIDs(picked))
			assert.Equal(t, tt.wantRest, buildingIDs(rest))
		})
	}
}

func TestSelectRandom_Repeatable(t *testing.T) {
	matches := make([]*model.Building, 20)
	for i := range matches {
		matches[i] = bld(strconv.Itoa(i), 1, 100, true)
	}

	sel, err := NewSelector(OrderRandom, 99)
	require.NoError(t, err)

	picked1, rest1 := sel("cell-1", 2, matches, 7)
	picked2, rest2 := sel("cell-1", 2, matches, 7)

	assert.Len(t, picked1, 7)
	assert.Len(t, rest1, 13)
	assert.Equal(t, buildingIDs(picked1), buildingIDs(picked2))
	assert.Equal(t, buildingIDs(rest1), buildingIDs(rest2))

	// Picked and rest partition the matches and keep pool order.
	all := append(buildingIDs(picked1), buildingIDs(rest1)...)
	assert.ElementsMatch(t, buildingIDs(matches), all)
	assert.True(t, sort.SliceIsSorted(picked1, func(i, j int) bool {
		return lessID(picked1[i].ID, picked1[j].ID)
	}))
}

func TestSelectRandom_IndependentOfCallOrder(t *testing.T) {
	matches := make([]*model.Building, 10)
	for i := range matches {
		matches[i] = bld(strconv.Itoa(i), 1, 100, true)
	}
	sel, err := NewSelector(OrderRandom, 5)
	require.NoError(t, err)

	first, _ := sel("a", 0, matches, 3)
	_, _ = sel("b", 1, matches, 4)
	_, _ = sel("c", 0, matches, 5)
	again, _ := sel("a", 0, matches, 3)

	assert.Equal(t, buildingIDs(first), buildingIDs(again))
}
