package allocate

import (
	"sort"

	"github.com/sells-group/census-disagg/internal/model"
)

// Pick is one residual assignment.
type Pick struct {
	Building *model.Building
	RuleIdx  int
}

// AssignResidual hands leftover census counts to leftover buildings. Rules
// are visited in priority order, which runs from the smallest expected
// building size to the largest; for each rule with a positive shortfall the
// smallest remaining building by living area is taken until the shortfall
// is zero or the pool is empty. Ties go to the building earlier in pool
// order.
//
// shortfall is decremented in place, so afterwards it holds only counts that
// found no building. Returns the picks in assignment order and the buildings
// still unclassified, in pool order.
func AssignResidual(rules *model.RuleSet, pool []*model.Building, shortfall model.Tally) ([]Pick, []*model.Building) {
	if shortfall.Total() == 0 || len(pool) == 0 {
		return nil, pool
	}

	bySize := make([]*model.Building, len(pool))
	copy(bySize, pool)
	sort.SliceStable(bySize, func(i, j int) bool {
		return bySize[i].LivingArea < bySize[j].LivingArea
	})

	var picks []Pick
	next := 0
	for i := 0; i < rules.Len() && next < len(bySize); i++ {
		for shortfall.At(i) > 0 && next < len(bySize) {
			picks = append(picks, Pick{Building: bySize[next], RuleIdx: i})
			shortfall[i]--
			next++
		}
	}

	return picks, without(pool, bySize[:next])
}
