// Package allocate reconciles census cell counts with the buildings inside
// each cell: rule matching in priority order, surplus and deficit resolution,
// residual assignment by living area and study-area shortfall totals.
package allocate

import "github.com/sells-group/census-disagg/internal/model"

// Match returns the buildings in pool that satisfy rule, in pool order. The
// pool is not modified.
func Match(rule model.Rule, pool []*model.Building) []*model.Building {
	var out []*model.Building
	for _, b := range pool {
		if rule.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// without returns pool minus the buildings in taken, preserving order.
func without(pool, taken []*model.Building) []*model.Building {
	if len(taken) == 0 {
		return pool
	}
	drop := make(map[*model.Building]struct{}, len(taken))
	for _, b := range taken {
		drop[b] = struct{}{}
	}
	out := make([]*model.Building, 0, len(pool)-len(taken))
	for _, b := range pool {
		if _, ok := drop[b]; !ok {
			out = append(out, b)
		}
	}
	return out
}
