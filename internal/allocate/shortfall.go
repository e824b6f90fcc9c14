package allocate

import "github.com/sells-group/census-disagg/internal/model"

// Accumulate folds cell-scoped shortfall tallies into total by per-rule
// addition. It is pure, and since addition commutes the fold order does not
// matter.
func Accumulate(total model.Tally, cells ...model.Tally) model.Tally {
	out := total.Merge(nil)
	for _, c := range cells {
		out = out.Merge(c)
	}
	return out
}
