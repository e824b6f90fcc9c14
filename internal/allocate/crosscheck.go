package allocate

import "github.com/sells-group/census-disagg/internal/model"

// TotalMismatch is a cell whose per-rule counts do not add up to its
// reported all-sizes total.
type TotalMismatch struct {
	CellID  string
	RuleSum int
	Total   int
}

// CrossCheck compares each cell's per-rule counts with its aggregate total.
// Mismatches are reported for review only and never change the allocation.
func CrossCheck(cells []*model.Cell) []TotalMismatch {
	var out []TotalMismatch
	for _, c := range cells {
		if sum := c.ExpectedSum(); sum != c.Total {
			out = append(out, TotalMismatch{CellID: c.ID, RuleSum: sum, Total: c.Total})
		}
	}
	return out
}

// Underfilled returns the IDs of completed cells whose reported total
// exceeds their containment pool, in result order.
func Underfilled(cells []*model.Cell, res *Result) []string {
	byID := make(map[string]*model.Cell, len(cells))
	for _, c := range cells {
		byID[c.ID] = c
	}
	var out []string
	for _, cr := range res.Cells {
		if c, ok := byID[cr.CellID]; ok && cr.Underfilled(c) {
			out = append(out, cr.CellID)
		}
	}
	return out
}
