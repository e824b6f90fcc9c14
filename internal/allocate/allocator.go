package allocate

import "github.com/sells-group/census-disagg/internal/model"

// SurplusHook receives the buildings that matched a rule but stayed
// unassigned because the cell reported fewer. They remain eligible for
// lower-priority rules. The hook is called from worker goroutines and must be
// safe for concurrent use.
type SurplusHook func(cellID, rule string, discardedIDs []string)

// CellResult is the complete allocation of one cell.
type CellResult struct {
	CellID   string
	PoolSize int

	// Assignments lists rule-phase assignments in rule order followed by
	// residual assignments in assignment order.
	Assignments []model.Assignment

	// Assigned counts assignments per rule across both phases.
	Assigned model.Tally

	// RuleShortfall is the deficit left by rule matching, before residual
	// assignment.
	RuleShortfall model.Tally

	// Shortfall is the deficit still unresolved after residual assignment.
	Shortfall model.Tally

	buildings []*model.Building // parallel to Assignments
}

// Underfilled reports whether the cell's reported building total exceeds
// its containment pool. The total is compared, not the per-rule sum.
func (r *CellResult) Underfilled(cell *model.Cell) bool {
	return cell.Total > r.PoolSize
}

func (r *CellResult) add(bs []*model.Building, rule string, idx int, phase model.Phase) {
	for _, b := range bs {
		r.Assignments = append(r.Assignments, model.Assignment{
			BuildingID: b.ID,
			Rule:       rule,
			Phase:      phase,
			CellID:     r.CellID,
		})
		r.buildings = append(r.buildings, b)
	}
	r.Assigned[idx] += len(bs)
}

// commit writes each assignment onto its building.
func (r *CellResult) commit() {
	for i, b := range r.buildings {
		b.AssignedType = r.Assignments[i].Rule
	}
}

// AllocatorOption configures an Allocator.
type AllocatorOption func(*Allocator)

// WithSelector sets the surplus selection strategy.
func WithSelector(s Selector) AllocatorOption {
	return func(a *Allocator) {
		a.selectSurplus = s
	}
}

// WithSurplusHook registers a hook for surplus discards.
func WithSurplusHook(h SurplusHook) AllocatorOption {
	return func(a *Allocator) {
		a.hook = h
	}
}

// Allocator runs the rule phase and the residual phase for single cells.
// It holds no per-cell state and is safe for concurrent use.
type Allocator struct {
	rules         *model.RuleSet
	selectSurplus Selector
	hook          SurplusHook

	observe func(ruleIdx int, pool []*model.Building) // test hook
}

// NewAllocator creates an Allocator over rules. The default surplus strategy
// is OrderID.
func NewAllocator(rules *model.RuleSet, opts ...AllocatorOption) *Allocator {
	a := &Allocator{rules: rules, selectSurplus: selectByID}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate classifies the buildings of pool against cell's reported counts.
// Rules are evaluated in priority order over a pool that only shrinks:
// a building claimed by one rule is gone for every later rule. The pool
// slice itself is not modified and no building is mutated.
func (a *Allocator) Allocate(cell *model.Cell, pool []*model.Building) *CellResult {
	n := a.rules.Len()
	res := &CellResult{
		CellID:        cell.ID,
		PoolSize:      len(pool),
		Assigned:      model.NewTally(n),
		RuleShortfall: model.NewTally(n),
	}

	remaining := pool
	for i := 0; i < n; i++ {
		if a.observe != nil {
			a.observe(i, remaining)
		}

		rule := a.rules.At(i)
		expected := cell.ExpectedFor(i)
		if expected <= 0 {
			continue
		}

		matches := Match(rule, remaining)
		var picked []*model.Building
		switch {
		case expected == len(matches):
			picked = matches
		case expected < len(matches):
			var rest []*model.Building
			picked, rest = a.selectSurplus(cell.ID, i, matches, expected)
			if a.hook != nil {
				a.hook(cell.ID, rule.Name, buildingIDs(rest))
			}
		default:
			picked = matches
			res.RuleShortfall[i] = expected - len(matches)
		}

		res.add(picked, rule.Name, i, model.PhaseRule)
		remaining = without(remaining, picked)
	}

	res.Shortfall = make(model.Tally, n)
	copy(res.Shortfall, res.RuleShortfall)

	picks, _ := AssignResidual(a.rules, remaining, res.Shortfall)
	for _, p := range picks {
		res.add([]*model.Building{p.Building}, a.rules.At(p.RuleIdx).Name, p.RuleIdx, model.PhaseResidual)
	}

	return res
}

func buildingIDs(bs []*model.Building) []string {
	ids := make([]string, len(bs))
	for i, b := range bs {
		ids[i] = b.ID
	}
	return ids
}
