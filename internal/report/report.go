// Package report turns an allocation result into run diagnostics: the
// study-area shortfall per rule, per-cell summaries and the list of skipped
// inputs, rendered as text or as an XLSX workbook.
package report

import (
	"github.com/sells-group/census-disagg/internal/allocate"
	"github.com/sells-group/census-disagg/internal/model"
)

// RuleRow is the study-area line of one rule.
type RuleRow struct {
	Rule       string
	Position   int
	Expected   int
	ByRule     int
	ByResidual int
	Unresolved int
}

// CellRow summarizes one completed cell.
type CellRow struct {
	CellID      string
	Total       int
	Expected    int
	PoolSize    int
	Assigned    int
	Unresolved  int
	Underfilled bool
}

// SkippedRow is a cell or building left out of the run.
type SkippedRow struct {
	Kind   string
	ID     string
	Reason string
}

// Report holds the diagnostics of one run.
type Report struct {
	Rules      []RuleRow
	Cells      []CellRow
	Skipped    []SkippedRow
	Mismatches []allocate.TotalMismatch
	Pending    int
}

// Build derives the report of res. cells is the full cell collection the
// run was given; buildingErrs lists buildings rejected before allocation.
func Build(rules *model.RuleSet, cells []*model.Cell, res *allocate.Result, buildingErrs []*model.GeometryError) *Report {
	byID := make(map[string]*model.Cell, len(cells))
	for _, c := range cells {
		byID[c.ID] = c
	}

	r := &Report{
		Rules:      make([]RuleRow, rules.Len()),
		Mismatches: allocate.CrossCheck(cells),
		Pending:    res.Pending,
	}
	for i, name := range rules.Names() {
		r.Rules[i] = RuleRow{Rule: name, Position: i, Unresolved: res.Shortfall.At(i)}
	}

	for _, cr := range res.Cells {
		c, ok := byID[cr.CellID]
		if !ok {
			continue
		}
		for i := range r.Rules {
			r.Rules[i].Expected += c.ExpectedFor(i)
		}
		r.Cells = append(r.Cells, CellRow{
			CellID:      cr.CellID,
			Total:       c.Total,
			Expected:    c.ExpectedSum(),
			PoolSize:    cr.PoolSize,
			Assigned:    len(cr.Assignments),
			Unresolved:  cr.Shortfall.Total(),
			Underfilled: cr.Underfilled(c),
		})
	}

	for _, a := range res.Assignments {
		i, ok := rules.Index(a.Rule)
		if !ok {
			continue
		}
		if a.Phase == model.PhaseResidual {
			r.Rules[i].ByResidual++
		} else {
			r.Rules[i].ByRule++
		}
	}

	for _, s := range res.Skipped {
		r.Skipped = append(r.Skipped, SkippedRow{Kind: "cell", ID: s.CellID, Reason: reason(s.Err)})
	}
	for _, ge := range buildingErrs {
		r.Skipped = append(r.Skipped, SkippedRow{Kind: "building", ID: ge.ID, Reason: reason(ge.Err)})
	}
	return r
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Totals returns the column sums of the rule rows.
func (r *Report) Totals() RuleRow {
	t := RuleRow{Rule: "total", Position: -1}
	for _, row := range r.Rules {
		t.Expected += row.Expected
		t.ByRule += row.ByRule
		t.ByResidual += row.ByResidual
		t.Unresolved += row.Unresolved
	}
	return t
}

// Underfilled returns the cells that reported more buildings than their
// containment pool holds.
func (r *Report) Underfilled() []CellRow {
	var out []CellRow
	for _, c := range r.Cells {
		if c.Underfilled {
			out = append(out, c)
		}
	}
	return out
}

// Summary converts the report into the form persisted with a run.
func (r *Report) Summary() *model.RunSummary {
	t := r.Totals()
	s := &model.RunSummary{
		Cells:        len(r.Cells),
		PendingCells: r.Pending,
		Assignments:  t.ByRule + t.ByResidual,
		Unresolved:   t.Unresolved,
		Rules:        make([]model.RuleShortfall, len(r.Rules)),
	}
	for _, sk := range r.Skipped {
		if sk.Kind == "cell" {
			s.SkippedCells++
		} else {
			s.SkippedBuildings++
		}
	}
	for i, row := range r.Rules {
		s.Rules[i] = model.RuleShortfall{
			Rule:       row.Rule,
			Position:   row.Position,
			Expected:   row.Expected,
			ByRule:     row.ByRule,
			ByResidual: row.ByResidual,
			Unresolved: row.Unresolved,
		}
	}
	return s
}
