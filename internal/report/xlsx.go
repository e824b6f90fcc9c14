package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet names of the diagnostics workbook.
const (
	SheetShortfall = "shortfall"
	SheetCells     = "cells"
	SheetSkipped   = "skipped"
)

// WriteXLSX saves the report as a workbook with one sheet each for the rule
// shortfall, the cell summaries and the skipped inputs.
func (r *Report) WriteXLSX(path string) error {
	f := xlsx.NewFile()

	shortfall, err := f.AddSheet(SheetShortfall)
	if err != nil {
		return eris.Wrap(err, "report: add shortfall sheet")
	}
	addRow(shortfall, "position", "rule", "expected", "by_rule", "by_residual", "unresolved")
	for _, row := range r.Rules {
		addRow(shortfall, row.Position, row.Rule, row.Expected, row.ByRule, row.ByResidual, row.Unresolved)
	}
	t := r.Totals()
	addRow(shortfall, "", t.Rule, t.Expected, t.ByRule, t.ByResidual, t.Unresolved)

	cells, err := f.AddSheet(SheetCells)
	if err != nil {
		return eris.Wrap(err, "report: add cells sheet")
	}
	addRow(cells, "cell_id", "total", "expected", "pool", "assigned", "unresolved", "underfilled", "rule_sum_mismatch")
	mismatched := make(map[string]bool, len(r.Mismatches))
	for _, m := range r.Mismatches {
		mismatched[m.CellID] = true
	}
	for _, c := range r.Cells {
		addRow(cells, c.CellID, c.Total, c.Expected, c.PoolSize, c.Assigned, c.Unresolved, c.Underfilled, mismatched[c.CellID])
	}

	skipped, err := f.AddSheet(SheetSkipped)
	if err != nil {
		return eris.Wrap(err, "report: add skipped sheet")
	}
	addRow(skipped, "kind", "id", "reason")
	for _, s := range r.Skipped {
		addRow(skipped, s.Kind, s.ID, s.Reason)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch x := v.(type) {
		case int:
			cell.SetInt(x)
		case bool:
			cell.SetString(strconv.FormatBool(x))
		case string:
			cell.SetString(x)
		}
	}
}
