package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/census-disagg/internal/allocate"
	"github.com/sells-group/census-disagg/internal/model"
)

func fixture(t *testing.T) (*model.RuleSet, []*model.Cell, *allocate.Result, []*model.GeometryError) {
	t.Helper()
	rs, err := model.NewRuleSet([]model.Rule{
		{Name: "siz_1", MinFloors: 1, MaxLivingArea: 200, Detached: model.EitherForm},
		{Name: "siz_2", MinFloors: 2, MaxLivingArea: 400, Detached: model.EitherForm},
	})
	require.NoError(t, err)

	cells := []*model.Cell{
		{ID: "c1", Expected: []int{2, 1}, Total: 3},
		{ID: "c2", Expected: []int{1, 0}, Total: 2},
		{ID: "c3", Expected: []int{0, 0}, Total: 0},
		{ID: "c4", Expected: []int{5, 0}, Total: 5},
	}
	c1 := &allocate.CellResult{
		CellID:   "c1",
		PoolSize: 2,
		Assignments: []model.Assignment{
			{BuildingID: "b1", Rule: "siz_1", Phase: model.PhaseRule, CellID: "c1"},
			{BuildingID: "b2", Rule: "siz_1", Phase: model.PhaseRule, CellID: "c1"},
		},
		Assigned:  model.Tally{2, 0},
		Shortfall: model.Tally{0, 1},
	}
	c2 := &allocate.CellResult{
		CellID:   "c2",
		PoolSize: 3,
		Assignments: []model.Assignment{
			{BuildingID: "b3", Rule: "siz_1", Phase: model.PhaseResidual, CellID: "c2"},
		},
		Assigned:  model.Tally{1, 0},
		Shortfall: model.Tally{0, 0},
	}
	res := &allocate.Result{
		Cells:       []*allocate.CellResult{c1, c2},
		Assignments: append(append([]model.Assignment{}, c1.Assignments...), c2.Assignments...),
		Skipped:     []allocate.SkippedCell{{CellID: "c3", Err: model.NewGeometryError("cell", "c3", eris.New("ring is not closed"))}},
		Shortfall:   model.Tally{0, 1},
		Pending:     1,
	}
	bErrs := []*model.GeometryError{model.NewGeometryError("building", "b9", eris.New("empty geometry"))}
	return rs, cells, res, bErrs
}

func TestBuild(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)

	r := Build(rs, cells, res, bErrs)

	assert.Equal(t, []RuleRow{
		{Rule: "siz_1", Position: 0, Expected: 3, ByRule: 2, ByResidual: 1, Unresolved: 0},
		{Rule: "siz_2", Position: 1, Expected: 1, ByRule: 0, ByResidual: 0, Unresolved: 1},
	}, r.Rules)
	assert.Equal(t, RuleRow{Rule: "total", Position: -1, Expected: 4, ByRule: 2, ByResidual: 1, Unresolved: 1}, r.Totals())

	require.Len(t, r.Cells, 2)
	assert.Equal(t, CellRow{CellID: "c1", Total: 3, Expected: 3, PoolSize: 2, Assigned: 2, Unresolved: 1, Underfilled: true}, r.Cells[0])
	assert.False(t, r.Cells[1].Underfilled)
	require.Len(t, r.Underfilled(), 1)
	assert.Equal(t, "c1", r.Underfilled()[0].CellID)

	assert.Equal(t, []allocate.TotalMismatch{{CellID: "c2", RuleSum: 1, Total: 2}}, r.Mismatches)
	require.Len(t, r.Skipped, 2)
	assert.Equal(t, "cell", r.Skipped[0].Kind)
	assert.Equal(t, "c3", r.Skipped[0].ID)
	assert.Contains(t, r.Skipped[0].Reason, "ring is not closed")
	assert.Equal(t, "building", r.Skipped[1].Kind)
	assert.Equal(t, 1, r.Pending)
}

func TestBuild_ConservationPerRule(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)

	for _, row := range Build(rs, cells, res, bErrs).Rules {
		assert.Equal(t, row.Expected, row.ByRule+row.ByResidual+row.Unresolved, row.Rule)
	}
}

func TestSummary(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)

	s := Build(rs, cells, res, bErrs).Summary()

	assert.Equal(t, 2, s.Cells)
	assert.Equal(t, 1, s.SkippedCells)
	assert.Equal(t, 1, s.SkippedBuildings)
	assert.Equal(t, 1, s.PendingCells)
	assert.Equal(t, 3, s.Assignments)
	assert.Equal(t, 1, s.Unresolved)
	require.Len(t, s.Rules, 2)
	assert.Equal(t, model.RuleShortfall{Rule: "siz_2", Position: 1, Expected: 1, Unresolved: 1}, s.Rules[1])
}

func TestWriteText(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)

	var buf bytes.Buffer
	require.NoError(t, Build(rs, cells, res, bErrs).WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "RULE")
	assert.Contains(t, out, "siz_1")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "cells allocated: 2")
	assert.Contains(t, out, "cells not started: 1")
	assert.Contains(t, out, "cells skipped: 1")
	assert.Contains(t, out, "buildings skipped: 1")
	assert.Contains(t, out, "cells without enough buildings: 1")
	assert.Contains(t, out, "c2 (1 vs 2)")
}

func TestWriteText_TruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	ids := make([]string, maxListed+5)
	for i := range ids {
		ids[i] = "cell"
	}
	writeList(&buf, "cells skipped", ids)

	assert.Contains(t, buf.String(), "... and 5 more")
	assert.Equal(t, maxListed+2, strings.Count(buf.String(), "\n"))
}

func TestWriteXLSX(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")

	require.NoError(t, Build(rs, cells, res, bErrs).WriteXLSX(path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	shortfall := f.Sheet[SheetShortfall]
	require.NotNil(t, shortfall)
	require.Len(t, shortfall.Rows, 4)
	assert.Equal(t, "rule", shortfall.Rows[0].Cells[1].String())
	assert.Equal(t, "siz_2", shortfall.Rows[2].Cells[1].String())
	assert.Equal(t, "1", shortfall.Rows[2].Cells[5].String())
	assert.Equal(t, "total", shortfall.Rows[3].Cells[1].String())

	cellsSheet := f.Sheet[SheetCells]
	require.NotNil(t, cellsSheet)
	require.Len(t, cellsSheet.Rows, 3)
	assert.Equal(t, "c1", cellsSheet.Rows[1].Cells[0].String())
	assert.Equal(t, "true", cellsSheet.Rows[1].Cells[6].String())
	assert.Equal(t, "true", cellsSheet.Rows[2].Cells[7].String())

	skipped := f.Sheet[SheetSkipped]
	require.NotNil(t, skipped)
	require.Len(t, skipped.Rows, 3)
	assert.Equal(t, "b9", skipped.Rows[2].Cells[1].String())
}

func TestWriteXLSX_BadPath(t *testing.T) {
	rs, cells, res, bErrs := fixture(t)

	err := Build(rs, cells, res, bErrs).WriteXLSX(filepath.Join(t.TempDir(), "missing", "report.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report: save")
}
