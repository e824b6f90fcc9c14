package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/config"
	"github.com/sells-group/census-disagg/internal/loader"
	"github.com/sells-group/census-disagg/internal/model"
)

// inputs are the three datasets of a run.
type inputs struct {
	rules     *model.RuleSet
	cells     []*model.Cell
	buildings []*model.Building
}

func fieldsFromConfig(in config.InputConfig) loader.Fields {
	f := loader.DefaultFields()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&f.CellID, in.CellIDField)
	set(&f.Total, in.TotalField)
	set(&f.BuildingID, in.BuildingIDField)
	set(&f.Floors, in.FloorsField)
	set(&f.LivingArea, in.LivingAreaField)
	set(&f.Detached, in.DetachedField)
	f.Subtotal = in.SubtotalField
	f.Counts = in.CountFields
	f.Encoding = in.DBFEncoding
	return f
}

// loadInputs loads the rule table first, narrows it to the configured rule
// filter, then reads cells and buildings. Any schema or rule defect aborts
// before allocation starts.
func loadInputs(c *config.Config) (*inputs, error) {
	rules, err := loader.LoadRules(c.Input.Rules)
	if err != nil {
		return nil, eris.Wrap(err, "load rules")
	}
	if len(c.Allocate.RuleFilter) > 0 {
		rules, err = rules.Subset(c.Allocate.RuleFilter)
		if err != nil {
			return nil, eris.Wrap(err, "apply rule filter")
		}
	}

	fields := fieldsFromConfig(c.Input)
	cells, err := loader.LoadCells(c.Input.Cells, rules, fields)
	if err != nil {
		return nil, eris.Wrap(err, "load cells")
	}
	buildings, err := loader.LoadBuildings(c.Input.Buildings, fields)
	if err != nil {
		return nil, eris.Wrap(err, "load buildings")
	}

	zap.L().Info("inputs loaded",
		zap.Int("rules", rules.Len()),
		zap.Int("cells", len(cells)),
		zap.Int("buildings", len(buildings)),
	)
	return &inputs{rules: rules, cells: cells, buildings: buildings}, nil
}
