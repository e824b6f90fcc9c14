package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaError(t *testing.T) {
	inner := errors.New("missing value")
	err := NewSchemaError("grid.shp", 4, "grid_id", inner)

	assert.Equal(t, `schema: grid.shp: record 5: field "grid_id": missing value`, err.Error())
	assert.ErrorIs(t, err, inner)

	first := NewSchemaError("building_type_dict.csv", 0, "min_floors", errors.New("bad"))
	assert.Contains(t, first.Error(), "record 1:")

	header := NewSchemaError("grid.shp", -1, "count_build_siz", errors.New("column not found"))
	assert.Equal(t, `schema: grid.shp: field "count_build_siz": column not found`, header.Error())
}

func TestGeometryError(t *testing.T) {
	err := NewGeometryError("cell", "c1", errors.New("ring is not closed"))
	assert.Equal(t, "geometry: cell c1: ring is not closed", err.Error())
}

func TestRuleConfigError(t *testing.T) {
	assert.Equal(t, "rules: rule table is empty", NewRuleConfigError("", errors.New("rule table is empty")).Error())
	assert.Equal(t, "rules: siz_1: bad", NewRuleConfigError("siz_1", errors.New("bad")).Error())
}

func TestErrorKinds_Wrapped(t *testing.T) {
	schema := fmt.Errorf("load cells: %w", NewSchemaError("a", 0, "f", errors.New("x")))
	geometry := fmt.Errorf("pool: %w", NewGeometryError("cell", "c", errors.New("x")))
	rules := fmt.Errorf("load rules: %w", NewRuleConfigError("r", errors.New("x")))

	assert.True(t, IsSchemaError(schema))
	assert.False(t, IsSchemaError(geometry))
	assert.True(t, IsGeometryError(geometry))
	assert.False(t, IsGeometryError(rules))
	assert.True(t, IsRuleConfigError(rules))
	assert.False(t, IsRuleConfigError(schema))
	assert.False(t, IsSchemaError(nil))
}
