package model

import (
	"errors"
	"fmt"
)

// SchemaError reports a required input attribute or rule field that is
// missing or malformed. It is fatal: the run aborts before any cell is
// processed.
type SchemaError struct {
	Source string // file or layer the record came from
	Record int    // zero-based data record index, -1 for header-level problems
	Field  string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("schema: %s: field %q: %v", e.Source, e.Field, e.Err)
	}
	// Printed one-based: the first feature or the first row below a header
	// is record 1.
	return fmt.Sprintf("schema: %s: record %d: field %q: %v", e.Source, e.Record+1, e.Field, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError builds a SchemaError for a single record field.
func NewSchemaError(source string, record int, field string, err error) *SchemaError {
	return &SchemaError{Source: source, Record: record, Field: field, Err: err}
}

// GeometryError reports an invalid cell or building geometry. The offending
// cell or building is skipped and the run continues.
type GeometryError struct {
	Kind string // "cell" or "building"
	ID   string
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// NewGeometryError builds a GeometryError.
func NewGeometryError(kind, id string, err error) *GeometryError {
	return &GeometryError{Kind: kind, ID: id, Err: err}
}

// RuleConfigError reports a rule table defect (unknown detached constraint,
// inverted bounds, duplicate name). It is fatal at load time.
type RuleConfigError struct {
	Rule string
	Err  error
}

func (e *RuleConfigError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("rules: %v", e.Err)
	}
	return fmt.Sprintf("rules: %s: %v", e.Rule, e.Err)
}

func (e *RuleConfigError) Unwrap() error {
	return e.Err
}

// NewRuleConfigError builds a RuleConfigError.
func NewRuleConfigError(rule string, err error) *RuleConfigError {
	return &RuleConfigError{Rule: rule, Err: err}
}

// IsSchemaError returns true if err (or any error in its chain) is a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsGeometryError returns true if err (or any error in its chain) is a GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}

// IsRuleConfigError returns true if err (or any error in its chain) is a RuleConfigError.
func IsRuleConfigError(err error) bool {
	var re *RuleConfigError
	return errors.As(err, &re)
}
