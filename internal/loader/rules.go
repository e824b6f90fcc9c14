package loader

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/census-disagg/internal/model"
)

// ruleColumns lists each rule field with the header names accepted for it.
// The short forms are those of the building type dictionary CSV.
var ruleColumns = []struct {
	field   string
	aliases []string
}{
	{"name", []string{"name", "type"}},
	{"min_floors", []string{"min_floors"}},
	{"min_living_area", []string{"min_living_area", "min_la"}},
	{"max_living_area", []string{"max_living_area", "max_la"}},
	{"detached", []string{"detached", "detached_constraint"}},
}

// LoadRules reads a rule table from CSV, XLSX or YAML. Row (or list) order
// is the priority order. Missing or malformed fields are SchemaErrors; rule
// defects such as inverted bounds or an unknown detached constraint are
// RuleConfigErrors.
func LoadRules(path string) (*model.RuleSet, error) {
	source := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))

	var (
		rules []model.Rule
		err   error
	)
	switch ext {
	case ".csv", ".yaml", ".yml":
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, eris.Wrapf(rerr, "loader: read rules %s", path)
		}
		if ext == ".csv" {
			rules, err = parseRulesCSV(source, bytes.NewReader(data))
		} else {
			rules, err = parseRulesYAML(source, data)
		}
	case ".xlsx":
		rows, rerr := readXLSXRows(path, rulesSheet)
		if rerr != nil {
			return nil, rerr
		}
		rules, err = parseRuleRows(source, rows)
	default:
		return nil, eris.Errorf("loader: unsupported rule table %s (want .csv, .xlsx, .yaml or .yml)", path)
	}
	if err != nil {
		return nil, err
	}
	return model.NewRuleSet(rules)
}

func parseRulesCSV(source string, r io.Reader) ([]model.Rule, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", source)
	}
	return parseRuleRows(source, rows)
}

// parseRuleRows decodes a header row followed by one row per rule.
func parseRuleRows(source string, rows [][]string) ([]model.Rule, error) {
	if len(rows) == 0 {
		return nil, model.NewRuleConfigError("", eris.Errorf("%s: rule table is empty", source))
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	idx := make(map[string]int, len(ruleColumns))
	for _, rc := range ruleColumns {
		idx[rc.field] = -1
		for _, a := range rc.aliases {
			if col, ok := lookup(header, a); ok {
				idx[rc.field] = indexOf(header, col)
				break
			}
		}
		if idx[rc.field] < 0 {
			return nil, model.NewSchemaError(source, -1, rc.field, eris.New("column not found"))
		}
	}

	var rules []model.Rule
	for rec, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		cell := func(field string) string {
			i := idx[field]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		r, err := buildRule(source, rec, cell("name"), cell("min_floors"), cell("min_living_area"), cell("max_living_area"), cell("detached"))
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

type yamlRules struct {
	Rules []yamlRule `yaml:"rules"`
}

// yamlRule keeps every field as text so missing values can be told apart
// from zeros and parsed the same way as CSV cells.
type yamlRule struct {
	Name          string `yaml:"name"`
	MinFloors     string `yaml:"min_floors"`
	MinLivingArea string `yaml:"min_living_area"`
	MaxLivingArea string `yaml:"max_living_area"`
	Detached      string `yaml:"detached"`
}

func parseRulesYAML(source string, data []byte) ([]model.Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc yamlRules
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, model.NewRuleConfigError("", eris.Errorf("%s: rule table is empty", source))
		}
		return nil, model.NewSchemaError(source, -1, "rules", eris.Wrap(err, "decode yaml"))
	}

	rules := make([]model.Rule, 0, len(doc.Rules))
	for i, yr := range doc.Rules {
		r, err := buildRule(source, i, yr.Name, yr.MinFloors, yr.MinLivingArea, yr.MaxLivingArea, yr.Detached)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func buildRule(source string, rec int, name, minFloors, minLA, maxLA, detached string) (model.Rule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Rule{}, model.NewSchemaError(source, rec, "name", eris.New("missing value"))
	}

	floors, err := parseCount(strings.TrimSpace(minFloors))
	if err != nil {
		return model.Rule{}, model.NewSchemaError(source, rec, "min_floors", err)
	}
	lo, err := parseBound(minLA)
	if err != nil {
		return model.Rule{}, model.NewSchemaError(source, rec, "min_living_area", err)
	}
	hi, err := parseBound(maxLA)
	if err != nil {
		return model.Rule{}, model.NewSchemaError(source, rec, "max_living_area", err)
	}

	if strings.TrimSpace(detached) == "" {
		return model.Rule{}, model.NewSchemaError(source, rec, "detached", eris.New("missing value"))
	}
	dc, err := model.ParseDetachedConstraint(detached)
	if err != nil {
		return model.Rule{}, model.NewRuleConfigError(name, err)
	}

	return model.Rule{
		Name:          name,
		MinFloors:     floors,
		MinLivingArea: lo,
		MaxLivingArea: hi,
		Detached:      dc,
	}, nil
}

// parseBound accepts a number, or inf (YAML .inf) for an open upper bound.
func parseBound(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, eris.New("missing value")
	}
	raw = strings.Replace(strings.ToLower(raw), ".inf", "inf", 1)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, eris.Errorf("want a number, got %q", raw)
	}
	return v, nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
