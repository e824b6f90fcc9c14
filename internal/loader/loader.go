// Package loader reads census cells, buildings and rule tables from
// shapefiles, GeoJSON, CSV and YAML into the allocation model.
package loader

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/model"
)

// dbfNameLimit is the maximum field name length in a dBASE table.
const dbfNameLimit = 10

// Fields names the attribute columns read from cell and building layers.
// Lookups are case-insensitive and fall back to the name truncated to ten
// characters, so "living_area" also finds the shapefile column "living_are".
type Fields struct {
	CellID     string
	Total      string
	Subtotal   string
	BuildingID string
	Floors     string
	LivingArea string
	Detached   string

	// Counts maps a rule name to the cell column holding its count when the
	// column is not named after the rule.
	Counts map[string]string

	// Encoding is the character set of shapefile attribute tables. Empty
	// means the .cpg sidecar decides, falling back to UTF-8.
	Encoding string
}

// DefaultFields returns the column names of the building and census grid
// datasets the tool was built for.
func DefaultFields() Fields {
	return Fields{
		CellID:     "grid_id",
		Total:      "count_build_siz",
		Subtotal:   "count_apart",
		BuildingID: "building_id",
		Floors:     "floors",
		LivingArea: "living_area",
		Detached:   "detached",
	}
}

func (f Fields) countColumn(rule string) string {
	if c, ok := f.Counts[rule]; ok && c != "" {
		return c
	}
	return rule
}

// feature is one record of a vector layer with its attributes as text,
// keyed by lower-cased column name.
type feature struct {
	geom  *geom.MultiPolygon
	props map[string]string
}

// layer is a decoded vector file.
type layer struct {
	source   string
	features []feature

	// columns lists attribute names when the format declares them up
	// front (shapefiles). Nil for GeoJSON, where columns are per feature.
	columns []string
}

func (l *layer) hasColumn(name string) bool {
	if l.columns == nil {
		return true
	}
	_, ok := lookup(l.columns, name)
	return ok
}

// lookup finds name among keys case-insensitively, then by its dBASE
// truncation.
func lookup(keys []string, name string) (string, bool) {
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	if len(name) > dbfNameLimit {
		short := name[:dbfNameLimit]
		for _, k := range keys {
			if strings.EqualFold(k, short) {
				return k, true
			}
		}
	}
	return "", false
}

func (ft feature) get(name string) (string, bool) {
	key := strings.ToLower(name)
	v, ok := ft.props[key]
	if !ok && len(key) > dbfNameLimit {
		v, ok = ft.props[key[:dbfNameLimit]]
	}
	return strings.TrimSpace(v), ok
}

// readLayer dispatches on the path: a directory is read file by file in
// name order, .zip archives are extracted, .shp and .geojson/.json are
// decoded directly.
func readLayer(path, encoding string) ([]*layer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: stat %s", path)
	}
	if info.IsDir() {
		return readDir(path, encoding)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		l, err := readShapefile(path, encoding)
		if err != nil {
			return nil, err
		}
		return []*layer{l}, nil
	case ".zip":
		l, err := readZippedShapefile(path, encoding)
		if err != nil {
			return nil, err
		}
		return []*layer{l}, nil
	case ".geojson", ".json":
		l, err := readGeoJSON(path)
		if err != nil {
			return nil, err
		}
		return []*layer{l}, nil
	}
	return nil, eris.Errorf("loader: unsupported input %s (want .shp, .zip, .geojson or a directory)", path)
}

func readDir(dir, encoding string) ([]*layer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read directory %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".shp", ".geojson":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, eris.Errorf("loader: no .shp or .geojson files in %s", dir)
	}
	sort.Strings(names)

	var out []*layer
	for _, n := range names {
		ls, err := readLayer(filepath.Join(dir, n), encoding)
		if err != nil {
			return nil, err
		}
		out = append(out, ls...)
	}
	return out, nil
}

// LoadCells reads census cells from path. Every rule of rules must have a
// count column; a missing column or a malformed, negative or fractional
// count is a SchemaError.
func LoadCells(path string, rules *model.RuleSet, fields Fields) ([]*model.Cell, error) {
	layers, err := readLayer(path, fields.Encoding)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var cells []*model.Cell
	for _, l := range layers {
		required := []string{fields.CellID, fields.Total}
		for _, name := range rules.Names() {
			required = append(required, fields.countColumn(name))
		}
		for _, col := range required {
			if !l.hasColumn(col) {
				return nil, model.NewSchemaError(l.source, -1, col, eris.New("column not found"))
			}
		}

		for i, ft := range l.features {
			c, err := decodeCell(l.source, i, ft, rules, fields)
			if err != nil {
				return nil, err
			}
			if seen[c.ID] {
				return nil, model.NewSchemaError(l.source, i, fields.CellID, eris.Errorf("duplicate cell id %q", c.ID))
			}
			seen[c.ID] = true
			cells = append(cells, c)
		}
	}

	zap.L().Info("loader: cells loaded", zap.String("path", path), zap.Int("cells", len(cells)))
	return cells, nil
}

func decodeCell(source string, rec int, ft feature, rules *model.RuleSet, fields Fields) (*model.Cell, error) {
	id, err := requireString(source, rec, ft, fields.CellID)
	if err != nil {
		return nil, err
	}

	c := &model.Cell{ID: id, Geom: ft.geom, Expected: make([]int, rules.Len())}
	for i, name := range rules.Names() {
		n, err := requireCount(source, rec, ft, fields.countColumn(name))
		if err != nil {
			return nil, err
		}
		c.Expected[i] = n
	}
	if c.Total, err = requireCount(source, rec, ft, fields.Total); err != nil {
		return nil, err
	}
	if fields.Subtotal != "" {
		if _, ok := ft.get(fields.Subtotal); ok {
			if c.Subtotal, err = requireCount(source, rec, ft, fields.Subtotal); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// LoadBuildings reads buildings from path. Identifiers must be unique and
// attributes well-formed; violations are SchemaErrors. Geometry is not
// validated here.
func LoadBuildings(path string, fields Fields) ([]*model.Building, error) {
	layers, err := readLayer(path, fields.Encoding)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var buildings []*model.Building
	for _, l := range layers {
		for _, col := range []string{fields.BuildingID, fields.Floors, fields.LivingArea, fields.Detached} {
			if !l.hasColumn(col) {
				return nil, model.NewSchemaError(l.source, -1, col, eris.New("column not found"))
			}
		}

		for i, ft := range l.features {
			b, err := decodeBuilding(l.source, i, ft, fields)
			if err != nil {
				return nil, err
			}
			if seen[b.ID] {
				return nil, model.NewSchemaError(l.source, i, fields.BuildingID, eris.Errorf("duplicate building id %q", b.ID))
			}
			seen[b.ID] = true
			buildings = append(buildings, b)
		}
	}

	zap.L().Info("loader: buildings loaded",
		zap.String("path", path),
		zap.Int("layers", len(layers)),
		zap.Int("buildings", len(buildings)),
	)
	return buildings, nil
}

func decodeBuilding(source string, rec int, ft feature, fields Fields) (*model.Building, error) {
	id, err := requireString(source, rec, ft, fields.BuildingID)
	if err != nil {
		return nil, err
	}
	floors, err := requireCount(source, rec, ft, fields.Floors)
	if err != nil {
		return nil, err
	}

	raw, err := requireString(source, rec, ft, fields.LivingArea)
	if err != nil {
		return nil, err
	}
	area, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(area) || math.IsInf(area, 0) || area < 0 {
		return nil, model.NewSchemaError(source, rec, fields.LivingArea, eris.Errorf("want a finite number >= 0, got %q", raw))
	}

	raw, err = requireString(source, rec, ft, fields.Detached)
	if err != nil {
		return nil, err
	}
	detached, err := parseBool(raw)
	if err != nil {
		return nil, model.NewSchemaError(source, rec, fields.Detached, err)
	}

	return &model.Building{
		ID:         id,
		Geom:       ft.geom,
		FloorCount: floors,
		LivingArea: area,
		Detached:   detached,
	}, nil
}

func requireString(source string, rec int, ft feature, name string) (string, error) {
	v, ok := ft.get(name)
	if !ok || v == "" {
		return "", model.NewSchemaError(source, rec, name, eris.New("missing value"))
	}
	return v, nil
}

// requireCount parses a non-negative integer. Numeric dBASE columns are
// often written with decimals ("3.000"), which are accepted when integral.
func requireCount(source string, rec int, ft feature, name string) (int, error) {
	raw, err := requireString(source, rec, ft, name)
	if err != nil {
		return 0, err
	}
	n, err := parseCount(raw)
	if err != nil {
		return 0, model.NewSchemaError(source, rec, name, err)
	}
	return n, nil
}

func parseCount(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, eris.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("want an integer, got %q", raw)
	}
	if f < 0 {
		return 0, eris.Errorf("negative count %s", raw)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, eris.Errorf("want an integer, got %q", raw)
	}
	return int(f), nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "1.0", "true", "t", "yes", "y":
		return true, nil
	case "0", "0.0", "false", "f", "no", "n":
		return false, nil
	}
	return false, eris.Errorf("want a boolean (0/1/true/false), got %q", raw)
}
