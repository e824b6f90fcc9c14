package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type rawFeature struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

// readGeoJSON decodes a FeatureCollection. Properties keep their literal
// number text, and a feature-level "id" is exposed as the property "id"
// unless the properties already carry one.
func readGeoJSON(path string) (*layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fc rawCollection
	if err := dec.Decode(&fc); err != nil {
		return nil, eris.Wrapf(err, "loader: decode %s", path)
	}
	if fc.Type != "FeatureCollection" {
		return nil, eris.Errorf("loader: %s: want a FeatureCollection, got %q", path, fc.Type)
	}

	l := &layer{source: filepath.Base(path)}
	for i, rf := range fc.Features {
		props := make(map[string]string, len(rf.Properties)+1)
		for k, v := range rf.Properties {
			if v == nil {
				continue
			}
			props[strings.ToLower(k)] = propString(v)
		}
		if _, ok := props["id"]; !ok && rf.ID != nil {
			props["id"] = propString(rf.ID)
		}

		g, err := decodeGeometry(rf.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: %s: feature %d", path, i)
		}
		l.features = append(l.features, feature{geom: g, props: props})
	}
	return l, nil
}

func propString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

// decodeGeometry returns nil for null or non-areal geometries. Polygons are
// promoted to multipolygons and extra ordinates are dropped.
func decodeGeometry(raw json.RawMessage) (*geom.MultiPolygon, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "geometry")
	}

	var coords [][][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		coords = [][][]geom.Coord{t.Coords()}
	case *geom.MultiPolygon:
		coords = t.Coords()
	default:
		return nil, nil
	}

	for _, poly := range coords {
		for _, ring := range poly {
			for k, c := range ring {
				ring[k] = geom.Coord{c[0], c[1]}
			}
		}
	}
	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(coords)
	if err != nil {
		return nil, eris.Wrap(err, "geometry")
	}
	return mp, nil
}
