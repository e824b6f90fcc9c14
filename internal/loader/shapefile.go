package loader

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

func readShapefile(path, charset string) (*layer, error) {
	dec, err := dbfDecoder(path, charset)
	if err != nil {
		return nil, err
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = strings.TrimRight(f.String(), "\x00")
	}

	l := &layer{source: filepath.Base(path), columns: columns}
	for reader.Next() {
		n, shape := reader.Shape()

		props := make(map[string]string, len(columns))
		for i, c := range columns {
			v := reader.Attribute(i)
			if dec != nil {
				if decoded, err := dec.String(v); err == nil {
					v = decoded
				}
			}
			props[strings.ToLower(c)] = strings.TrimRight(v, "\x00 ")
		}

		g := shapeToMultiPolygon(shape)
		if g == nil {
			zap.L().Debug("loader: record without polygon geometry",
				zap.String("source", l.source),
				zap.Int("record", n),
			)
		}
		l.features = append(l.features, feature{geom: g, props: props})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read shapefile %s", path)
	}
	return l, nil
}

// dbfDecoder resolves the attribute charset: the explicit setting wins,
// then the .cpg sidecar. Nil means UTF-8, which needs no decoding.
func dbfDecoder(shpPath, charset string) (*encoding.Decoder, error) {
	if charset == "" {
		cpg := strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg"
		if b, err := os.ReadFile(cpg); err == nil {
			charset = strings.TrimSpace(string(b))
		}
	}
	charset = strings.ToLower(charset)
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return nil, nil
	}
	// ArcGIS writes bare code page numbers into .cpg files.
	if strings.IndexFunc(charset, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		charset = "windows-" + charset
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: unsupported dbf encoding %q", charset)
	}
	return enc.NewDecoder(), nil
}

// shapeToMultiPolygon converts a polygon shape to a multipolygon. Shapefile
// outer rings run clockwise and holes counter-clockwise; each hole is
// attached to the outer ring before it. Non-polygon shapes yield nil.
func shapeToMultiPolygon(shape shp.Shape) *geom.MultiPolygon {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	default:
		return nil
	}
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	var polys [][][]geom.Coord
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			return nil
		}

		ring := make([]geom.Coord, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, geom.Coord{p.X, p.Y})
		}

		if signedArea(ring) > 0 && len(polys) > 0 {
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}

	mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(polys)
	if err != nil {
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

func readZippedShapefile(zipPath, charset string) (*layer, error) {
	dir, err := os.MkdirTemp("", "disagg-shp-*")
	if err != nil {
		return nil, eris.Wrap(err, "loader: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	if err := extractZIP(zipPath, dir); err != nil {
		return nil, eris.Wrapf(err, "loader: extract %s", zipPath)
	}
	shpPath, err := findFileByExt(dir, ".shp")
	if err != nil {
		return nil, eris.Wrapf(err, "loader: %s", zipPath)
	}

	l, err := readShapefile(shpPath, charset)
	if err != nil {
		return nil, err
	}
	l.source = filepath.Base(zipPath) + "/" + l.source
	return l, nil
}

// extractZIP flattens the archive into destDir.
func extractZIP(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrap(err, "open zip")
	}
	defer r.Close() //nolint:errcheck

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		destPath := filepath.Join(destDir, filepath.Base(f.Name))

		rc, err := f.Open()
		if err != nil {
			return eris.Wrapf(err, "open zip entry %s", f.Name)
		}

		outFile, err := os.Create(destPath)
		if err != nil {
			_ = rc.Close()
			return eris.Wrapf(err, "create %s", destPath)
		}

		if _, err := io.Copy(outFile, rc); err != nil {
			_ = outFile.Close()
			_ = rc.Close()
			return eris.Wrapf(err, "extract %s", f.Name)
		}
		_ = outFile.Close()
		_ = rc.Close()
	}
	return nil
}

func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrap(err, "read directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", eris.Errorf("no %s file found in %s", ext, dir)
}
