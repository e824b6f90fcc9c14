package sink

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/sells-group/census-disagg/internal/db"
	"github.com/sells-group/census-disagg/internal/model"
)

const (
	schema = "disagg"
	table  = "assignments"

	// DefaultSRID is ETRS89-LAEA, the projection of the European 100m
	// census grid.
	DefaultSRID = 3035
)

var assignmentColumns = []string{"run_id", "building_id", "rule", "phase", "cell_id", "centroid"}

// Postgres copies assignments into disagg.assignments with the building
// centroid as a PostGIS point.
type Postgres struct {
	pool      db.Pool
	srid      int
	batchSize int
}

// PostgresOption configures a Postgres sink.
type PostgresOption func(*Postgres)

// WithSRID sets the SRID stamped on centroid geometries.
func WithSRID(srid int) PostgresOption {
	return func(p *Postgres) { p.srid = srid }
}

// WithBatchSize sets the number of rows per COPY.
func WithBatchSize(n int) PostgresOption {
	return func(p *Postgres) { p.batchSize = n }
}

// NewPostgres creates a Postgres sink over pool.
func NewPostgres(pool db.Pool, opts ...PostgresOption) *Postgres {
	p := &Postgres{pool: pool, srid: DefaultSRID, batchSize: db.DefaultBatchSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Migrate creates the schema and assignments table if missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s.%[2]s (
	run_id      TEXT NOT NULL,
	building_id TEXT NOT NULL,
	rule        TEXT NOT NULL,
	phase       TEXT NOT NULL,
	cell_id     TEXT NOT NULL,
	centroid    geometry(Point, %[3]d),
	PRIMARY KEY (run_id, building_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_centroid ON %[1]s.%[2]s USING GIST (centroid);
`, schema, table, p.srid)

	_, err := p.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "sink: migrate")
}

// Write copies assignments for runID. buildings supplies centroids by ID;
// an assignment whose building has no centroid gets a NULL geometry.
func (p *Postgres) Write(ctx context.Context, runID string, assignments []model.Assignment, buildings []*model.Building) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	byID := make(map[string]*model.Building, len(buildings))
	for _, b := range buildings {
		byID[b.ID] = b
	}

	rows := make([][]any, 0, len(assignments))
	for _, a := range assignments {
		var centroid []byte
		if b, ok := byID[a.BuildingID]; ok && len(b.Centroid) >= 2 {
			wkb, err := p.encodePoint(b.Centroid)
			if err != nil {
				return 0, eris.Wrapf(err, "sink: centroid of building %s", a.BuildingID)
			}
			centroid = wkb
		}
		rows = append(rows, []any{runID, a.BuildingID, a.Rule, string(a.Phase), a.CellID, centroid})
	}

	n, err := db.CopyInBatches(ctx, p.pool, schema, table, assignmentColumns, rows, p.batchSize)
	if err != nil {
		return n, eris.Wrap(err, "sink: copy assignments")
	}

	zap.L().Info("sink: assignments written",
		zap.String("run_id", runID),
		zap.Int64("rows", n),
	)
	return n, nil
}

func (p *Postgres) encodePoint(c geom.Coord) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{c.X(), c.Y()}).SetSRID(p.srid)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "sink: encode EWKB")
	}
	return data, nil
}
