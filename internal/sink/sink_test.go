package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/census-disagg/internal/model"
)

func sampleAssignments() []model.Assignment {
	return []model.Assignment{
		{BuildingID: "12", Rule: "1", Phase: model.PhaseRule, CellID: "CRS3035RES100mN2689100E4337000"},
		{BuildingID: "7", Rule: "3-6", Phase: model.PhaseResidual, CellID: "CRS3035RES100mN2689100E4337000"},
	}
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, sampleAssignments()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"12", "1", "rule", "CRS3035RES100mN2689100E4337000"}, records[1])
	assert.Equal(t, []string{"7", "3-6", "residual", "CRS3035RES100mN2689100E4337000"}, records[2])
}

func TestEncodeCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, nil))
	assert.Equal(t, "building_id,type,phase,cell_id\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assignments.csv")
	require.NoError(t, WriteCSV(path, sampleAssignments()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "12,1,rule,")
}

func TestWriteCSV_BadPath(t *testing.T) {
	err := WriteCSV(filepath.Join(t.TempDir(), "missing", "out.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink: create")
}

func TestPostgres_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`geometry\(Point, 25832\)`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, NewPostgres(mock, WithSRID(25832)).Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Write(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := pgx.Identifier{"disagg", "assignments"}
	mock.ExpectCopyFrom(id, assignmentColumns).WillReturnResult(1)
	mock.ExpectCopyFrom(id, assignmentColumns).WillReturnResult(1)

	buildings := []*model.Building{
		{ID: "12", Centroid: geom.Coord{4337050, 2689150}},
		{ID: "7"},
	}
	n, err := NewPostgres(mock, WithBatchSize(1)).Write(context.Background(), "run-1", sampleAssignments(), buildings)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Write_Empty(t *testing.T) {
	n, err := NewPostgres(nil).Write(context.Background(), "run-1", nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPostgres_Write_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"disagg", "assignments"}, assignmentColumns).
		WillReturnError(fmt.Errorf("relation does not exist"))

	_, err = NewPostgres(mock).Write(context.Background(), "run-1", sampleAssignments(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy assignments")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_EncodePoint(t *testing.T) {
	p := NewPostgres(nil)
	data, err := p.encodePoint(geom.Coord{4337050, 2689150})
	require.NoError(t, err)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	pt, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, DefaultSRID, pt.SRID())
	assert.Equal(t, 4337050.0, pt.X())
	assert.Equal(t, 2689150.0, pt.Y())
}
