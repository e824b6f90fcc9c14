// Package sink writes assignment lists to CSV files and PostGIS.
package sink

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-disagg/internal/model"
)

// CSVHeader is the assignment file header. The first two columns keep the
// building_id,type layout consumers of earlier exports expect.
var CSVHeader = []string{"building_id", "type", "phase", "cell_id"}

// WriteCSV writes one row per assignment to path, creating or truncating it.
func WriteCSV(path string, assignments []model.Assignment) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "sink: create %s", path)
	}
	if err := EncodeCSV(f, assignments); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "sink: close %s", path)
}

// EncodeCSV writes the header and one row per assignment to w.
func EncodeCSV(w io.Writer, assignments []model.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return eris.Wrap(err, "sink: write csv header")
	}
	for _, a := range assignments {
		if err := cw.Write([]string{a.BuildingID, a.Rule, string(a.Phase), a.CellID}); err != nil {
			return eris.Wrapf(err, "sink: write csv row for %s", a.BuildingID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "sink: flush csv")
}
