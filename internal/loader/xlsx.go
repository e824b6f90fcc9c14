package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// rulesSheet is the preferred sheet of a rule workbook. Workbooks without
// it are read from their first sheet.
const rulesSheet = "rules"

// readXLSXRows returns every row of the named sheet, or of the first sheet
// when the workbook has no sheet of that name, as string slices.
func readXLSXRows(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "loader: open xlsx")
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("loader: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
