package loader

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX reads the first sheet of a workbook; its first row is the header.
func readXLSX(opts Options) (table, error) {
	f, err := xlsx.OpenFile(opts.Path)
	if err != nil {
		return table{}, eris.Wrap(err, "loader: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return table{}, eris.New("loader: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return table{}, eris.Errorf("loader: sheet %q is empty", sheet.Name)
	}

	header := rowToStrings(sheet.Rows[0])
	rows := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	return keysFromHeader(header, rows, opts)
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
