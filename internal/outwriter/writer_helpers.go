package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return eris.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return eris.Wrap(err, "failed to write CSV header")
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	return nil
}

// writeCSVRows writes a header and pre-rendered rows.
func writeCSVRows(w io.Writer, header []string, rows [][]string) error {
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeXLSX writes a single-sheet workbook. Cells that parse as numbers are
// stored as numbers so spreadsheets can sort and chart them.
func writeXLSX(path, sheetName string, header []string, rows [][]string) error {
	if path == "" {
		return eris.New("--output-file is required for xlsx output")
	}
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "failed to add sheet %s", sheetName)
	}
	addRow := func(values []string, numeric bool) {
		row := sheet.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			if numeric {
				if f, ok := numericCell(v); ok {
					cell.SetFloat(f)
					continue
				}
			}
			cell.SetString(v)
		}
	}
	addRow(header, false)
	for _, r := range rows {
		addRow(r, true)
	}
	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "failed to save workbook %s", path)
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote XLSX to %s\n", path)
	return nil
}

// numericCell parses v as a number unless it is an identifier with leading
// zeros such as a FIPS code.
func numericCell(v string) (float64, bool) {
	if len(v) > 1 && v[0] == '0' && v[1] != '.' {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// createFormatters creates the common formatter closures used across multiple output types.
// The optional formatter renders missing values as an empty string.
func createFormatters(precision int) (fmtFloat func(float64) string, fmtOptional func(*float64) string) {
	numFmt := "%.*f"
	fmtFloat = func(v float64) string {
		return fmt.Sprintf(numFmt, precision, v)
	}
	fmtOptional = func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmtFloat(*v)
	}
	return fmtFloat, fmtOptional
}

// dashIfEmpty is used by tables so missing values stay visible.
func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
