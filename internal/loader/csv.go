package loader

import (
	"encoding/csv"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// readCSV decodes the key columns through csvutil under canonical names and
// keeps the raw record for the measure columns.
func readCSV(opts Options) (table, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return table{}, eris.Wrap(err, "loader: open csv")
	}
	defer func() { _ = f.Close() }()
	return decodeCSV(f, opts)
}

func decodeCSV(r io.Reader, opts Options) (table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return table{}, eris.New("loader: empty csv")
	}
	if err != nil {
		return table{}, eris.Wrap(err, "loader: read csv header")
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	renamed, hasID, hasExposure := canonicalHeader(header, opts)
	if !hasID {
		return table{}, eris.Wrapf(ErrMissingColumn, "id column %q", opts.IDColumn)
	}

	dec, err := csvutil.NewDecoder(reader, renamed...)
	if err != nil {
		return table{}, eris.Wrap(err, "loader: create csv decoder")
	}

	t := table{header: header, hasExposure: hasExposure}
	for {
		var key keyRow
		if err := dec.Decode(&key); err == io.EOF {
			break
		} else if err != nil {
			return table{}, eris.Wrapf(err, "loader: decode csv row %d", len(t.keys)+1)
		}
		t.keys = append(t.keys, key)
		t.cells = append(t.cells, slices.Clone(dec.Record()))
	}
	return t, nil
}

// canonicalHeader renames the configured id, name and exposure columns to the
// names keyRow decodes. Other columns get positional names so they never collide.
func canonicalHeader(header []string, opts Options) (renamed []string, hasID, hasExposure bool) {
	renamed = make([]string, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		switch {
		case name == normalizeHeader(opts.IDColumn):
			renamed[i] = "id"
			hasID = true
		case name == normalizeHeader(opts.NameColumn):
			renamed[i] = "name"
		case opts.ExposureColumn != "" && name == normalizeHeader(opts.ExposureColumn):
			renamed[i] = "exposure"
			hasExposure = true
		default:
			renamed[i] = "col" + strconv.Itoa(i)
		}
	}
	return renamed, hasID, hasExposure
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
