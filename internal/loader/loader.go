// Package loader reads entity datasets from CSV, JSON, XLSX and shapefile sources.
package loader

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrDuplicateID is returned when two rows share an identifier.
	ErrDuplicateID = eris.New("loader: duplicate id")

	// ErrInvalidNumber is returned when a measure or exposure cell is not a finite number.
	ErrInvalidNumber = eris.New("loader: invalid number")

	// ErrMissingColumn is returned when a configured column is absent from the dataset.
	ErrMissingColumn = eris.New("loader: missing column")

	// ErrNoMeasures is returned when no measure columns can be found.
	ErrNoMeasures = eris.New("loader: no measure columns")
)

// Options describes where a dataset lives and how its columns map to records.
type Options struct {
	Path           string
	Format         schema.InputFormat
	IDColumn       string
	NameColumn     string
	ExposureColumn string
	Measures       []schema.MeasureKey // empty means every numeric column

	// ExposureOnly skips measure columns, for exposure-only files such as backfill input.
	ExposureOnly bool
}

// Dataset is a loaded set of records plus the measures they carry, in column order.
type Dataset struct {
	Records  []schema.EntityRecord
	Measures []schema.MeasureKey
}

// Load reads the dataset described by opts.
func Load(ctx context.Context, opts Options) (Dataset, error) {
	if opts.Path == "" {
		return Dataset{}, eris.New("loader: no input path")
	}
	if err := ctx.Err(); err != nil {
		return Dataset{}, eris.Wrap(err, "loader: context cancelled")
	}

	var (
		t   table
		err error
	)
	switch opts.Format {
	case schema.JSONInput:
		t, err = readJSON(opts)
	case schema.XLSXInput:
		t, err = readXLSX(opts)
	case schema.ShapefileInput:
		t, err = readShapefile(opts)
	default:
		t, err = readCSV(opts)
	}
	if err != nil {
		return Dataset{}, err
	}

	ds, err := t.build(opts)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "loader: build records from %s", opts.Path)
	}
	zap.L().Debug("dataset loaded",
		zap.String("path", opts.Path),
		zap.String("format", string(opts.Format)),
		zap.Int("records", len(ds.Records)),
		zap.Int("measures", len(ds.Measures)),
	)
	return ds, nil
}

// keyRow holds the identifying cells of one row.
type keyRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name,omitempty"`
	Exposure string `csv:"exposure,omitempty"`
}

// table is a format-neutral view of a dataset: a header plus raw cells per row.
type table struct {
	header      []string
	keys        []keyRow
	cells       [][]string
	hasExposure bool
}

// build turns raw cells into records, validating ids and numbers.
func (t table) build(opts Options) (Dataset, error) {
	skip := map[string]struct{}{
		normalizeHeader(opts.IDColumn):       {},
		normalizeHeader(opts.NameColumn):     {},
		normalizeHeader(opts.ExposureColumn): {},
	}
	index := make(map[string]int, len(t.header))
	for i, h := range t.header {
		index[normalizeHeader(h)] = i
	}

	if opts.ExposureColumn != "" && !t.hasExposure {
		return Dataset{}, eris.Wrapf(ErrMissingColumn, "exposure column %q", opts.ExposureColumn)
	}

	measures := opts.Measures
	if opts.ExposureOnly {
		if !t.hasExposure {
			return Dataset{}, eris.Wrap(ErrMissingColumn, "exposure column is required")
		}
		measures = nil
	} else {
		if len(measures) == 0 {
			measures = t.inferMeasures(skip)
		}
		if len(measures) == 0 {
			return Dataset{}, ErrNoMeasures
		}
	}
	cols := make([]int, len(measures))
	for i, m := range measures {
		idx, ok := index[normalizeHeader(string(m))]
		if !ok {
			return Dataset{}, eris.Wrapf(ErrMissingColumn, "measure %q", m)
		}
		cols[i] = idx
	}

	seen := make(map[string]int, len(t.keys))
	records := make([]schema.EntityRecord, 0, len(t.keys))
	for row, key := range t.keys {
		id := schema.PadFIPS(key.ID)
		if id == "" {
			zap.L().Debug("skipping row without id", zap.Int("row", row+1))
			continue
		}
		if prev, dup := seen[id]; dup {
			return Dataset{}, eris.Wrapf(ErrDuplicateID, "id %q on rows %d and %d", id, prev+1, row+1)
		}
		seen[id] = row

		rec := schema.EntityRecord{
			ID:       id,
			Name:     strings.TrimSpace(key.Name),
			State:    schema.StatePrefix(id),
			Measures: make(map[schema.MeasureKey]*float64, len(measures)),
		}
		for i, m := range measures {
			v, err := parseCell(cellAt(t.cells[row], cols[i]))
			if err != nil {
				return Dataset{}, eris.Wrapf(err, "row %d measure %q", row+1, m)
			}
			rec.Measures[m] = v
		}
		if t.hasExposure {
			v, err := parseCell(key.Exposure)
			if err != nil {
				return Dataset{}, eris.Wrapf(err, "row %d exposure", row+1)
			}
			rec.Exposure = v
		}
		records = append(records, rec)
	}
	return Dataset{Records: records, Measures: measures}, nil
}

// inferMeasures returns every non-key column whose cells are all numeric or
// missing, with at least one number present.
func (t table) inferMeasures(skip map[string]struct{}) []schema.MeasureKey {
	var out []schema.MeasureKey
	for i, h := range t.header {
		name := normalizeHeader(h)
		if _, ok := skip[name]; ok || name == "" {
			continue
		}
		numeric, present := true, false
		for _, row := range t.cells {
			v, err := parseCell(cellAt(row, i))
			if err != nil {
				numeric = false
				break
			}
			if v != nil {
				present = true
			}
		}
		if numeric && present {
			out = append(out, schema.MeasureKey(name))
		}
	}
	return out
}

// keysFromHeader pulls the id, name and exposure cells out of raw rows by column name.
func keysFromHeader(header []string, rows [][]string, opts Options) (table, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}
	idIdx, ok := index[normalizeHeader(opts.IDColumn)]
	if !ok {
		return table{}, eris.Wrapf(ErrMissingColumn, "id column %q", opts.IDColumn)
	}
	nameIdx, hasName := index[normalizeHeader(opts.NameColumn)]
	expIdx, hasExposure := -1, false
	if opts.ExposureColumn != "" {
		expIdx, hasExposure = index[normalizeHeader(opts.ExposureColumn)]
	}

	t := table{header: header, cells: rows, hasExposure: hasExposure}
	t.keys = make([]keyRow, len(rows))
	for i, row := range rows {
		t.keys[i].ID = strings.TrimSpace(cellAt(row, idIdx))
		if hasName {
			t.keys[i].Name = cellAt(row, nameIdx)
		}
		if hasExposure {
			t.keys[i].Exposure = cellAt(row, expIdx)
		}
	}
	return t, nil
}

// parseCell parses a numeric cell. Blank and NA-style cells are missing;
// anything else that is not a finite number is rejected.
func parseCell(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "null", "none", "nan":
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, eris.Wrapf(ErrInvalidNumber, "%q", s)
	}
	return &v, nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// normalizeHeader lowercases and trims a column name, dropping DBF padding.
func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimRight(h, "\x00")))
}
