package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Counties")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "counties.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func createTestShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "counties.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("FIPS", 5),
		shp.StringField("NAME", 32),
		shp.FloatField("ASTHMA", 12, 3),
		shp.FloatField("PM25", 12, 3),
	}))
	rows := [][]any{
		{"1001", "Autauga", 9.5, 7.2},
		{"01003", "Baldwin", 8.25, 6.1},
	}
	for i, r := range rows {
		n := w.Write(&shp.Point{X: float64(i), Y: float64(i)})
		for field, v := range r {
			require.NoError(t, w.WriteAttribute(int(n), field, v))
		}
	}
	w.Close()
	return path
}

func defaultOptions(path string, format schema.InputFormat) Options {
	return Options{
		Path:       path,
		Format:     format,
		IDColumn:   "fips",
		NameColumn: "name",
	}
}

func measure(t *testing.T, rec schema.EntityRecord, key schema.MeasureKey) *float64 {
	t.Helper()
	v, ok := rec.Measures[key]
	require.True(t, ok, "measure %s missing", key)
	return v
}

func TestLoadCSV(t *testing.T) {
	path := writeFile(t, "data.csv", "\ufeffFIPS,Name,Asthma,Obesity,PM25\n"+
		"1001,Autauga,9.5,30,7.2\n"+
		"01003,Baldwin,NA,28.5,\n"+
		"06037,Los Angeles,\"1,200\",25,12.1\n")

	opts := defaultOptions(path, schema.CSVInput)
	opts.ExposureColumn = "pm25"
	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, []schema.MeasureKey{"asthma", "obesity"}, ds.Measures)
	require.Len(t, ds.Records, 3)

	first := ds.Records[0]
	assert.Equal(t, "01001", first.ID)
	assert.Equal(t, "Autauga", first.Name)
	assert.Equal(t, "01", first.State)
	assert.InDelta(t, 9.5, *measure(t, first, "asthma"), 1e-12)
	require.NotNil(t, first.Exposure)
	assert.InDelta(t, 7.2, *first.Exposure, 1e-12)

	second := ds.Records[1]
	assert.Nil(t, measure(t, second, "asthma"))
	assert.Nil(t, second.Exposure)

	third := ds.Records[2]
	assert.InDelta(t, 1200, *measure(t, third, "asthma"), 1e-12)
}

func TestLoadCSVExplicitMeasures(t *testing.T) {
	path := writeFile(t, "data.csv", "fips,name,a,b,c\n01001,X,1,2,3\n")
	opts := defaultOptions(path, schema.CSVInput)
	opts.Measures = []schema.MeasureKey{"c", "a"}

	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []schema.MeasureKey{"c", "a"}, ds.Measures)
	assert.Len(t, ds.Records[0].Measures, 2)
}

func TestLoadExposureOnly(t *testing.T) {
	path := writeFile(t, "pm.csv", "fips,pm25_mean_2016_2024\n1001,7.25\n1003,\n")
	opts := defaultOptions(path, schema.CSVInput)
	opts.ExposureColumn = "pm25_mean_2016_2024"
	opts.ExposureOnly = true

	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, ds.Measures)
	require.Len(t, ds.Records, 2)
	assert.InDelta(t, 7.25, *ds.Records[0].Exposure, 1e-12)
	assert.Nil(t, ds.Records[1].Exposure)

	opts.ExposureColumn = ""
	_, err = Load(context.Background(), opts)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mutate  func(*Options)
		wantErr error
	}{
		{
			name:    "duplicate id after padding",
			content: "fips,name,a\n1001,X,1\n01001,Y,2\n",
			wantErr: ErrDuplicateID,
		},
		{
			name:    "invalid number in explicit measure",
			content: "fips,name,a\n01001,X,abc\n",
			mutate:  func(o *Options) { o.Measures = []schema.MeasureKey{"a"} },
			wantErr: ErrInvalidNumber,
		},
		{
			name:    "missing id column",
			content: "geoid,name,a\n01001,X,1\n",
			wantErr: ErrMissingColumn,
		},
		{
			name:    "missing measure column",
			content: "fips,name,a\n01001,X,1\n",
			mutate:  func(o *Options) { o.Measures = []schema.MeasureKey{"zzz"} },
			wantErr: ErrMissingColumn,
		},
		{
			name:    "missing exposure column",
			content: "fips,name,a\n01001,X,1\n",
			mutate:  func(o *Options) { o.ExposureColumn = "pm25" },
			wantErr: ErrMissingColumn,
		},
		{
			name:    "no numeric columns",
			content: "fips,name,kind\n01001,X,urban\n",
			wantErr: ErrNoMeasures,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "data.csv", tt.content)
			opts := defaultOptions(path, schema.CSVInput)
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := Load(context.Background(), opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadSkipsRowsWithoutID(t *testing.T) {
	path := writeFile(t, "data.csv", "fips,name,a\n,Nowhere,1\n01001,X,2\n")
	ds, err := Load(context.Background(), defaultOptions(path, schema.CSVInput))
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "01001", ds.Records[0].ID)
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, defaultOptions("x.csv", schema.CSVInput))
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "data.json", `[
		{"fips": "1001", "name": "Autauga", "asthma": 9.5, "pm25": 7.2},
		{"fips": "01003", "name": "Baldwin", "asthma": null, "obesity": 28.5}
	]`)
	opts := defaultOptions(path, schema.JSONInput)
	opts.ExposureColumn = "pm25"

	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []schema.MeasureKey{"asthma", "obesity"}, ds.Measures)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "01001", ds.Records[0].ID)
	assert.Nil(t, measure(t, ds.Records[0], "obesity"))
	assert.Nil(t, measure(t, ds.Records[1], "asthma"))
	assert.Nil(t, ds.Records[1].Exposure)
	assert.InDelta(t, 28.5, *measure(t, ds.Records[1], "obesity"), 1e-12)
}

func TestLoadJSONRejectsNonArray(t *testing.T) {
	path := writeFile(t, "data.json", `{"fips": "01001"}`)
	_, err := Load(context.Background(), defaultOptions(path, schema.JSONInput))
	assert.Error(t, err)
}

func TestDecodeJSONRowsKeepsKeyOrder(t *testing.T) {
	header, rows, err := decodeJSONRows([]byte(`[{"z":1,"a":"x"},{"m":true,"z":2}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, header)
	assert.Equal(t, [][]string{{"1", "x", ""}, {"2", "", "true"}}, rows)
}

func TestLoadXLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"FIPS", "Name", "Asthma", "PM25"},
		{"1001", "Autauga", "9.5", "7.2"},
		{"", "", "", ""},
		{"01003", "Baldwin", "8.25", "6.1"},
	})
	opts := defaultOptions(path, schema.XLSXInput)
	opts.ExposureColumn = "pm25"

	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []schema.MeasureKey{"asthma"}, ds.Measures)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "01001", ds.Records[0].ID)
	assert.InDelta(t, 8.25, *measure(t, ds.Records[1], "asthma"), 1e-12)
	assert.InDelta(t, 6.1, *ds.Records[1].Exposure, 1e-12)
}

func TestLoadShapefile(t *testing.T) {
	path := createTestShapefile(t)
	opts := defaultOptions(path, schema.ShapefileInput)
	opts.ExposureColumn = "pm25"

	ds, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []schema.MeasureKey{"asthma"}, ds.Measures)
	require.Len(t, ds.Records, 2)
	assert.Equal(t, "01001", ds.Records[0].ID)
	assert.Equal(t, "Baldwin", ds.Records[1].Name)
	assert.InDelta(t, 9.5, *measure(t, ds.Records[0], "asthma"), 1e-9)
	assert.InDelta(t, 6.1, *ds.Records[1].Exposure, 1e-9)

	// The attribute table path resolves to the same shapefile.
	opts.Path = strings.TrimSuffix(path, ".shp") + ".dbf"
	again, err := Load(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, again.Records, 2)
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		in      string
		want    *float64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: " NA ", want: nil},
		{in: "null", want: nil},
		{in: "NaN", want: nil},
		{in: "12.5", want: schema.FloatPtr(12.5)},
		{in: "1,234", want: schema.FloatPtr(1234)},
		{in: "-3e2", want: schema.FloatPtr(-300)},
		{in: "Inf", wantErr: true},
		{in: "twelve", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCell(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNumber)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func FuzzParseCell(f *testing.F) {
	for _, s := range []string{"", "NA", "1.5", "1,000", "-0", "abc", "1e400"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		v, err := parseCell(s)
		if err != nil {
			assert.Nil(t, v)
			return
		}
		if v != nil {
			assert.True(t, schema.IsValid(v))
		}
	})
}
