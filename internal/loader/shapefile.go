package loader

import (
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
)

// readShapefile reads the attribute table of a shapefile. Geometry is ignored;
// a .dbf path is accepted and resolved to its sibling .shp file.
func readShapefile(opts Options) (table, error) {
	path := opts.Path
	if strings.EqualFold(filepath.Ext(path), ".dbf") {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".shp"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return table{}, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = strings.TrimRight(f.String(), "\x00")
	}

	var rows [][]string
	for reader.Next() {
		row := make([]string, len(fields))
		for i := range fields {
			row[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}
		rows = append(rows, row)
	}
	if err := reader.Err(); err != nil {
		return table{}, eris.Wrap(err, "loader: read shapefile records")
	}
	return keysFromHeader(header, rows, opts)
}
