package loader

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// readJSON reads an array of flat objects. Column order follows the order in
// which keys first appear, so measure inference is stable across runs.
func readJSON(opts Options) (table, error) {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return table{}, eris.Wrap(err, "loader: read json")
	}
	header, rows, err := decodeJSONRows(data)
	if err != nil {
		return table{}, err
	}
	return keysFromHeader(header, rows, opts)
}

func decodeJSONRows(data []byte) ([]string, [][]string, error) {
	var objects []json.RawMessage
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, nil, eris.Wrap(err, "loader: decode json array")
	}

	var header []string
	position := make(map[string]int)
	parsed := make([]map[string]string, len(objects))
	for i, raw := range objects {
		obj, keys, err := decodeObject(raw)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "loader: decode json object %d", i+1)
		}
		for _, k := range keys {
			if _, ok := position[k]; !ok {
				position[k] = len(header)
				header = append(header, k)
			}
		}
		parsed[i] = obj
	}

	rows := make([][]string, len(parsed))
	for i, obj := range parsed {
		row := make([]string, len(header))
		for k, v := range obj {
			row[position[k]] = v
		}
		rows[i] = row
	}
	return header, rows, nil
}

// decodeObject flattens one JSON object into string cells, keeping key order.
func decodeObject(raw json.RawMessage) (map[string]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, eris.New("expected an object")
	}

	obj := make(map[string]string)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		obj[key] = jsonCell(value)
		keys = append(keys, key)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, nil, err
	}
	return obj, keys, nil
}

func jsonCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
