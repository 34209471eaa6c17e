package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/cinemalab/cinema-data/internal/dataset"
)

// EncodeCSV writes a header row followed by one row per record, in column order.
func EncodeCSV(t dataset.Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Rows {
		for i, col := range t.Columns {
			v := rec[col]
			switch v.(type) {
			case map[string]any, []any, dataset.Record:
				b, err := json.Marshal(v)
				if err != nil {
					return nil, errors.Wrapf(err, "encode %s.%s", t.Name, col)
				}
				row[i] = string(b)
			default:
				row[i] = dataset.String(v)
			}
		}
		if err := w.Write(row); err != nil {
			return nil, errors.Wrap(err, "write csv row")
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// EncodeJSON writes the rows as an indented JSON array.
func EncodeJSON(t dataset.Table) ([]byte, error) {
	rows := t.Rows
	if rows == nil {
		rows = []dataset.Record{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s as json", t.Name)
	}
	return b, nil
}
