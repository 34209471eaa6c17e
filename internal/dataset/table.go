// Package dataset holds tabular extracts from any source in a store-neutral,
// serialization-ready form.
package dataset

import (
	"database/sql"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"time"
)

type Record map[string]any

type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

func (t Table) Len() int { return len(t.Rows) }

// Head returns a copy of the table truncated to n rows.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}
	return Table{Name: t.Name, Columns: t.Columns, Rows: t.Rows[:n]}
}

// Normalize converts driver-native values to JSON-friendly ones: times become
// RFC 3339 strings, byte slices become strings, and nested maps and slices are
// walked. Values it does not recognise are returned unchanged; callers with
// store-specific types convert those first.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().Format(time.RFC3339)
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	case sql.NullString:
		if !x.Valid {
			return nil
		}
		return x.String
	case sql.NullTime:
		if !x.Valid {
			return nil
		}
		return x.Time.UTC().Format(time.RFC3339)
	case *big.Float:
		f, _ := x.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = Normalize(val)
		}
		return out
	case Record:
		return Record(Normalize(map[string]any(x)).(map[string]any))
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = Normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

// NormalizeRecord normalizes every value of r in place and returns it.
func NormalizeRecord(r Record) Record {
	for k, v := range r {
		r[k] = Normalize(v)
	}
	return r
}

// ColumnsOf returns the sorted union of keys across rows, for sources
// without a fixed schema.
func ColumnsOf(rows []Record) []string {
	set := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			set[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(set))
	for k := range set {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	// the document id leads when present
	for i, c := range cols {
		if c == "_id" {
			copy(cols[1:i+1], cols[:i])
			cols[0] = "_id"
			break
		}
	}
	return cols
}

// String renders a normalized value as a CSV cell.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
