package sqlext

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResultSet is a fully buffered query result with a JDBC-style cursor:
// row 0 is before the first row and len(rows)+1 is after the last.
type ResultSet struct {
	cols   []string
	rows   [][]any
	cursor int
}

func buffer(rows *sql.Rows) (*ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{cols: cols}
	for rows.Next() {
		row := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(rs.rows)+1, err)
		}
		for i, v := range row {
			// Drivers may reuse byte buffers between rows.
			if b, ok := v.([]byte); ok {
				row[i] = append([]byte(nil), b...)
			}
		}
		rs.rows = append(rs.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *ResultSet) Len() int          { return len(rs.rows) }
func (rs *ResultSet) Columns() []string { return rs.cols }

func (rs *ResultSet) Next() bool {
	if rs.cursor <= len(rs.rows) {
		rs.cursor++
	}
	return rs.cursor <= len(rs.rows)
}

func (rs *ResultSet) Previous() bool {
	if rs.cursor > 0 {
		rs.cursor--
	}
	return rs.cursor >= 1
}

func (rs *ResultSet) First() bool {
	if len(rs.rows) == 0 {
		return false
	}
	rs.cursor = 1
	return true
}

func (rs *ResultSet) Last() bool {
	if len(rs.rows) == 0 {
		return false
	}
	rs.cursor = len(rs.rows)
	return true
}

func (rs *ResultSet) BeforeFirst() { rs.cursor = 0 }
func (rs *ResultSet) AfterLast()   { rs.cursor = len(rs.rows) + 1 }

func (rs *ResultSet) IsBeforeFirst() bool { return len(rs.rows) > 0 && rs.cursor == 0 }
func (rs *ResultSet) IsAfterLast() bool   { return len(rs.rows) > 0 && rs.cursor > len(rs.rows) }
func (rs *ResultSet) IsFirst() bool       { return len(rs.rows) > 0 && rs.cursor == 1 }
func (rs *ResultSet) IsLast() bool        { return len(rs.rows) > 0 && rs.cursor == len(rs.rows) }

// Row is the 1-based current row, or 0 when the cursor is off the rows.
func (rs *ResultSet) Row() int {
	if rs.cursor < 1 || rs.cursor > len(rs.rows) {
		return 0
	}
	return rs.cursor
}

// FindColumn returns the 1-based index of a column, matched without regard
// to case, or 0.
func (rs *ResultSet) FindColumn(name string) int {
	for i, c := range rs.cols {
		if strings.EqualFold(c, name) {
			return i + 1
		}
	}
	return 0
}

// Value returns the raw value of a 1-based column on the current row.
func (rs *ResultSet) Value(col int) (any, error) {
	if rs.Row() == 0 {
		return nil, ErrNoRow
	}
	if col < 1 || col > len(rs.cols) {
		return nil, fmt.Errorf("%w: index %d", ErrNoColumn, col)
	}
	return rs.rows[rs.cursor-1][col-1], nil
}

// ValueByName is Value addressed by column label.
func (rs *ResultSet) ValueByName(name string) (any, error) {
	col := rs.FindColumn(name)
	if col == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return rs.Value(col)
}

// The conversions below follow the JDBC getters: NULL reads as the zero
// value, numbers and strings convert where they can.

func AsString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

func AsInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
	case string, []byte:
		s := strings.TrimSpace(AsString(x))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	case time.Time:
		return x.Unix()
	}
	return 0
}

func AsFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
	case string, []byte:
		if f, err := strconv.ParseFloat(strings.TrimSpace(AsString(x)), 64); err == nil {
			return f
		}
	}
	return 0
}

func AsBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string, []byte:
		s := strings.TrimSpace(AsString(x))
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return AsInt64(s) != 0
	}
	return AsInt64(v) != 0
}
