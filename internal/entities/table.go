// Package entities contains the core domain objects for the pipeline
package entities

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO 8601 calendar-date form used in every cache file
const DateLayout = "2006-01-02"

// Row is a single date-indexed line of a Table
type Row struct {
	Date   time.Time
	Values []string // One cell per Table column, empty means missing
}

// Table is a named, date-indexed dataset; it is also the unit persisted to the cache
type Table struct {
	Name    string
	Columns []string // Column names, excluding the leading date column
	Rows    []Row
}

// NewTable creates an empty table with the given columns
func NewTable(name string, columns ...string) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
	}
}

// Append adds a row; the number of values must match the number of columns
func (t *Table) Append(date time.Time, values ...string) {
	t.Rows = append(t.Rows, Row{Date: Day(date), Values: values})
}

// ColumnIndex returns the position of a column or -1 when absent
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Validate checks that every row carries one value per column
func (t *Table) Validate() error {
	for i, row := range t.Rows {
		if len(row.Values) != len(t.Columns) {
			return fmt.Errorf("table %s: row %d has %d values, want %d", t.Name, i, len(row.Values), len(t.Columns))
		}
	}
	return nil
}

// SortByDate orders rows oldest first, keeping the relative order of equal dates
func (t *Table) SortByDate() {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].Date.Before(t.Rows[j].Date)
	})
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
	}
	if t.Rows != nil {
		out.Rows = make([]Row, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = Row{Date: row.Date, Values: append([]string(nil), row.Values...)}
		}
	}
	return out
}

// ForwardFill repeats the last known value of every column into subsequent empty cells.
// Cells before the first known value of a column stay empty.
func ForwardFill(t *Table) *Table {
	out := t.Clone()
	last := make([]string, len(out.Columns))
	for _, row := range out.Rows {
		for i, v := range row.Values {
			if v == "" {
				row.Values[i] = last[i]
				continue
			}
			last[i] = v
		}
	}
	return out
}

// JoinOnDate outer-joins tables on their date index. Tables are expected to have at most
// one row per date; if one does not, the first row for a date wins. A column whose name is
// already taken is prefixed with its table name.
func JoinOnDate(name string, tables ...*Table) *Table {
	out := NewTable(name)
	type source struct {
		table  *Table
		offset int
		byDate map[time.Time][]string
	}

	var sources []source
	dates := make(map[time.Time]struct{})
	for _, t := range tables {
		if t == nil {
			continue
		}
		src := source{table: t, offset: len(out.Columns), byDate: make(map[time.Time][]string)}
		for _, c := range t.Columns {
			column := c
			if out.ColumnIndex(column) >= 0 {
				column = t.Name + "_" + c
			}
			out.Columns = append(out.Columns, column)
		}
		for _, row := range t.Rows {
			if _, ok := src.byDate[row.Date]; ok {
				continue
			}
			src.byDate[row.Date] = row.Values
			dates[row.Date] = struct{}{}
		}
		sources = append(sources, src)
	}

	for d := range dates {
		values := make([]string, len(out.Columns))
		for _, src := range sources {
			if v, ok := src.byDate[d]; ok {
				copy(values[src.offset:], v)
			}
		}
		out.Rows = append(out.Rows, Row{Date: d, Values: values})
	}
	out.SortByDate()
	return out
}

// Day truncates a timestamp to its UTC calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO 8601 calendar date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a date in ISO 8601 calendar-date form
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
