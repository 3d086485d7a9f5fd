package entities

import (
	"fmt"
	"strconv"
	"time"
)

// TimeSeriesRecord is a single daily observation of a series
type TimeSeriesRecord struct {
	Date  time.Time // UTC midnight
	Value float64   // Count, index level or derived score
}

// FormatValue renders a value in its shortest exact decimal form
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TimeSeriesTable converts records into a two-column table
func TimeSeriesTable(name, column string, records []TimeSeriesRecord) *Table {
	t := NewTable(name, column)
	for _, r := range records {
		t.Append(r.Date, FormatValue(r.Value))
	}
	return t
}

// TimeSeriesFromTable reads records back out of a table column. An empty column name reads
// the only column of a single-column table, whatever it is called.
func TimeSeriesFromTable(t *Table, column string) ([]TimeSeriesRecord, error) {
	idx := t.ColumnIndex(column)
	if column == "" {
		if len(t.Columns) != 1 {
			return nil, fmt.Errorf("table %s has %d columns, expected one value column", t.Name, len(t.Columns))
		}
		idx = 0
	}
	if idx < 0 {
		return nil, fmt.Errorf("table %s has no column %q", t.Name, column)
	}

	var records []TimeSeriesRecord
	for _, row := range t.Rows {
		v, err := strconv.ParseFloat(row.Values[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("table %s: invalid value %q on %s: %w", t.Name, row.Values[idx], FormatDate(row.Date), err)
		}
		records = append(records, TimeSeriesRecord{Date: row.Date, Value: v})
	}
	return records, nil
}

// DenseDaily turns per-day sums into a series covering every day from the earliest to the
// latest key; days with no entry get a zero value.
func DenseDaily(sums map[time.Time]float64) []TimeSeriesRecord {
	if len(sums) == 0 {
		return nil
	}

	var first, last time.Time
	for d := range sums {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var records []TimeSeriesRecord
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		records = append(records, TimeSeriesRecord{Date: d, Value: sums[d]})
	}
	return records
}
