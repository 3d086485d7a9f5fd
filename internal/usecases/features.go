package usecases

import (
	"fmt"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

// LagFeatures appends a <column>_lag<k> column for every column and lag k, holding the value
// k rows earlier. The first max(lags) rows lack a complete history and are dropped. Rows are
// expected to be sorted by date with one row per day.
func LagFeatures(table *entities.Table, lags []int) *entities.Table {
	maxLag := 0
	for _, k := range lags {
		if k > maxLag {
			maxLag = k
		}
	}

	out := entities.NewTable(table.Name, table.Columns...)
	for _, k := range lags {
		for _, c := range table.Columns {
			out.Columns = append(out.Columns, fmt.Sprintf("%s_lag%d", c, k))
		}
	}

	for i := maxLag; i < len(table.Rows); i++ {
		values := append([]string(nil), table.Rows[i].Values...)
		for _, k := range lags {
			values = append(values, table.Rows[i-k].Values...)
		}
		out.Rows = append(out.Rows, entities.Row{Date: table.Rows[i].Date, Values: values})
	}
	return out
}
