package entities

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Breakpoint is a date on which the allowed gathering size changed
type Breakpoint struct {
	Date  time.Time
	Limit int // Largest gathering allowed from Date onwards
}

// RestrictionEvent is one day of the dense restriction series
type RestrictionEvent struct {
	Date     time.Time
	Limit    int
	Severity int
}

// Severity inverts a gathering limit so that a higher score means stricter rules
func Severity(limit int) int {
	return 100 / limit
}

// ExpandBreakpoints produces one event per calendar day from the first breakpoint through
// `through` (or the last breakpoint if that is later). Days without their own breakpoint
// carry the most recent prior limit. When two breakpoints share a date the later one in
// the input wins.
func ExpandBreakpoints(breakpoints []Breakpoint, through time.Time) ([]RestrictionEvent, error) {
	if len(breakpoints) == 0 {
		return nil, nil
	}

	limits := make(map[time.Time]int, len(breakpoints))
	for _, b := range breakpoints {
		if b.Limit <= 0 {
			return nil, fmt.Errorf("breakpoint %s: limit must be positive, got %d", FormatDate(b.Date), b.Limit)
		}
		limits[Day(b.Date)] = b.Limit
	}

	days := make([]time.Time, 0, len(limits))
	for d := range limits {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	end := Day(through)
	if last := days[len(days)-1]; end.Before(last) {
		end = last
	}

	var events []RestrictionEvent
	limit := 0
	for d := days[0]; !d.After(end); d = d.AddDate(0, 0, 1) {
		if l, ok := limits[d]; ok {
			limit = l
		}
		events = append(events, RestrictionEvent{
			Date:     d,
			Limit:    limit,
			Severity: Severity(limit),
		})
	}
	return events, nil
}

// RestrictionTable converts events into the cached table form
func RestrictionTable(name string, events []RestrictionEvent) *Table {
	t := NewTable(name, "restriction", "severity")
	for _, e := range events {
		t.Append(e.Date, strconv.Itoa(e.Limit), strconv.Itoa(e.Severity))
	}
	return t
}

// RestrictionsFromTable reads events back out of a cached table
func RestrictionsFromTable(t *Table) ([]RestrictionEvent, error) {
	li, si := t.ColumnIndex("restriction"), t.ColumnIndex("severity")
	if li < 0 || si < 0 {
		return nil, fmt.Errorf("table %s lacks restriction/severity columns", t.Name)
	}

	var events []RestrictionEvent
	for _, row := range t.Rows {
		limit, err := strconv.Atoi(row.Values[li])
		if err != nil {
			return nil, fmt.Errorf("table %s: invalid restriction %q: %w", t.Name, row.Values[li], err)
		}
		severity, err := strconv.Atoi(row.Values[si])
		if err != nil {
			return nil, fmt.Errorf("table %s: invalid severity %q: %w", t.Name, row.Values[si], err)
		}
		events = append(events, RestrictionEvent{Date: row.Date, Limit: limit, Severity: severity})
	}
	return events, nil
}
