package entities

import (
	"fmt"
	"strings"
	"time"
)

// AnnouncementColumns are the cache columns of the announcements dataset
var AnnouncementColumns = []string{"content", "source", "theme", "medium", "date_released"}

// AnnouncementRecord is one row of the state government announcement chronology
type AnnouncementRecord struct {
	Date        time.Time
	Content     string
	Source      string
	Theme       string
	Medium      string
	ReleaseDate *string // nil when the reference carries no release date
}

// SplitReferences splits a comma-delimited reference string into its positional fields.
//
// A 5-field split means a personal name was written across two fields; those are merged
// so the result has 4 fields. A 3-field split has no release date and is padded with an
// empty fourth field. Any other field count is returned unmodified.
func SplitReferences(references string) []string {
	parts := strings.Split(strings.Join(strings.Fields(references), " "), ",")
	switch len(parts) {
	case 5:
		parts = append([]string{parts[0] + parts[1]}, parts[2:]...)
	case 3:
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// NewAnnouncement builds a record from a scraped row. The returned flag is false when the
// references did not split into exactly four fields; the record then holds whatever
// positional fields were present.
func NewAnnouncement(date time.Time, content, references string) (AnnouncementRecord, bool) {
	parts := SplitReferences(references)
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	rec := AnnouncementRecord{
		Date:        Day(date),
		Content:     content,
		Source:      field(0),
		Theme:       field(1),
		Medium:      field(2),
		ReleaseDate: optional(field(3)),
	}
	return rec, len(parts) == 4
}

// AnnouncementTable converts records into the cached table form
func AnnouncementTable(name string, records []AnnouncementRecord) *Table {
	t := NewTable(name, AnnouncementColumns...)
	for _, r := range records {
		released := ""
		if r.ReleaseDate != nil {
			released = *r.ReleaseDate
		}
		t.Append(r.Date, r.Content, r.Source, r.Theme, r.Medium, released)
	}
	return t
}

// AnnouncementsFromTable reads records back out of a cached table
func AnnouncementsFromTable(t *Table) ([]AnnouncementRecord, error) {
	idx := make([]int, len(AnnouncementColumns))
	for i, c := range AnnouncementColumns {
		idx[i] = t.ColumnIndex(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("table %s has no column %q", t.Name, c)
		}
	}

	var records []AnnouncementRecord
	for _, row := range t.Rows {
		records = append(records, AnnouncementRecord{
			Date:        row.Date,
			Content:     row.Values[idx[0]],
			Source:      row.Values[idx[1]],
			Theme:       row.Values[idx[2]],
			Medium:      row.Values[idx[3]],
			ReleaseDate: optional(row.Values[idx[4]]),
		})
	}
	return records, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
