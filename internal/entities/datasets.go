package entities

import "time"

// Dataset names, also used as cache keys
const (
	CasesDataset            = "cases"
	AnnouncementsDataset    = "announcements"
	TrendIndexDataset       = "trend_index"
	RestrictionsDataset     = "restrictions"
	OECDRestrictionsDataset = "oecd_restrictions"
)

// DatasetNames lists every dataset in the order FetchAll acquires them
var DatasetNames = []string{
	CasesDataset,
	AnnouncementsDataset,
	TrendIndexDataset,
	RestrictionsDataset,
	OECDRestrictionsDataset,
}

// Datasets is the full output of one acquisition run
type Datasets struct {
	Cases            []TimeSeriesRecord
	Announcements    []AnnouncementRecord
	TrendIndex       []TimeSeriesRecord
	TrendKeyword     string
	Restrictions     []RestrictionEvent
	OECDRestrictions *Table
}

// Tables returns each dataset in its cached table form, keyed by dataset name
func (d *Datasets) Tables() map[string]*Table {
	return map[string]*Table{
		CasesDataset:            TimeSeriesTable(CasesDataset, "count", d.Cases),
		AnnouncementsDataset:    AnnouncementTable(AnnouncementsDataset, d.Announcements),
		TrendIndexDataset:       TimeSeriesTable(TrendIndexDataset, d.trendColumn(), d.TrendIndex),
		RestrictionsDataset:     RestrictionTable(RestrictionsDataset, d.Restrictions),
		OECDRestrictionsDataset: d.OECDRestrictions,
	}
}

// Joined merges the time-series datasets into one wide table on the shared date index.
// Announcements contribute a per-day count.
func (d *Datasets) Joined() *Table {
	counts := make(map[time.Time]float64)
	for _, a := range d.Announcements {
		counts[a.Date]++
	}

	return JoinOnDate("joined",
		TimeSeriesTable(CasesDataset, "cases", d.Cases),
		TimeSeriesTable(AnnouncementsDataset, "announcements", DenseDaily(counts)),
		TimeSeriesTable(TrendIndexDataset, d.trendColumn(), d.TrendIndex),
		RestrictionTable(RestrictionsDataset, d.Restrictions),
		d.OECDRestrictions,
	)
}

func (d *Datasets) trendColumn() string {
	if d.TrendKeyword == "" {
		return "trend"
	}
	return d.TrendKeyword
}
