// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/araddon/dateparse"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
	"github.com/abelzeko/nsw-pipeline/internal/repository"
)

// caseQueryLimit is the single-page size requested from the open-data API
const caseQueryLimit = 100000

// minAnnouncements is the sanity floor that catches chronology page drift
const minAnnouncements = 6

// NSWBreakpoints are the gathering limits in force in NSW during the first lockdown.
// Sources: theguardian.com "Australia's coronavirus lockdown: the first 50 days" and
// deborahalupton.medium.com "Timeline of COVID-19 in Australia".
var NSWBreakpoints = []entities.Breakpoint{
	{Date: time.Date(2020, time.March, 16, 0, 0, 0, 0, time.UTC), Limit: 500}, // gatherings over 500 forbidden
	{Date: time.Date(2020, time.March, 18, 0, 0, 0, 0, time.UTC), Limit: 100},
	{Date: time.Date(2020, time.March, 19, 0, 0, 0, 0, time.UTC), Limit: 50},
	{Date: time.Date(2020, time.March, 24, 0, 0, 0, 0, time.UTC), Limit: 10},
	{Date: time.Date(2020, time.March, 27, 0, 0, 0, 0, time.UTC), Limit: 5},  // exercise groups limited
	{Date: time.Date(2020, time.March, 29, 0, 0, 0, 0, time.UTC), Limit: 2},
	{Date: time.Date(2020, time.March, 30, 0, 0, 0, 0, time.UTC), Limit: 1},  // fines enforced, public health orders
	{Date: time.Date(2020, time.April, 29, 0, 0, 0, 0, time.UTC), Limit: 2},  // family visits allowed
	{Date: time.Date(2020, time.May, 1, 0, 0, 0, 0, time.UTC), Limit: 10},    // picnics within 50km of home
	{Date: time.Date(2020, time.May, 8, 0, 0, 0, 0, time.UTC), Limit: 15},    // three stage plan announced
}

// CaseCountSource queries the open-data datastore
type CaseCountSource interface {
	Search(ctx context.Context, resourceID string, limit int) (*integration.DatastoreResult, error)
}

// AnnouncementSource scrapes the announcement chronology
type AnnouncementSource interface {
	FetchAnnouncementRows(ctx context.Context) ([]integration.AnnouncementRow, error)
}

// TrendSource provides daily search-interest data
type TrendSource interface {
	DailyInterest(ctx context.Context, keyword, geo string, startYear, startMonth, endYear, endMonth int) ([]entities.TimeSeriesRecord, error)
}

// StringencySource provides the OECD stay-home restriction scores and the member list
type StringencySource interface {
	FetchStayHomeScores(ctx context.Context) ([]integration.CountryScores, error)
	FetchMemberCountries(ctx context.Context) ([]string, error)
}

// RefreshRecorder stores a ledger entry per refreshed dataset
type RefreshRecorder interface {
	SaveRefresh(record entities.RefreshRecord) error
}

// Sources groups the external collaborators of the Acquirer
type Sources struct {
	Cases         CaseCountSource
	Announcements AnnouncementSource
	Trends        TrendSource
	Stringency    StringencySource
}

// AcquirerConfig holds the fixed query parameters of each source
type AcquirerConfig struct {
	CasesResourceID  string
	CasesDateField   string // Empty selects the first non-_id field
	CasesCountColumn string // Empty or absent counts rows instead
	TrendKeyword     string
	TrendGeo         string
	TrendStartYear   int
	TrendStartMonth  int
	TrendEndYear     int
	TrendEndMonth    int // Used by FetchAll
	CountriesFile    string
	Breakpoints      []entities.Breakpoint
}

// Acquirer produces every dataset either from its source or from the cache
type Acquirer struct {
	sources   Sources
	store     repository.CacheStore
	refreshes RefreshRecorder
	cfg       AcquirerConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewAcquirer creates a new acquirer. refreshes may be nil to skip the ledger.
func NewAcquirer(sources Sources, store repository.CacheStore, refreshes RefreshRecorder, cfg AcquirerConfig, logger *slog.Logger) *Acquirer {
	if cfg.Breakpoints == nil {
		cfg.Breakpoints = NSWBreakpoints
	}
	return &Acquirer{
		sources:   sources,
		store:     store,
		refreshes: refreshes,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// FetchCaseCounts returns daily case counts
func (a *Acquirer) FetchCaseCounts(ctx context.Context, useCache bool) ([]entities.TimeSeriesRecord, error) {
	codec := timeSeriesCodec("count")
	return cachedFetch(ctx, a, entities.CasesDataset, useCache, codec, func(ctx context.Context) ([]entities.TimeSeriesRecord, error) {
		res, err := a.sources.Cases.Search(ctx, a.cfg.CasesResourceID, caseQueryLimit)
		if err != nil {
			return nil, err
		}
		records, err := AggregateDaily(res, a.cfg.CasesDateField, a.cfg.CasesCountColumn)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			a.logger.Info("case counts aggregated",
				"from", entities.FormatDate(records[0].Date),
				"to", entities.FormatDate(records[len(records)-1].Date),
				"days", len(records))
		}
		return records, nil
	})
}

// FetchAnnouncements returns the scraped NSW announcement chronology
func (a *Acquirer) FetchAnnouncements(ctx context.Context, useCache bool) ([]entities.AnnouncementRecord, error) {
	codec := tableCodec[[]entities.AnnouncementRecord]{
		toTable:   entities.AnnouncementTable,
		fromTable: entities.AnnouncementsFromTable,
	}
	return cachedFetch(ctx, a, entities.AnnouncementsDataset, useCache, codec, func(ctx context.Context) ([]entities.AnnouncementRecord, error) {
		rows, err := a.sources.Announcements.FetchAnnouncementRows(ctx)
		if err != nil {
			return nil, err
		}

		var records []entities.AnnouncementRecord
		for _, row := range rows {
			date, err := dateparse.ParseIn(row.Date, time.UTC)
			if err != nil {
				return nil, entities.NewUpstreamError("aph.gov.au", fmt.Sprintf("invalid announcement date %q", row.Date), err)
			}
			rec, ok := entities.NewAnnouncement(date, row.Content, row.References)
			if !ok {
				a.logger.Warn("references did not split into four fields", "date", row.Date, "references", row.References)
			}
			records = append(records, rec)
		}

		if len(records) < minAnnouncements {
			return nil, entities.NewValidationError(entities.AnnouncementsDataset,
				"scraped %d announcements, expected at least %d; the page structure may have changed", len(records), minAnnouncements)
		}
		return records, nil
	})
}

// FetchTrendIndex returns the daily search-interest index up to endMonth of the configured end year
func (a *Acquirer) FetchTrendIndex(ctx context.Context, useCache bool, endMonth int) ([]entities.TimeSeriesRecord, error) {
	// The cache column carries the keyword of the refresh; reads accept any single column so a
	// changed keyword still finds the cached series.
	codec := timeSeriesCodec(a.cfg.TrendKeyword)
	codec.fromTable = func(t *entities.Table) ([]entities.TimeSeriesRecord, error) {
		return entities.TimeSeriesFromTable(t, "")
	}
	return cachedFetch(ctx, a, entities.TrendIndexDataset, useCache, codec, func(ctx context.Context) ([]entities.TimeSeriesRecord, error) {
		if endMonth < 1 || endMonth > 12 {
			return nil, entities.NewValidationError(entities.TrendIndexDataset, "end month must be within 1..12, got %d", endMonth)
		}
		return a.sources.Trends.DailyInterest(ctx, a.cfg.TrendKeyword, a.cfg.TrendGeo,
			a.cfg.TrendStartYear, a.cfg.TrendStartMonth, a.cfg.TrendEndYear, endMonth)
	})
}

// FetchRestrictionTimeline returns the dense daily gathering-limit series
func (a *Acquirer) FetchRestrictionTimeline(ctx context.Context, useCache bool) ([]entities.RestrictionEvent, error) {
	codec := tableCodec[[]entities.RestrictionEvent]{
		toTable:   entities.RestrictionTable,
		fromTable: entities.RestrictionsFromTable,
	}
	return cachedFetch(ctx, a, entities.RestrictionsDataset, useCache, codec, func(ctx context.Context) ([]entities.RestrictionEvent, error) {
		return entities.ExpandBreakpoints(a.cfg.Breakpoints, a.now())
	})
}

// FetchOECDRestrictions returns the stay-home restriction scores of allow-listed countries,
// one column per country
func (a *Acquirer) FetchOECDRestrictions(ctx context.Context, useCache bool) (*entities.Table, error) {
	codec := tableCodec[*entities.Table]{
		toTable: func(name string, t *entities.Table) *entities.Table {
			t.Name = name
			return t
		},
		fromTable: func(t *entities.Table) (*entities.Table, error) { return t, nil },
	}
	return cachedFetch(ctx, a, entities.OECDRestrictionsDataset, useCache, codec, func(ctx context.Context) (*entities.Table, error) {
		countries, err := a.loadCountries(ctx)
		if err != nil {
			return nil, err
		}
		scores, err := a.sources.Stringency.FetchStayHomeScores(ctx)
		if err != nil {
			return nil, err
		}

		table, missing := PivotCountries(entities.OECDRestrictionsDataset, scores, countries)
		if len(missing) > 0 {
			a.logger.Warn("allow-listed countries absent from restriction scores", "countries", missing)
		}
		if len(table.Columns) == 0 {
			return nil, entities.NewValidationError(entities.OECDRestrictionsDataset, "none of %d allow-listed countries found in the scores", len(countries))
		}
		return entities.ForwardFill(table), nil
	})
}

// FetchAll acquires every dataset in a fixed order. The first failure aborts the run; caches
// written by earlier datasets in the same run are left in place.
func (a *Acquirer) FetchAll(ctx context.Context, useCache bool) (*entities.Datasets, error) {
	var out entities.Datasets
	var err error

	if out.Cases, err = a.FetchCaseCounts(ctx, useCache); err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", entities.CasesDataset, err)
	}
	if out.Announcements, err = a.FetchAnnouncements(ctx, useCache); err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", entities.AnnouncementsDataset, err)
	}
	if out.TrendIndex, err = a.FetchTrendIndex(ctx, useCache, a.cfg.TrendEndMonth); err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", entities.TrendIndexDataset, err)
	}
	out.TrendKeyword = a.cfg.TrendKeyword
	if out.Restrictions, err = a.FetchRestrictionTimeline(ctx, useCache); err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", entities.RestrictionsDataset, err)
	}
	if out.OECDRestrictions, err = a.FetchOECDRestrictions(ctx, useCache); err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", entities.OECDRestrictionsDataset, err)
	}

	a.logger.Info("all datasets acquired", "cached", useCache)
	return &out, nil
}

func timeSeriesCodec(column string) tableCodec[[]entities.TimeSeriesRecord] {
	return tableCodec[[]entities.TimeSeriesRecord]{
		toTable: func(name string, records []entities.TimeSeriesRecord) *entities.Table {
			return entities.TimeSeriesTable(name, column, records)
		},
		fromTable: func(t *entities.Table) ([]entities.TimeSeriesRecord, error) {
			return entities.TimeSeriesFromTable(t, column)
		},
	}
}
