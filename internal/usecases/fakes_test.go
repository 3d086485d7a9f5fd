package usecases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
	"github.com/abelzeko/nsw-pipeline/internal/repository"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeCases struct {
	calls  int
	result *integration.DatastoreResult
	err    error
}

func (f *fakeCases) Search(_ context.Context, _ string, _ int) (*integration.DatastoreResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeAnnouncements struct {
	calls int
	rows  []integration.AnnouncementRow
	err   error
}

func (f *fakeAnnouncements) FetchAnnouncementRows(context.Context) ([]integration.AnnouncementRow, error) {
	f.calls++
	return f.rows, f.err
}

type fakeTrends struct {
	calls    int
	endMonth int
	records  []entities.TimeSeriesRecord
}

func (f *fakeTrends) DailyInterest(_ context.Context, _, _ string, _, _, _, endMonth int) ([]entities.TimeSeriesRecord, error) {
	f.calls++
	f.endMonth = endMonth
	return f.records, nil
}

type fakeStringency struct {
	scoreCalls   int
	memberCalls  int
	scores       []integration.CountryScores
	members      []string
	membersError error
}

func (f *fakeStringency) FetchStayHomeScores(context.Context) ([]integration.CountryScores, error) {
	f.scoreCalls++
	return f.scores, nil
}

func (f *fakeStringency) FetchMemberCountries(context.Context) ([]string, error) {
	f.memberCalls++
	return f.members, f.membersError
}

type fakeLedger struct {
	records []entities.RefreshRecord
}

func (f *fakeLedger) SaveRefresh(r entities.RefreshRecord) error {
	f.records = append(f.records, r)
	return nil
}

func (f *fakeLedger) GetLastRefresh(dataset string) (*entities.RefreshRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].Dataset == dataset {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) GetDatasets() ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.records {
		if !seen[r.Dataset] {
			seen[r.Dataset] = true
			out = append(out, r.Dataset)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeLedger) GetLastUpdateTime() (time.Time, error) {
	if len(f.records) == 0 {
		return time.Time{}, nil
	}
	return f.records[len(f.records)-1].RefreshedAt, nil
}

func (f *fakeLedger) Close() error { return nil }

func announcementRows(n int) []integration.AnnouncementRow {
	rows := make([]integration.AnnouncementRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, integration.AnnouncementRow{
			Date:       fmt.Sprintf("%d March 2020", 16+i),
			Content:    fmt.Sprintf("Announcement %d", i),
			References: "Premier, Gladys Berejiklian, Gatherings, Media release, 16 March 2020",
		})
	}
	return rows
}

type fixture struct {
	acquirer      *Acquirer
	store         *repository.FileCacheStore
	ledger        *fakeLedger
	cases         *fakeCases
	announcements *fakeAnnouncements
	trends        *fakeTrends
	stringency    *fakeStringency
	dir           string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.NewFileCacheStore(dir, testLogger())
	require.NoError(t, err)

	f := &fixture{
		store:  store,
		ledger: &fakeLedger{},
		dir:    dir,
		cases: &fakeCases{result: &integration.DatastoreResult{
			Fields: []string{"_id", "notification_date", "postcode"},
			Records: []map[string]any{
				{"_id": "1", "notification_date": "2020-01-25", "postcode": "2121"},
				{"_id": "2", "notification_date": "2020-01-25", "postcode": "2071"},
				{"_id": "3", "notification_date": "2020-01-27", "postcode": "2000"},
			},
		}},
		announcements: &fakeAnnouncements{rows: append(announcementRows(6), integration.AnnouncementRow{
			Date:       "1 April 2020",
			Content:    "Testing expanded",
			References: "NSW Health, Testing, Statement",
		})},
		trends: &fakeTrends{records: []entities.TimeSeriesRecord{
			{Date: day(2020, 2, 1), Value: 12.5},
			{Date: day(2020, 2, 2), Value: 0},
		}},
		stringency: &fakeStringency{
			members: []string{"AUSTRALIA", "CANADA", "ICELAND"},
			scores: []integration.CountryScores{
				{Country: "Canada", Dates: []time.Time{day(2020, 3, 1), day(2020, 3, 2)}, Scores: []string{"1", ""}},
				{Country: "Australia", Dates: []time.Time{day(2020, 3, 1), day(2020, 3, 2)}, Scores: []string{"", "2"}},
				{Country: "Brazil", Dates: []time.Time{day(2020, 3, 1), day(2020, 3, 2)}, Scores: []string{"3", "3"}},
			},
		},
	}

	cfg := AcquirerConfig{
		CasesResourceID: "cases",
		TrendKeyword:    "covid",
		TrendGeo:        "AU-NSW",
		TrendStartYear:  2020,
		TrendStartMonth: 2,
		TrendEndYear:    2021,
		TrendEndMonth:   7,
		CountriesFile:   dir + "/countries.txt",
	}
	f.acquirer = NewAcquirer(Sources{
		Cases:         f.cases,
		Announcements: f.announcements,
		Trends:        f.trends,
		Stringency:    f.stringency,
	}, store, f.ledger, cfg, testLogger())
	f.acquirer.now = func() time.Time { return time.Date(2020, time.May, 10, 15, 0, 0, 0, time.UTC) }
	return f
}
