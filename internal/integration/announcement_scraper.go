package integration

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

const announcementsSource = "aph.gov.au"

// AnnouncementRow is one scraped chronology entry before any parsing
type AnnouncementRow struct {
	Date       string
	Content    string
	References string
}

// AnnouncementScraper scrapes the parliamentary library chronology of state announcements
type AnnouncementScraper struct {
	sourceURL  string
	tableIndex int
	http       *resty.Client
	logger     *slog.Logger
}

// NewAnnouncementScraper creates a new announcement scraper
func NewAnnouncementScraper(url string, tableIndex int, timeout time.Duration, logger *slog.Logger) *AnnouncementScraper {
	if url == "" {
		// Default source URL
		url = "https://www.aph.gov.au/About_Parliament/Parliamentary_Departments/Parliamentary_Library/pubs/rp/rp2021/Chronologies/COVID-19StateTerritoryGovernmentAnnouncements"
	}
	if tableIndex < 0 {
		tableIndex = 4
	}
	return &AnnouncementScraper{
		sourceURL:  url,
		tableIndex: tableIndex,
		http:       newHTTPClient(timeout),
		logger:     logger,
	}
}

// FetchAnnouncementRows downloads the chronology page and extracts the NSW table
func (s *AnnouncementScraper) FetchAnnouncementRows(ctx context.Context) ([]AnnouncementRow, error) {
	s.logger.Info("sending HTTP request to announcement chronology", "url", s.sourceURL)
	res, err := s.http.R().SetContext(ctx).Get(s.sourceURL)
	if err != nil {
		return nil, entities.NewUpstreamError(announcementsSource, "failed to fetch the webpage", err)
	}
	if res.IsError() {
		return nil, entities.NewUpstreamError(announcementsSource, fmt.Sprintf("unexpected status code: %s", res.Status()), nil)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, entities.NewUpstreamError(announcementsSource, "failed to parse the webpage", err)
	}

	return ParseAnnouncementTable(doc, s.tableIndex, s.logger)
}

// ParseAnnouncementTable extracts the rows of the index-th table that have exactly three
// non-empty cells. The first such row is the header and is dropped.
func ParseAnnouncementTable(doc *goquery.Document, index int, logger *slog.Logger) ([]AnnouncementRow, error) {
	tables := doc.Find("table")
	if index >= tables.Length() {
		return nil, entities.NewValidationError(entities.AnnouncementsDataset,
			"page has %d tables, expected at least %d", tables.Length(), index+1)
	}

	var rows [][]string
	rowCount := 0
	tables.Eq(index).Find("tr").Each(func(_ int, tr *goquery.Selection) {
		rowCount++
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			text := strings.TrimSpace(strings.ReplaceAll(td.Text(), "\r\n", "\n"))
			if text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) == 3 {
			rows = append(rows, cells)
		}
	})

	if len(rows) == 0 {
		logger.Warn("no three-cell rows found in announcement table", "table", index, "rows", rowCount)
		return nil, nil
	}

	// The header row is the first kept row
	var out []AnnouncementRow
	for _, cells := range rows[1:] {
		out = append(out, AnnouncementRow{Date: cells[0], Content: cells[1], References: cells[2]})
	}

	logger.Info("parsed announcement table", "table", index, "rows", rowCount, "entries", len(out))
	return out, nil
}
