package integration

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

const (
	stringencySource   = "oxcgrt"
	ratificationSource = "oecd.org"

	// Column headers of the wide table are dates such as 01Jan2020
	wideDateLayout = "02Jan2006"
)

// CountryScores is one country row of the wide stay-home-restriction table
type CountryScores struct {
	Country string
	Dates   []time.Time
	Scores  []string // Parallel to Dates, empty when the tracker has no value
}

// OECDClient downloads the per-country stay-home scores and the OECD member list
type OECDClient struct {
	stringencyURL   string
	ratificationURL string
	http            *resty.Client
	logger          *slog.Logger
}

// NewOECDClient creates a new client; empty URLs fall back to the public sources
func NewOECDClient(stringencyURL, ratificationURL string, timeout time.Duration, logger *slog.Logger) *OECDClient {
	if stringencyURL == "" {
		stringencyURL = "https://raw.githubusercontent.com/OxCGRT/covid-policy-tracker/master/data/timeseries/c6_stay_at_home_requirements.csv"
	}
	if ratificationURL == "" {
		ratificationURL = "https://www.oecd.org/about/document/ratification-oecd-convention.htm"
	}
	return &OECDClient{
		stringencyURL:   stringencyURL,
		ratificationURL: ratificationURL,
		http:            newHTTPClient(timeout),
		logger:          logger,
	}
}

// FetchStayHomeScores downloads and parses the wide stay-home-requirements table
func (c *OECDClient) FetchStayHomeScores(ctx context.Context) ([]CountryScores, error) {
	c.logger.Info("downloading stay-home restriction scores", "url", c.stringencyURL)
	res, err := c.http.R().SetContext(ctx).Get(c.stringencyURL)
	if err != nil {
		return nil, entities.NewUpstreamError(stringencySource, "failed to download scores", err)
	}
	if res.IsError() {
		return nil, entities.NewUpstreamError(stringencySource, fmt.Sprintf("unexpected status code: %s", res.Status()), nil)
	}

	scores, err := ParseWideScores(res.Body())
	if err != nil {
		return nil, entities.NewUpstreamError(stringencySource, "failed to parse scores", err)
	}
	c.logger.Info("parsed stay-home restriction scores", "countries", len(scores))
	return scores, nil
}

// ParseWideScores reads a table with one row per country and one column per date. When the
// table carries sub-national rows only the national totals are kept.
func ParseWideScores(data []byte) ([]CountryScores, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty table")
	}

	header := records[0]
	countryCol, jurisdictionCol, regionCol := -1, -1, -1
	var dateCols []int
	var dates []time.Time
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "country_name":
			countryCol = i
		case "jurisdiction":
			jurisdictionCol = i
		case "region_code":
			regionCol = i
		default:
			if d, err := time.ParseInLocation(wideDateLayout, strings.TrimSpace(h), time.UTC); err == nil {
				dateCols = append(dateCols, i)
				dates = append(dates, d)
			}
		}
	}
	if countryCol < 0 {
		return nil, fmt.Errorf("no country_name column in header")
	}
	if len(dateCols) == 0 {
		return nil, fmt.Errorf("no date columns in header")
	}

	cell := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []CountryScores
	for _, rec := range records[1:] {
		if jurisdictionCol >= 0 && cell(rec, jurisdictionCol) != "NAT_TOTAL" {
			continue
		}
		if jurisdictionCol < 0 && cell(rec, regionCol) != "" {
			continue
		}
		country := cell(rec, countryCol)
		if country == "" {
			continue
		}

		scores := make([]string, len(dateCols))
		for j, col := range dateCols {
			scores[j] = cell(rec, col)
		}
		out = append(out, CountryScores{Country: country, Dates: dates, Scores: scores})
	}
	return out, nil
}

// FetchMemberCountries scrapes the convention ratification page for member country names,
// taken from the first cell of every table row
func (c *OECDClient) FetchMemberCountries(ctx context.Context) ([]string, error) {
	c.logger.Info("scraping OECD member countries", "url", c.ratificationURL)
	res, err := c.http.R().SetContext(ctx).Get(c.ratificationURL)
	if err != nil {
		return nil, entities.NewUpstreamError(ratificationSource, "failed to fetch the webpage", err)
	}
	if res.IsError() {
		return nil, entities.NewUpstreamError(ratificationSource, fmt.Sprintf("unexpected status code: %s", res.Status()), nil)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, entities.NewUpstreamError(ratificationSource, "failed to parse the webpage", err)
	}

	var countries []string
	seen := make(map[string]bool)
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		name := strings.Join(strings.Fields(tr.Find("td").First().Text()), " ")
		if name == "" || strings.EqualFold(name, "country") || seen[strings.ToUpper(name)] {
			return
		}
		seen[strings.ToUpper(name)] = true
		countries = append(countries, name)
	})

	c.logger.Info("scraped OECD member countries", "countries", len(countries))
	return countries, nil
}
