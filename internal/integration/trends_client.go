package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

const trendsSource = "trends.google.com"

// TrendsClient reads interest-over-time series from Google Trends
type TrendsClient struct {
	baseURL  string
	http     *resty.Client
	pause    time.Duration
	logger   *slog.Logger
	hasToken bool
}

// NewTrendsClient creates a client. pause is slept between consecutive requests to stay
// under the unofficial API's rate limit.
func NewTrendsClient(baseURL string, timeout, pause time.Duration, logger *slog.Logger) *TrendsClient {
	if baseURL == "" {
		baseURL = "https://trends.google.com"
	}
	return &TrendsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(timeout),
		pause:   pause,
		logger:  logger,
	}
}

type exploreResponse struct {
	Widgets []struct {
		ID      string          `json:"id"`
		Token   string          `json:"token"`
		Request json.RawMessage `json:"request"`
	} `json:"widgets"`
}

type multilineResponse struct {
	Default struct {
		TimelineData []struct {
			Time    string    `json:"time"`
			Value   []float64 `json:"value"`
			HasData []bool    `json:"hasData"`
		} `json:"timelineData"`
	} `json:"default"`
}

// Interest returns the interest series for a keyword and region between two dates. The
// granularity is chosen by Google from the length of the window.
func (c *TrendsClient) Interest(ctx context.Context, keyword, geo string, from, to time.Time) ([]entities.TimeSeriesRecord, error) {
	if err := c.ensureSession(ctx, geo); err != nil {
		return nil, err
	}

	timeframe := entities.FormatDate(from) + " " + entities.FormatDate(to)
	req, err := json.Marshal(map[string]any{
		"comparisonItem": []map[string]string{{"keyword": keyword, "time": timeframe, "geo": geo}},
		"category":       0,
		"property":       "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode explore request: %w", err)
	}

	var explore exploreResponse
	if err := c.getJSON(ctx, "/trends/api/explore", map[string]string{"req": string(req)}, &explore); err != nil {
		return nil, err
	}

	var token string
	var widgetReq json.RawMessage
	for _, w := range explore.Widgets {
		if w.ID == "TIMESERIES" {
			token, widgetReq = w.Token, w.Request
			break
		}
	}
	if token == "" {
		return nil, entities.NewUpstreamError(trendsSource, "explore response has no TIMESERIES widget", nil)
	}

	var multiline multilineResponse
	params := map[string]string{"req": string(widgetReq), "token": token}
	if err := c.getJSON(ctx, "/trends/api/widgetdata/multiline", params, &multiline); err != nil {
		return nil, err
	}

	var records []entities.TimeSeriesRecord
	for _, point := range multiline.Default.TimelineData {
		if len(point.Value) == 0 || (len(point.HasData) > 0 && !point.HasData[0]) {
			continue
		}
		secs, err := strconv.ParseInt(point.Time, 10, 64)
		if err != nil {
			return nil, entities.NewUpstreamError(trendsSource, fmt.Sprintf("invalid timestamp %q", point.Time), err)
		}
		records = append(records, entities.TimeSeriesRecord{
			Date:  entities.Day(time.Unix(secs, 0).UTC()),
			Value: point.Value[0],
		})
	}

	c.logger.Debug("fetched trend window", "keyword", keyword, "geo", geo, "timeframe", timeframe, "points", len(records))
	return records, nil
}

// DailyInterest stitches daily data across a range of months. Google only serves daily
// granularity for short windows, each normalised to its own peak, so every month is fetched
// separately and rescaled by the overall series for the whole range.
func (c *TrendsClient) DailyInterest(ctx context.Context, keyword, geo string, startYear, startMonth, endYear, endMonth int) ([]entities.TimeSeriesRecord, error) {
	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	stop := time.Date(endYear, time.Month(endMonth)+1, 0, 0, 0, 0, 0, time.UTC)
	if stop.Before(start) {
		return nil, fmt.Errorf("trend range ends (%s) before it starts (%s)", entities.FormatDate(stop), entities.FormatDate(start))
	}

	c.logger.Info("fetching daily trend data, this takes a while", "keyword", keyword, "geo", geo,
		"from", entities.FormatDate(start), "to", entities.FormatDate(stop))

	overall, err := c.Interest(ctx, keyword, geo, start, stop)
	if err != nil {
		return nil, err
	}

	var daily []entities.TimeSeriesRecord
	for month := start; !month.After(stop); month = month.AddDate(0, 1, 0) {
		if err := c.sleep(ctx); err != nil {
			return nil, err
		}
		last := month.AddDate(0, 1, -1)
		window, err := c.Interest(ctx, keyword, geo, month, last)
		if err != nil {
			return nil, err
		}
		daily = append(daily, window...)
	}

	return ScaleDaily(daily, overall), nil
}

// ScaleDaily rescales per-window daily values by the forward-filled overall series:
// value = daily * overall / 100. Days before the first overall point are dropped.
func ScaleDaily(daily, overall []entities.TimeSeriesRecord) []entities.TimeSeriesRecord {
	sorted := append([]entities.TimeSeriesRecord(nil), overall...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var out []entities.TimeSeriesRecord
	for _, d := range daily {
		i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Date.After(d.Date) })
		if i == 0 {
			continue
		}
		out = append(out, entities.TimeSeriesRecord{
			Date:  d.Date,
			Value: d.Value * sorted[i-1].Value / 100,
		})
	}
	return out
}

func (c *TrendsClient) ensureSession(ctx context.Context, geo string) error {
	if c.hasToken {
		return nil
	}
	country, _, _ := strings.Cut(geo, "-")
	res, err := c.http.R().SetContext(ctx).SetQueryParam("geo", country).Get(c.baseURL + "/")
	if err != nil {
		return entities.NewUpstreamError(trendsSource, "failed to obtain session cookie", err)
	}
	if res.IsError() {
		return entities.NewUpstreamError(trendsSource, fmt.Sprintf("unexpected status code: %s", res.Status()), nil)
	}
	c.hasToken = true
	return nil
}

// getJSON calls an API endpoint and decodes the JSON that follows Google's anti-XSSI prefix
func (c *TrendsClient) getJSON(ctx context.Context, path string, params map[string]string, out any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"hl": "en-US", "tz": "360"}).
		SetQueryParams(params).
		Get(c.baseURL + path)
	if err != nil {
		return entities.NewUpstreamError(trendsSource, "request to "+path+" failed", err)
	}
	if res.IsError() {
		return entities.NewUpstreamError(trendsSource, fmt.Sprintf("%s: unexpected status code: %s", path, res.Status()), nil)
	}

	body := res.Body()
	start := bytes.IndexByte(body, '{')
	if start < 0 {
		return entities.NewUpstreamError(trendsSource, path+": response carries no JSON object", nil)
	}
	if err := json.Unmarshal(body[start:], out); err != nil {
		return entities.NewUpstreamError(trendsSource, path+": failed to decode response", err)
	}
	return nil
}

func (c *TrendsClient) sleep(ctx context.Context) error {
	if c.pause <= 0 {
		return nil
	}
	select {
	case <-time.After(c.pause):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
