package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

const datastoreSource = "data.nsw.gov.au"

// DatastoreResult is the part of a CKAN datastore_search response the pipeline uses
type DatastoreResult struct {
	Fields  []string         // Field ids in the order the datastore reports them
	Records []map[string]any // Numbers are decoded as json.Number
}

// DatastoreClient queries the NSW open-data CKAN datastore
type DatastoreClient struct {
	baseURL string
	http    *resty.Client
	logger  *slog.Logger
}

// NewDatastoreClient creates a client for the open-data API
func NewDatastoreClient(baseURL string, timeout time.Duration, logger *slog.Logger) *DatastoreClient {
	if baseURL == "" {
		baseURL = "https://data.nsw.gov.au"
	}
	return &DatastoreClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(timeout),
		logger:  logger,
	}
}

type datastoreResponse struct {
	Success bool `json:"success"`
	Error   any  `json:"error"`
	Result  struct {
		Fields []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"fields"`
		Records []map[string]any `json:"records"`
	} `json:"result"`
}

// Search fetches a single page of up to limit records of a datastore resource
func (c *DatastoreClient) Search(ctx context.Context, resourceID string, limit int) (*DatastoreResult, error) {
	url := c.baseURL + "/data/api/3/action/datastore_search"
	c.logger.Info("querying datastore", "resource_id", resourceID, "limit", limit)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"resource_id": resourceID,
			"limit":       strconv.Itoa(limit),
		}).
		Get(url)
	if err != nil {
		return nil, entities.NewUpstreamError(datastoreSource, "request failed", err)
	}
	if res.IsError() {
		return nil, entities.NewUpstreamError(datastoreSource, fmt.Sprintf("unexpected status code: %s", res.Status()), nil)
	}

	var body datastoreResponse
	dec := json.NewDecoder(bytes.NewReader(res.Body()))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, entities.NewUpstreamError(datastoreSource, "failed to decode response", err)
	}
	if !body.Success {
		return nil, entities.NewUpstreamError(datastoreSource, fmt.Sprintf("query unsuccessful: %v", body.Error), nil)
	}

	result := &DatastoreResult{Records: body.Result.Records}
	for _, f := range body.Result.Fields {
		result.Fields = append(result.Fields, f.ID)
	}

	c.logger.Info("datastore query complete", "resource_id", resourceID, "records", len(result.Records))
	return result, nil
}
