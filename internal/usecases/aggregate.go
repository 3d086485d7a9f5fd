package usecases

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
)

// AggregateDaily turns datastore records into a dense daily series. The date comes from
// dateField, or from the first field other than _id when dateField is empty. If countColumn
// names an existing field its integer values are summed per day; otherwise each record
// counts as one. Records with a null or blank date are skipped; a response where no record
// carries a date is an UpstreamError.
func AggregateDaily(res *integration.DatastoreResult, dateField, countColumn string) ([]entities.TimeSeriesRecord, error) {
	if dateField == "" {
		for _, f := range res.Fields {
			if f != "_id" {
				dateField = f
				break
			}
		}
	}
	if dateField == "" {
		return nil, entities.NewUpstreamError("data.nsw.gov.au", "response lists no fields to take the date from", nil)
	}
	if !hasField(res.Fields, dateField) {
		return nil, entities.NewUpstreamError("data.nsw.gov.au",
			fmt.Sprintf("date field %q not among response fields %v", dateField, res.Fields), nil)
	}
	useCounts := countColumn != "" && hasField(res.Fields, countColumn)

	sums := make(map[time.Time]float64)
	dated := 0
	for i, rec := range res.Records {
		value, ok := rec[dateField]
		if !ok || value == nil {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			return nil, entities.NewUpstreamError("data.nsw.gov.au", fmt.Sprintf("record %d: date %v is a %T, not a string", i, value, value), nil)
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		date, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			return nil, entities.NewUpstreamError("data.nsw.gov.au", fmt.Sprintf("record %d: invalid date %q", i, raw), err)
		}

		n := int64(1)
		if useCounts {
			n, err = toInt(rec[countColumn])
			if err != nil {
				return nil, entities.NewUpstreamError("data.nsw.gov.au", fmt.Sprintf("record %d: invalid %s", i, countColumn), err)
			}
		}
		sums[entities.Day(date)] += float64(n)
		dated++
	}

	if dated == 0 && len(res.Records) > 0 {
		return nil, entities.NewUpstreamError("data.nsw.gov.au",
			fmt.Sprintf("none of %d records has a %s value", len(res.Records), dateField), nil)
	}

	return entities.DenseDaily(sums), nil
}

// toInt casts a decoded JSON value to an integer, truncating integral floats
func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return int64(math.Trunc(f)), nil
	case float64:
		return int64(math.Trunc(x)), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func hasField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}
