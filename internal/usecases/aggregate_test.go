package usecases

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration"
)

func TestAggregateDaily(t *testing.T) {
	tests := []struct {
		name        string
		res         *integration.DatastoreResult
		dateField   string
		countColumn string
		want        []entities.TimeSeriesRecord
	}{
		{
			name: "first non-id field counts rows",
			res: &integration.DatastoreResult{
				Fields: []string{"_id", "notification_date", "lga_name19"},
				Records: []map[string]any{
					{"notification_date": "2020-03-02"},
					{"notification_date": "2020-03-02"},
					{"notification_date": "2020-03-04"},
				},
			},
			want: []entities.TimeSeriesRecord{
				{Date: day(2020, 3, 2), Value: 2},
				{Date: day(2020, 3, 3), Value: 0},
				{Date: day(2020, 3, 4), Value: 1},
			},
		},
		{
			name: "count column summed",
			res: &integration.DatastoreResult{
				Fields: []string{"_id", "date", "confirmed_cases_count"},
				Records: []map[string]any{
					{"date": "2020-03-02", "confirmed_cases_count": json.Number("3")},
					{"date": "2020-03-02", "confirmed_cases_count": "4"},
					{"date": "2020-03-03", "confirmed_cases_count": 2.0},
				},
			},
			countColumn: "confirmed_cases_count",
			want: []entities.TimeSeriesRecord{
				{Date: day(2020, 3, 2), Value: 7},
				{Date: day(2020, 3, 3), Value: 2},
			},
		},
		{
			name: "absent count column falls back to rows",
			res: &integration.DatastoreResult{
				Fields:  []string{"_id", "date"},
				Records: []map[string]any{{"date": "2020-03-02"}},
			},
			countColumn: "confirmed_cases_count",
			want:        []entities.TimeSeriesRecord{{Date: day(2020, 3, 2), Value: 1}},
		},
		{
			name: "explicit date field and blank dates",
			res: &integration.DatastoreResult{
				Fields: []string{"_id", "postcode", "notification_date"},
				Records: []map[string]any{
					{"postcode": "2000", "notification_date": "2020-03-05T00:00:00"},
					{"postcode": "2000", "notification_date": ""},
					{"postcode": "2000"},
				},
			},
			dateField: "notification_date",
			want:      []entities.TimeSeriesRecord{{Date: day(2020, 3, 5), Value: 1}},
		},
		{
			name: "no records",
			res:  &integration.DatastoreResult{Fields: []string{"_id", "date"}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AggregateDaily(tt.res, tt.dateField, tt.countColumn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateDaily_Errors(t *testing.T) {
	_, err := AggregateDaily(&integration.DatastoreResult{Fields: []string{"_id"}}, "", "")
	assert.True(t, errors.Is(err, entities.ErrUpstream))

	_, err = AggregateDaily(&integration.DatastoreResult{
		Fields:  []string{"_id", "date"},
		Records: []map[string]any{{"date": "not a date"}},
	}, "", "")
	assert.True(t, errors.Is(err, entities.ErrUpstream))

	_, err = AggregateDaily(&integration.DatastoreResult{
		Fields:  []string{"_id", "date", "n"},
		Records: []map[string]any{{"date": "2020-03-02", "n": "many"}},
	}, "", "n")
	assert.True(t, errors.Is(err, entities.ErrUpstream))

	_, err = AggregateDaily(&integration.DatastoreResult{
		Fields:  []string{"_id", "notification_date"},
		Records: []map[string]any{{"notification_date": "2020-03-02"}},
	}, "notifcation_date", "")
	assert.True(t, errors.Is(err, entities.ErrUpstream), "date field absent from response")

	_, err = AggregateDaily(&integration.DatastoreResult{
		Fields:  []string{"_id", "date"},
		Records: []map[string]any{{"date": json.Number("20200302")}},
	}, "", "")
	assert.True(t, errors.Is(err, entities.ErrUpstream), "numeric date")

	_, err = AggregateDaily(&integration.DatastoreResult{
		Fields:  []string{"_id", "date"},
		Records: []map[string]any{{"date": nil}, {"date": " "}},
	}, "", "")
	assert.True(t, errors.Is(err, entities.ErrUpstream), "no dated records")
}
