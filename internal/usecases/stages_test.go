package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

func sampleTable() *entities.Table {
	t := entities.NewTable("joined", "cases", "severity")
	t.Append(day(2020, 3, 1), "1", "")
	t.Append(day(2020, 3, 2), "", "0")
	t.Append(day(2020, 3, 3), "4", "")
	t.Append(day(2020, 3, 4), "5", "100")
	return t
}

func TestLagFeatures(t *testing.T) {
	out := LagFeatures(sampleTable(), []int{1, 2})

	assert.Equal(t, []string{"cases", "severity", "cases_lag1", "severity_lag1", "cases_lag2", "severity_lag2"}, out.Columns)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, day(2020, 3, 3), out.Rows[0].Date)
	assert.Equal(t, []string{"4", "", "", "0", "1", ""}, out.Rows[0].Values)
	assert.Equal(t, []string{"5", "100", "4", "", "", "0"}, out.Rows[1].Values)
}

func TestLagFeatures_LongerThanTable(t *testing.T) {
	out := LagFeatures(sampleTable(), []int{7})
	assert.Empty(t, out.Rows)
	assert.Len(t, out.Columns, 4)
}

func TestStageSelection(t *testing.T) {
	logger := testLogger()

	_, err := NewCleaner("median", logger)
	assert.Error(t, err)
	_, err = NewPreprocessor("lag", nil, logger)
	assert.Error(t, err)
	_, err = NewPreprocessor("lag", []int{0}, logger)
	assert.Error(t, err)
	_, err = NewPreprocessor("lag", []int{1, 7, 1}, logger)
	assert.ErrorContains(t, err, "lag 1 listed more than once")
	_, err = NewPreprocessor("pca", nil, logger)
	assert.Error(t, err)
	_, err = NewTrainer("lstm", logger)
	assert.Error(t, err)

	for _, name := range []string{"", "passthrough", "ffill"} {
		_, err := NewCleaner(name, logger)
		assert.NoError(t, err, name)
	}
}

func TestForwardFillCleaner(t *testing.T) {
	cleaner, err := NewCleaner("ffill", testLogger())
	require.NoError(t, err)

	in := sampleTable()
	out, err := cleaner.Clean(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "0"}, out.Rows[1].Values)
	assert.Equal(t, []string{"4", "0"}, out.Rows[2].Values)
	// Input is left untouched
	assert.Equal(t, "", in.Rows[1].Values[0])
}

type fakeFetcher struct {
	datasets *entities.Datasets
	err      error
	useCache []bool
}

func (f *fakeFetcher) FetchAll(_ context.Context, useCache bool) (*entities.Datasets, error) {
	f.useCache = append(f.useCache, useCache)
	return f.datasets, f.err
}

func sampleDatasets() *entities.Datasets {
	return &entities.Datasets{
		Cases: []entities.TimeSeriesRecord{
			{Date: day(2020, 3, 15), Value: 3},
			{Date: day(2020, 3, 16), Value: 4},
			{Date: day(2020, 3, 17), Value: 6},
		},
		Announcements: []entities.AnnouncementRecord{
			{Date: day(2020, 3, 16), Content: "Gatherings limited"},
		},
		TrendKeyword: "covid",
		TrendIndex: []entities.TimeSeriesRecord{
			{Date: day(2020, 3, 15), Value: 40},
			{Date: day(2020, 3, 16), Value: 55.5},
		},
		Restrictions: []entities.RestrictionEvent{
			{Date: day(2020, 3, 16), Limit: 500, Severity: 0},
			{Date: day(2020, 3, 17), Limit: 500, Severity: 0},
		},
	}
}

func TestPipelineRun(t *testing.T) {
	fetcher := &fakeFetcher{datasets: sampleDatasets()}
	logger := testLogger()
	cleaner, _ := NewCleaner("ffill", logger)
	pre, _ := NewPreprocessor("lag", []int{1}, logger)
	trainer, _ := NewTrainer("noop", logger)

	model, err := NewPipeline(fetcher, cleaner, pre, trainer, logger).Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, fetcher.useCache)
	assert.Equal(t, "noop", model.Name)
	assert.Equal(t, 2, model.Rows)
	assert.Equal(t, day(2020, 3, 16), model.From)
	assert.Equal(t, day(2020, 3, 17), model.To)
	assert.Contains(t, model.Features, "covid")
	assert.Contains(t, model.Features, "cases_lag1")
	assert.Contains(t, model.Features, "severity")
}

func TestPipelineRun_FetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: &entities.CacheMissError{Dataset: entities.CasesDataset, Path: "data/cases.csv"}}
	logger := testLogger()
	cleaner, _ := NewCleaner("", logger)
	pre, _ := NewPreprocessor("", nil, logger)
	trainer, _ := NewTrainer("", logger)

	_, err := NewPipeline(fetcher, cleaner, pre, trainer, logger).Run(context.Background(), true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrCacheMiss))
}
