package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/integration/openai"
)

type fakeAgent struct {
	resp     *openai.AgentResponse
	err      error
	datasets []string
}

func (f *fakeAgent) InterpretUserQuery(_ context.Context, _ string, datasets []string) (*openai.AgentResponse, error) {
	f.datasets = datasets
	return f.resp, f.err
}

func newDatasetUseCase(t *testing.T, agent openai.OpenAIService) (*DatasetUseCase, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewDatasetUseCase(f.acquirer, f.store, f.ledger, agent, testLogger()), f
}

func TestDatasetUseCase_RefreshAndStatus(t *testing.T) {
	uc, f := newDatasetUseCase(t, nil)

	status, err := uc.GetDatasetStatus(entities.CasesDataset)
	require.NoError(t, err)
	assert.False(t, status.Cached)
	assert.Nil(t, status.LastRefresh)
	assert.Contains(t, FormatDatasetStatus(status), "Not cached yet.")

	datasets, err := uc.RefreshAll(context.Background())
	require.NoError(t, err)
	summary := FormatRefreshSummary(datasets)
	assert.Contains(t, summary, "cases: 3 rows")
	assert.Contains(t, summary, "announcements: 7 rows")
	assert.Contains(t, summary, "oecd_restrictions: 2 rows")

	status, err = uc.GetDatasetStatus(entities.CasesDataset)
	require.NoError(t, err)
	assert.True(t, status.Cached)
	assert.Equal(t, 3, status.Rows)
	assert.Equal(t, day(2020, 1, 25), status.From)
	assert.Equal(t, day(2020, 1, 27), status.To)
	require.NotNil(t, status.LastRefresh)
	assert.Contains(t, FormatDatasetStatus(status), "Range: 2020-01-25 to 2020-01-27")

	statuses, err := uc.GetAllStatuses()
	require.NoError(t, err)
	require.Len(t, statuses, len(entities.DatasetNames))
	for _, s := range statuses {
		assert.True(t, s.Cached, s.Dataset)
	}

	refreshed, err := uc.GetRefreshedDatasets()
	require.NoError(t, err)
	assert.ElementsMatch(t, entities.DatasetNames, refreshed)

	last, err := uc.GetLastUpdateTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, time.May, 10, 15, 0, 0, 0, time.UTC), last)
	assert.Equal(t, 1, f.cases.calls)
}

func TestDatasetUseCase_RefreshFailure(t *testing.T) {
	uc, f := newDatasetUseCase(t, nil)
	f.cases.err = entities.NewUpstreamError("data.nsw.gov.au", "status 500", nil)

	_, err := uc.RefreshAll(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrUpstream))
}

func TestDatasetUseCase_UnknownDataset(t *testing.T) {
	uc, _ := newDatasetUseCase(t, nil)

	_, err := uc.GetDatasetStatus("vaccinations")
	assert.Error(t, err)
}

func TestHandleNaturalLanguageQuery(t *testing.T) {
	tests := []struct {
		name     string
		resp     *openai.AgentResponse
		err      error
		contains string
	}{
		{
			name:     "status of known dataset",
			resp:     &openai.AgentResponse{CommandName: openai.CommandDatasetStatus, Dataset: entities.RestrictionsDataset, UserMessage: "Here you go"},
			contains: "Here you go\n\nDataset restrictions:\nNot cached yet.",
		},
		{
			name:     "status without dataset",
			resp:     &openai.AgentResponse{CommandName: openai.CommandDatasetStatus},
			contains: "Which dataset?",
		},
		{
			name:     "refresh",
			resp:     &openai.AgentResponse{CommandName: openai.CommandRefresh},
			contains: "/refresh",
		},
		{
			name:     "general",
			resp:     &openai.AgentResponse{CommandName: openai.CommandGeneral, UserMessage: "Hello!"},
			contains: "Hello!",
		},
		{
			name:     "unexpected command",
			resp:     &openai.AgentResponse{CommandName: "DropTables"},
			contains: "/help",
		},
		{
			name:     "agent failure",
			err:      errors.New("timeout"),
			contains: "try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := &fakeAgent{resp: tt.resp, err: tt.err}
			uc, _ := newDatasetUseCase(t, agent)

			reply, err := uc.HandleNaturalLanguageQuery(context.Background(), "how fresh is the data?")

			require.NoError(t, err)
			assert.Contains(t, reply, tt.contains)
			assert.Equal(t, entities.DatasetNames, agent.datasets)
		})
	}
}

func TestHandleNaturalLanguageQuery_WithoutAgent(t *testing.T) {
	uc, _ := newDatasetUseCase(t, nil)

	reply, err := uc.HandleNaturalLanguageQuery(context.Background(), "hi")

	require.NoError(t, err)
	assert.Contains(t, reply, "/help")
}
