package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiss-caselaw/caselawmcp/internal/config"
	"github.com/swiss-caselaw/caselawmcp/internal/store"
	"github.com/swiss-caselaw/caselawmcp/internal/telemetry"
)

func TestServer_ReadResource_DecisionFound(t *testing.T) {
	decisions := &MockDecisionStore{
		GetDecisionFn: func(_ context.Context, id string) (*store.Decision, error) {
			if id == "d1" {
				return &store.Decision{DecisionID: "d1", Court: "BGer", DocketNumber: "4A_1/2021", FullText: "Der Vertrag..."}, nil
			}
			return nil, nil
		},
	}
	fac := newTestFacade(decisions, nil, nil, nil)
	srv, err := NewServer(&MockSearchEngine{}, fac, &MockEmbedder{}, config.NewConfig(), "")
	require.NoError(t, err)

	result, err := srv.ReadResource(context.Background(), "decision://d1")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "decision://d1", result.URI)
	assert.Equal(t, "application/json", result.MIMEType)
	assert.Contains(t, result.Content, "Der Vertrag")
	assert.Contains(t, result.Content, "4A_1/2021")
}

func TestServer_ReadResource_DecisionNotFound(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.ReadResource(context.Background(), "decision://nonexistent")

	require.Error(t, err)
}

func TestServer_ReadResource_UnsupportedScheme_ReturnsError(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.ReadResource(context.Background(), "file://main.go")

	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
}

func TestServer_ListResources_NeverEnumeratesDecisions(t *testing.T) {
	srv := newTestServer(t)

	resources, cursor, err := srv.ListResources(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, resources)
	assert.Empty(t, cursor)
}

func TestServer_SetMetrics_Nil_NoPanic(t *testing.T) {
	srv := newTestServer(t)

	assert.NotPanics(t, func() {
		srv.SetMetrics(nil)
	})
}

func TestServer_SetMetrics_RegistersResource(t *testing.T) {
	srv := newTestServer(t)
	metrics := telemetry.NewQueryMetrics(nil)

	assert.NotPanics(t, func() {
		srv.SetMetrics(metrics)
	})

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	assert.NotNil(t, srv.metrics)
}

func TestQueryMetricsOutput_ShapeFromSnapshot(t *testing.T) {
	metrics := telemetry.NewQueryMetrics(nil)
	metrics.Record(telemetry.QueryEvent{
		Query:       "Vertragsauslegung",
		QueryType:   telemetry.QueryTypeLexical,
		ResultCount: 0,
	})

	snapshot := metrics.Snapshot()

	output := QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			TimePeriod:    "session",
			ZeroResultPct: snapshot.ZeroResultPercentage(),
		},
		ZeroResultQueries: snapshot.ZeroResultQueries,
	}

	assert.Equal(t, int64(1), output.Summary.TotalQueries)
	assert.Contains(t, output.ZeroResultQueries, "Vertragsauslegung")
}
