package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probelab/discovery-cli/internal/model"
)

func TestMerge_DedupeIdempotent(t *testing.T) {
	results := []model.SearchResult{
		{URL: "https://example.com/a/", Title: "a"},
		{URL: "https://www.Example.com/a", Title: "a dupe"},
		{URL: "https://example.com/b", Title: "b"},
	}

	s := New()
	s.Merge(&Update{Results: results})
	require.Len(t, s.Results, 2)

	// Feeding the same set again must not grow the collection.
	s.Merge(&Update{Results: results})
	assert.Len(t, s.Results, 2)

	// First occurrence wins.
	assert.Equal(t, "a", s.Results[0].Title)
}

func TestMerge_Append(t *testing.T) {
	s := New()
	s.Merge(&Update{Problems: []model.Problem{{Statement: "one"}}})
	s.Merge(&Update{Problems: []model.Problem{{Statement: "two"}, {Statement: "three"}}})
	require.Len(t, s.Problems, 3)
	assert.Equal(t, "one", s.Problems[0].Statement)

	s.Merge(&Update{Errors: []model.ErrorRecord{{Stage: "search", Message: "boom", Recoverable: true}}})
	s.Merge(&Update{Errors: []model.ErrorRecord{{Stage: "extract", Message: "bang", Recoverable: true}}})
	assert.Len(t, s.Errors, 2)
}

func TestMerge_ReplaceClusters(t *testing.T) {
	s := New()
	u := (&Update{}).SetClusters([]model.ProblemCluster{{Theme: "billing", Size: 4}})
	s.Merge(u)
	require.Len(t, s.Clusters, 1)

	// Clustering is not incremental: a later replace wins outright.
	u2 := (&Update{}).SetClusters([]model.ProblemCluster{{Theme: "onboarding", Size: 3}, {Theme: "scaling", Size: 3}})
	s.Merge(u2)
	require.Len(t, s.Clusters, 2)
	assert.Equal(t, "onboarding", s.Clusters[0].Theme)

	// An explicit empty replace clears.
	s.Merge((&Update{}).SetClusters(nil))
	assert.Empty(t, s.Clusters)
}

func TestMerge_MetricsSum(t *testing.T) {
	s := New()
	s.Merge(&Update{Metrics: &model.Metrics{APICalls: 2, TotalTokens: 100}})
	s.Merge(&Update{Metrics: &model.Metrics{APICalls: 3, TotalTokens: 50}})

	assert.Equal(t, 5, s.Metrics.APICalls)
	assert.Equal(t, 150, s.Metrics.TotalTokens)
}

func TestMerge_MetricsTimestampsReplace(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	s := New()
	s.Merge(&Update{Metrics: &model.Metrics{StartedAt: start, APICalls: 1}})
	s.Merge(&Update{Metrics: &model.Metrics{EndedAt: end, APICalls: 1}})

	assert.Equal(t, start, s.Metrics.StartedAt)
	assert.Equal(t, end, s.Metrics.EndedAt)
	assert.Equal(t, 2, s.Metrics.APICalls)
}

func TestMerge_StatusAndProgressReplace(t *testing.T) {
	s := New()
	assert.Equal(t, model.RunStatusIdle, s.Status)

	s.Merge((&Update{}).SetStatus(model.RunStatusSearching))
	assert.Equal(t, model.RunStatusSearching, s.Status)

	s.Merge(&Update{Progress: &model.Progress{Stage: "search", Message: "20 queries"}})
	assert.Equal(t, "search", s.Progress.Stage)

	// Nil pointers leave fields alone.
	s.Merge(&Update{})
	assert.Equal(t, model.RunStatusSearching, s.Status)
	assert.Equal(t, "20 queries", s.Progress.Message)
}

func TestMerge_SyncedSum(t *testing.T) {
	s := New()
	s.Merge(&Update{Synced: 4})
	s.Merge(&Update{Synced: 3})
	assert.Equal(t, 7, s.Synced)
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyAppend, PolicyFor("problems"))
	assert.Equal(t, PolicyDedupe, PolicyFor("results"))
	assert.Equal(t, PolicyReplace, PolicyFor("clusters"))
	assert.Equal(t, PolicySum, PolicyFor("metrics"))
	assert.Equal(t, Policy(""), PolicyFor("unknown"))
}

func TestMerge_NilUpdate(t *testing.T) {
	s := New()
	s.Merge(nil)
	assert.Equal(t, model.RunStatusIdle, s.Status)
}
