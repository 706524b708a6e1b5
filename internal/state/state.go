// Package state implements the pipeline accumulator: a run-wide state
// container whose fields each declare a merge policy applied whenever a
// stage returns a partial update. Stages never mutate the state they are
// given; they return only the delta to merge.
package state

import (
	"github.com/probelab/discovery-cli/internal/model"
)

// State is the running snapshot of a discovery run.
type State struct {
	Queries  []model.SearchQuery
	Results  []model.SearchResult
	Problems []model.Problem
	Signals  []model.ImplicitSignal
	Clusters []model.ProblemCluster
	Synced   int
	Errors   []model.ErrorRecord
	Status   model.RunStatus
	Progress model.Progress
	Metrics  model.Metrics

	// seen tracks normalized result URLs already merged.
	seen map[string]struct{}
}

// New returns a fresh state with defaults.
func New() *State {
	return &State{
		Status: model.RunStatusIdle,
		seen:   make(map[string]struct{}),
	}
}

// Update is the partial result a stage returns. Nil pointer fields leave
// the corresponding state field untouched; slice fields merge per their
// declared policy.
type Update struct {
	Queries  []model.SearchQuery
	Results  []model.SearchResult
	Problems []model.Problem
	Signals  []model.ImplicitSignal
	Clusters *[]model.ProblemCluster
	Synced   int
	Errors   []model.ErrorRecord
	Status   *model.RunStatus
	Progress *model.Progress
	Metrics  *model.Metrics
}

// SetStatus is a convenience for building status-only deltas.
func (u *Update) SetStatus(s model.RunStatus) *Update {
	u.Status = &s
	return u
}

// SetClusters marks the cluster list for replacement. Clustering is not
// incremental, so an empty slice still replaces.
func (u *Update) SetClusters(clusters []model.ProblemCluster) *Update {
	u.Clusters = &clusters
	return u
}
