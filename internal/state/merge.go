package state

import "github.com/probelab/discovery-cli/internal/model"

// Policy is the rule by which a stage's partial output is combined into
// the accumulator.
type Policy string

const (
	// PolicyAppend concatenates new elements after existing ones.
	PolicyAppend Policy = "append"
	// PolicyDedupe appends only elements whose derived key is absent.
	PolicyDedupe Policy = "dedupe"
	// PolicyReplace fully replaces the previous value.
	PolicyReplace Policy = "replace"
	// PolicySum adds numeric values; for composite fields, designated
	// sub-fields are summed and the rest replace.
	PolicySum Policy = "sum"
)

// fieldPolicy binds one state field to its merge policy. New state fields
// require only a one-line entry here.
type fieldPolicy struct {
	name   string
	policy Policy
	apply  func(*State, *Update)
}

var mergeTable = []fieldPolicy{
	{"queries", PolicyAppend, func(s *State, u *Update) {
		s.Queries = append(s.Queries, u.Queries...)
	}},
	{"results", PolicyDedupe, func(s *State, u *Update) {
		for _, r := range u.Results {
			key := model.NormalizeURL(r.URL)
			if _, ok := s.seen[key]; ok {
				continue
			}
			s.seen[key] = struct{}{}
			s.Results = append(s.Results, r)
		}
	}},
	{"problems", PolicyAppend, func(s *State, u *Update) {
		s.Problems = append(s.Problems, u.Problems...)
	}},
	{"signals", PolicyAppend, func(s *State, u *Update) {
		s.Signals = append(s.Signals, u.Signals...)
	}},
	{"clusters", PolicyReplace, func(s *State, u *Update) {
		if u.Clusters != nil {
			s.Clusters = *u.Clusters
		}
	}},
	{"synced", PolicySum, func(s *State, u *Update) {
		s.Synced += u.Synced
	}},
	{"errors", PolicyAppend, func(s *State, u *Update) {
		s.Errors = append(s.Errors, u.Errors...)
	}},
	{"status", PolicyReplace, func(s *State, u *Update) {
		if u.Status != nil {
			s.Status = *u.Status
		}
	}},
	{"progress", PolicyReplace, func(s *State, u *Update) {
		if u.Progress != nil {
			s.Progress = *u.Progress
		}
	}},
	{"metrics", PolicySum, func(s *State, u *Update) {
		if u.Metrics == nil {
			return
		}
		s.Metrics.APICalls += u.Metrics.APICalls
		s.Metrics.TotalTokens += u.Metrics.TotalTokens
		if !u.Metrics.StartedAt.IsZero() {
			s.Metrics.StartedAt = u.Metrics.StartedAt
		}
		if !u.Metrics.EndedAt.IsZero() {
			s.Metrics.EndedAt = u.Metrics.EndedAt
		}
	}},
}

// Merge combines a stage's partial update into the state according to the
// per-field policy table. A nil update is a no-op.
func (s *State) Merge(u *Update) {
	if u == nil {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, fp := range mergeTable {
		fp.apply(s, u)
	}
}

// PolicyFor reports the declared merge policy of a state field. Unknown
// fields return the empty policy.
func PolicyFor(field string) Policy {
	for _, fp := range mergeTable {
		if fp.name == field {
			return fp.policy
		}
	}
	return ""
}
