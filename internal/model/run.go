package model

import "time"

// RunStatus is the pipeline state machine. Transitions are strictly linear:
// idle → searching → syncing → extracting → detecting → clustering →
// (saving | failed) → complete.
type RunStatus string

const (
	RunStatusIdle       RunStatus = "idle"
	RunStatusSearching  RunStatus = "searching"
	RunStatusSyncing    RunStatus = "syncing"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusDetecting  RunStatus = "detecting"
	RunStatusClustering RunStatus = "clustering"
	RunStatusSaving     RunStatus = "saving"
	RunStatusFailed     RunStatus = "failed"
	RunStatusComplete   RunStatus = "complete"
)

// ErrorRecord is one recoverable or fatal failure recorded during a run.
// Records are append-only.
type ErrorRecord struct {
	Stage       string    `json:"stage"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
	Timestamp   time.Time `json:"timestamp"`
}

// Progress tracks which stage is active and a short status note.
type Progress struct {
	Stage   string `json:"stage"`
	Message string `json:"message,omitempty"`
}

// Metrics accumulates run-wide counters across stages. APICalls and
// TotalTokens sum across stage updates; the timestamps replace.
type Metrics struct {
	APICalls    int       `json:"api_calls"`
	TotalTokens int       `json:"total_tokens"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
}

// Summary is the invocation result returned to the caller.
type Summary struct {
	Problems   int   `json:"problems"`
	Signals    int   `json:"signals"`
	Clusters   int   `json:"clusters"`
	Errors     int   `json:"errors"`
	DurationMS int64 `json:"duration_ms"`
}

// Run is a persisted record of one pipeline invocation.
type Run struct {
	ID        string        `json:"id"`
	Status    RunStatus     `json:"status"`
	Summary   *Summary      `json:"summary,omitempty"`
	Errors    []ErrorRecord `json:"errors,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
