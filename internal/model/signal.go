package model

// SignalType names one of the eight implicit-signal families.
type SignalType string

const (
	SignalBuildVsBuy           SignalType = "build_vs_buy"
	SignalExcessiveHiring      SignalType = "excessive_hiring"
	SignalWorkaroundSharing    SignalType = "workaround_sharing"
	SignalMigration            SignalType = "migration_announcement"
	SignalOpenSourceCreation   SignalType = "open_source_creation"
	SignalIntegrationComplaint SignalType = "integration_complaint"
	SignalScaleBreakpoint      SignalType = "scale_breakpoint"
	SignalManualProcess        SignalType = "manual_process"
)

// SignalTypes lists all families in scan order.
var SignalTypes = []SignalType{
	SignalBuildVsBuy,
	SignalExcessiveHiring,
	SignalWorkaroundSharing,
	SignalMigration,
	SignalOpenSourceCreation,
	SignalIntegrationComplaint,
	SignalScaleBreakpoint,
	SignalManualProcess,
}

// ImplicitSignal is a problem inferred indirectly from a language pattern
// rather than stated outright.
type ImplicitSignal struct {
	ID              string     `json:"id,omitempty"`
	Type            SignalType `json:"type"`
	InferredProblem string     `json:"inferred_problem"`
	Confidence      float64    `json:"confidence"`
	Excerpt         string     `json:"excerpt"`
	SourceURL       string     `json:"source_url"`
	Keywords        []string   `json:"keywords,omitempty"`
	Reasoning       string     `json:"reasoning,omitempty"`
}

// PatternMatch is a phase-one regex hit awaiting model verification.
type PatternMatch struct {
	Type      SignalType `json:"type"`
	Pattern   string     `json:"pattern"`
	Excerpt   string     `json:"excerpt"`
	SourceURL string     `json:"source_url"`
	Title     string     `json:"title"`
}
