// Package store persists discovery output: startup anchors, problems,
// implicit signals, clusters, and run records. Two drivers are provided,
// sqlite for local runs and postgres for shared deployments.
package store

import (
	"context"

	"github.com/probelab/discovery-cli/internal/model"
)

// Store is the persistence interface consumed by the pipeline.
type Store interface {
	// Startups
	CreateStartup(ctx context.Context, s model.Startup) (string, error)
	FindStartupByProfileURL(ctx context.Context, profileURL string) (*model.Startup, error)
	ListStartups(ctx context.Context, limit int) ([]model.Startup, error)

	// Problems
	CreateProblem(ctx context.Context, p model.Problem) (string, error)

	// Signals
	CreateSignal(ctx context.Context, s model.ImplicitSignal) (string, error)

	// Clusters
	CreateCluster(ctx context.Context, c model.ProblemCluster, problemIDs []string) (string, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.Summary, errs []model.ErrorRecord) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// signalTypeCodes maps domain signal types onto the store enum.
var signalTypeCodes = map[model.SignalType]string{
	model.SignalBuildVsBuy:           "BUILD_VS_BUY",
	model.SignalExcessiveHiring:      "EXCESSIVE_HIRING",
	model.SignalWorkaroundSharing:    "WORKAROUND_SHARING",
	model.SignalMigration:            "MIGRATION",
	model.SignalOpenSourceCreation:   "OPEN_SOURCE_CREATION",
	model.SignalIntegrationComplaint: "INTEGRATION_COMPLAINT",
	model.SignalScaleBreakpoint:      "SCALE_BREAKPOINT",
	model.SignalManualProcess:        "MANUAL_PROCESS",
}

// SignalTypeCode converts a domain signal type to the store enum value.
// Unknown types map to OTHER.
func SignalTypeCode(t model.SignalType) string {
	if code, ok := signalTypeCodes[t]; ok {
		return code
	}
	return "OTHER"
}
