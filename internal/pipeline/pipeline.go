// Package pipeline implements the discovery run: six sequential stages
// feeding a shared accumulator, every stage failure absorbed as an error
// record except the persist stage's fatal cases.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/cache"
	"github.com/probelab/discovery-cli/internal/config"
	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
	"github.com/probelab/discovery-cli/internal/state"
	"github.com/probelab/discovery-cli/internal/store"
	"github.com/probelab/discovery-cli/pkg/harmonic"
)

// Pipeline orchestrates one discovery run end to end.
type Pipeline struct {
	cfg       config.PipelineConfig
	filter    model.CompanyFilter
	store     store.Store
	providers []Provider
	harmonic  harmonic.Client
	pageSize  int
	llm       llm.Client
	cache     *cache.EmbeddingCache

	searchPacer *pacer.Pacer
	batchPacer  *pacer.Pacer
	now         func() time.Time
}

// New creates a pipeline with all dependencies. The harmonic client may be
// nil when credentials are absent; the sync stage then records one
// recoverable error and syncs nothing.
func New(
	cfg config.PipelineConfig,
	filter model.CompanyFilter,
	st store.Store,
	providers []Provider,
	harmonicClient harmonic.Client,
	harmonicPageSize int,
	llmClient llm.Client,
	embCache *cache.EmbeddingCache,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		filter:      filter,
		store:       st,
		providers:   providers,
		harmonic:    harmonicClient,
		pageSize:    harmonicPageSize,
		llm:         llmClient,
		cache:       embCache,
		searchPacer: pacer.New(time.Duration(cfg.SearchIntervalMS) * time.Millisecond),
		batchPacer:  pacer.New(time.Duration(cfg.BatchIntervalMS) * time.Millisecond),
		now:         time.Now,
	}
}

// Run executes the full discovery pipeline. The summary is returned even
// when the run fails; the error is non-nil only for fatal persist cases.
func (p *Pipeline) Run(ctx context.Context) (*model.Summary, error) {
	log := zap.L().Named("pipeline")
	started := p.now()

	st := state.New()
	st.Merge(&state.Update{Metrics: &model.Metrics{StartedAt: started.UTC()}})

	var runID string
	if p.store != nil {
		if run, err := p.store.CreateRun(ctx); err != nil {
			log.Warn("failed to create run record", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	setStatus := func(status model.RunStatus, stage string) {
		st.Merge((&state.Update{
			Progress: &model.Progress{Stage: stage},
		}).SetStatus(status))
		log.Info("stage starting", zap.String("stage", stage))
	}

	setStatus(model.RunStatusSearching, "search")
	queries := BuildQueries(p.cfg.Industries, p.cfg.SearchWindowDays, p.now())
	st.Merge(SearchStage(ctx, queries, p.providers, p.searchPacer, p.cfg.ResultsPerQuery, p.cfg.FallbackResults))

	setStatus(model.RunStatusSyncing, "sync")
	st.Merge(SyncStage(ctx, p.harmonic, p.store, p.filter, p.pageSize, p.batchPacer))

	setStatus(model.RunStatusExtracting, "extract")
	st.Merge(ExtractStage(ctx, st.Results, p.llm, p.batchPacer, p.cfg.BatchSize, p.cfg.ProblemConfidence))

	setStatus(model.RunStatusDetecting, "detect")
	st.Merge(DetectStage(ctx, st.Results, p.llm, p.batchPacer, p.cfg.BatchSize, p.cfg.SignalConfidence))

	setStatus(model.RunStatusClustering, "cluster")
	st.Merge(ClusterStage(ctx, st.Problems, p.llm, p.cache, ClusterConfig{
		MinProblems:    p.cfg.MinClusterProblems,
		Epsilon:        p.cfg.ClusterEpsilon,
		MinSamples:     p.cfg.ClusterMinSamples,
		MinClusterSize: p.cfg.MinClusterSize,
	}))

	setStatus(model.RunStatusSaving, "persist")
	persistUpdate, persistErr := PersistStage(ctx, st, p.store, p.llm, p.cache)
	if persistErr != nil {
		st.Merge((&state.Update{
			Errors:  []model.ErrorRecord{errRecord("persist", persistErr.Error(), false)},
			Metrics: &model.Metrics{EndedAt: p.now().UTC()},
		}).SetStatus(model.RunStatusFailed))
		summary := p.summarize(st, started)
		p.completeRun(ctx, runID, model.RunStatusFailed, summary, st.Errors)
		return summary, persistErr
	}
	st.Merge(persistUpdate)

	st.Merge((&state.Update{
		Metrics: &model.Metrics{EndedAt: p.now().UTC()},
	}).SetStatus(model.RunStatusComplete))

	summary := p.summarize(st, started)
	p.completeRun(ctx, runID, model.RunStatusComplete, summary, st.Errors)

	log.Info("run complete",
		zap.Int("problems", summary.Problems),
		zap.Int("signals", summary.Signals),
		zap.Int("clusters", summary.Clusters),
		zap.Int("errors", summary.Errors),
		zap.Int64("duration_ms", summary.DurationMS),
		zap.Int("api_calls", st.Metrics.APICalls),
		zap.Int("total_tokens", st.Metrics.TotalTokens),
	)
	return summary, nil
}

func (p *Pipeline) summarize(st *state.State, started time.Time) *model.Summary {
	return &model.Summary{
		Problems:   len(st.Problems),
		Signals:    len(st.Signals),
		Clusters:   len(st.Clusters),
		Errors:     len(st.Errors),
		DurationMS: p.now().Sub(started).Milliseconds(),
	}
}

func (p *Pipeline) completeRun(ctx context.Context, runID string, status model.RunStatus, summary *model.Summary, errs []model.ErrorRecord) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.CompleteRun(ctx, runID, status, summary, errs); err != nil {
		zap.L().Named("pipeline").Warn("failed to save run record", zap.Error(err))
	}
}

func errRecord(stage, message string, recoverable bool) model.ErrorRecord {
	return model.ErrorRecord{
		Stage:       stage,
		Message:     message,
		Recoverable: recoverable,
		Timestamp:   time.Now().UTC(),
	}
}
