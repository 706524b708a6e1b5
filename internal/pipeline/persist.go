package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/cache"
	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/state"
	"github.com/probelab/discovery-cli/internal/store"
)

// PersistStage writes problems, signals, and clusters to the store. An
// unreachable store or an empty startup table is fatal; individual write
// failures are recoverable. Returns the problems with their store IDs
// filled in so clusters can reference them.
func PersistStage(ctx context.Context, snap *state.State, st store.Store, client llm.Client, embCache *cache.EmbeddingCache) (*state.Update, error) {
	log := zap.L().Named("persist")
	update := &state.Update{Metrics: &model.Metrics{}}

	if st == nil {
		return nil, eris.New("persist: store not configured")
	}
	startups, err := st.ListStartups(ctx, 0)
	if err != nil {
		return nil, eris.Wrap(err, "persist: list startups")
	}
	if len(startups) == 0 {
		return nil, eris.New("persist: no startup records exist")
	}

	// problemIDs maps a problem's index in the snapshot to its store ID;
	// unpersisted problems stay absent.
	problemIDs := make(map[int]string, len(snap.Problems))

	for i := range snap.Problems {
		p := snap.Problems[i]

		if len(p.Embedding) == 0 {
			vec, embErr := embCache.GetOrFill(ctx, p.Statement, func(ctx context.Context) ([]float32, error) {
				res, fillErr := client.EmbedBatch(ctx, []string{p.Statement})
				if fillErr != nil {
					return nil, fillErr
				}
				update.Metrics.APICalls += res.Requests
				update.Metrics.TotalTokens += res.PromptTokens
				return res.Vectors[0], nil
			})
			if embErr != nil {
				update.Errors = append(update.Errors, errRecord("persist", embErr.Error(), true))
				continue
			}
			p.Embedding = vec
		}

		if p.StartupID == "" {
			// Kept from the source behavior: problems with no associated
			// startup anchor to the first one on file.
			p.StartupID = startups[0].ID
			log.Warn("problem has no startup, anchoring to first",
				zap.String("statement", truncate(p.Statement, 80)),
				zap.String("startup", startups[0].Name),
			)
		}

		id, createErr := st.CreateProblem(ctx, p)
		if createErr != nil {
			update.Errors = append(update.Errors, errRecord("persist", createErr.Error(), true))
			continue
		}
		problemIDs[i] = id
	}

	for _, sig := range snap.Signals {
		if _, createErr := st.CreateSignal(ctx, sig); createErr != nil {
			update.Errors = append(update.Errors, errRecord("persist", createErr.Error(), true))
		}
	}

	for _, pc := range snap.Clusters {
		ids := make([]string, 0, len(pc.Members))
		for _, idx := range pc.Members {
			if id, ok := problemIDs[idx]; ok {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}
		if _, createErr := st.CreateCluster(ctx, pc, ids); createErr != nil {
			update.Errors = append(update.Errors, errRecord("persist", createErr.Error(), true))
		}
	}

	evicted := embCache.EvictExpired()
	log.Info("persist complete",
		zap.Int("problems", len(problemIDs)),
		zap.Int("signals", len(snap.Signals)),
		zap.Int("clusters", len(snap.Clusters)),
		zap.Int("cache_evicted", evicted),
	)
	return update, nil
}
