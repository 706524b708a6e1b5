package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
	"github.com/probelab/discovery-cli/internal/state"
)

const signalSystemPrompt = `You verify implicit startup problem signals found by pattern matching.
For each candidate, decide whether the excerpt really implies an unmet business need, and if so infer the underlying problem.
Respond with a JSON object of the form:
{"signals": [{"index": 1, "inferred_problem": "...", "confidence": 0.0-1.0, "keywords": ["..."], "reasoning": "..."}]}
Omit candidates that are false positives. index refers to the candidate numbering in the input.`

type signalResponse struct {
	Signals []verifiedSignal `json:"signals"`
}

type verifiedSignal struct {
	Index           int      `json:"index"`
	InferredProblem string   `json:"inferred_problem"`
	Confidence      float64  `json:"confidence"`
	Keywords        []string `json:"keywords"`
	Reasoning       string   `json:"reasoning"`
}

// DetectStage finds implicit problem signals in two phases: a regex scan
// that costs nothing, then model verification of the candidates in
// batches. Zero regex matches short-circuits without any API call.
func DetectStage(ctx context.Context, results []model.SearchResult, client llm.Client, pace *pacer.Pacer, batchSize int, minConfidence float64) *state.Update {
	log := zap.L().Named("detect")
	update := &state.Update{Metrics: &model.Metrics{}}

	matches := scanPatterns(results)
	if len(matches) == 0 {
		log.Info("no pattern matches")
		return update
	}
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(matches); start += batchSize {
		end := min(start+batchSize, len(matches))
		batch := matches[start:end]

		if err := pace.Wait(ctx); err != nil {
			update.Errors = append(update.Errors, errRecord("detect", err.Error(), false))
			return update
		}

		update.Metrics.APICalls++
		resp, err := client.CompleteJSON(ctx, llm.CompletionRequest{
			System:      signalSystemPrompt,
			Prompt:      formatMatchBatch(batch),
			Temperature: 0.2,
			MaxTokens:   1500,
		})
		if err != nil {
			update.Errors = append(update.Errors, errRecord("detect", err.Error(), true))
			continue
		}
		update.Metrics.TotalTokens += resp.TotalTokens

		var parsed signalResponse
		if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
			update.Errors = append(update.Errors, errRecord("detect", "malformed response: "+err.Error(), true))
			continue
		}

		for _, vs := range parsed.Signals {
			if vs.Index < 1 || vs.Index > len(batch) {
				continue
			}
			if vs.Confidence < minConfidence || vs.Confidence > 1 {
				continue
			}
			if strings.TrimSpace(vs.InferredProblem) == "" {
				continue
			}
			m := batch[vs.Index-1]
			update.Signals = append(update.Signals, model.ImplicitSignal{
				Type:            m.Type,
				InferredProblem: strings.TrimSpace(vs.InferredProblem),
				Confidence:      vs.Confidence,
				Excerpt:         m.Excerpt,
				SourceURL:       m.SourceURL,
				Keywords:        vs.Keywords,
				Reasoning:       vs.Reasoning,
			})
		}
	}

	log.Info("signals detected",
		zap.Int("candidates", len(matches)),
		zap.Int("verified", len(update.Signals)),
	)
	return update
}

func formatMatchBatch(batch []model.PatternMatch) string {
	var b strings.Builder
	b.WriteString("Candidates:\n\n")
	for i, m := range batch {
		fmt.Fprintf(&b, "--- Candidate %d ---\nSignal type: %s\nSource: %s\nTitle: %s\nExcerpt: %s\n\n",
			i+1, m.Type, m.SourceURL, m.Title, m.Excerpt)
	}
	return b.String()
}
