package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
	"github.com/probelab/discovery-cli/internal/state"
)

const extractSystemPrompt = `You analyze web content about startups and extract concrete business problems.
Respond with a JSON object of the form:
{"problems": [{"statement": "...", "description": "...", "category": "technical|operational|market|product|scaling|other", "severity_score": 1-10, "frequency": 1-10, "urgency": 1-10, "confidence": 0.0-1.0, "source_url": "...", "excerpt": "...", "tags": ["..."]}]}
Only include problems actually evidenced by the text. statement is one sentence; excerpt is a short verbatim quote. Return {"problems": []} if none.`

// resultSnippetLen caps how much of each document goes into the prompt.
const resultSnippetLen = 2000

// extractResponse is the expected completion payload.
type extractResponse struct {
	Problems []extractedProblem `json:"problems"`
}

type extractedProblem struct {
	Statement     string   `json:"statement"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	SeverityScore int      `json:"severity_score"`
	Frequency     int      `json:"frequency"`
	Urgency       int      `json:"urgency"`
	Confidence    float64  `json:"confidence"`
	SourceURL     string   `json:"source_url"`
	Excerpt       string   `json:"excerpt"`
	Tags          []string `json:"tags"`
}

// ExtractStage turns search results into candidate problems, one chat call
// per batch. A failed or malformed batch records one recoverable error and
// the remaining batches still run.
func ExtractStage(ctx context.Context, results []model.SearchResult, client llm.Client, pace *pacer.Pacer, batchSize int, minConfidence float64) *state.Update {
	log := zap.L().Named("extract")
	update := &state.Update{Metrics: &model.Metrics{}}

	if len(results) == 0 {
		return update
	}
	if batchSize <= 0 {
		batchSize = 5
	}

	for start := 0; start < len(results); start += batchSize {
		end := min(start+batchSize, len(results))
		batch := results[start:end]

		if err := pace.Wait(ctx); err != nil {
			update.Errors = append(update.Errors, errRecord("extract", err.Error(), false))
			return update
		}

		update.Metrics.APICalls++
		resp, err := client.CompleteJSON(ctx, llm.CompletionRequest{
			System:      extractSystemPrompt,
			Prompt:      formatResultBatch(batch),
			Temperature: 0.2,
			MaxTokens:   2000,
		})
		if err != nil {
			update.Errors = append(update.Errors, errRecord("extract", err.Error(), true))
			continue
		}
		update.Metrics.TotalTokens += resp.TotalTokens

		var parsed extractResponse
		if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
			log.Warn("malformed batch response", zap.Error(err))
			update.Errors = append(update.Errors, errRecord("extract", "malformed response: "+err.Error(), true))
			continue
		}

		for _, ep := range parsed.Problems {
			problem, ok := validateProblem(ep, minConfidence)
			if !ok {
				continue
			}
			update.Problems = append(update.Problems, problem)
		}
	}

	log.Info("problems extracted",
		zap.Int("results", len(results)),
		zap.Int("problems", len(update.Problems)),
	)
	return update
}

// validateProblem checks schema constraints and applies the confidence
// gate. Invalid or low-confidence entries are dropped silently.
func validateProblem(ep extractedProblem, minConfidence float64) (model.Problem, bool) {
	if strings.TrimSpace(ep.Statement) == "" {
		return model.Problem{}, false
	}
	if ep.Confidence < minConfidence || ep.Confidence > 1 {
		return model.Problem{}, false
	}

	score := ep.SeverityScore
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}

	problem := model.Problem{
		Statement:     strings.TrimSpace(ep.Statement),
		Description:   strings.TrimSpace(ep.Description),
		Category:      model.ParseCategory(ep.Category),
		Severity:      model.SeverityFromScore(score),
		SeverityScore: score,
		Frequency:     ep.Frequency,
		Urgency:       ep.Urgency,
		Confidence:    ep.Confidence,
		Tags:          ep.Tags,
	}
	if ep.Excerpt != "" || ep.SourceURL != "" {
		problem.Evidence = []model.Evidence{{
			Source:  model.DetectPlatform(ep.SourceURL),
			Excerpt: ep.Excerpt,
			URL:     ep.SourceURL,
		}}
	}
	return problem, true
}

func formatResultBatch(batch []model.SearchResult) string {
	var b strings.Builder
	b.WriteString("Documents:\n\n")
	for i, r := range batch {
		fmt.Fprintf(&b, "--- Document %d ---\nTitle: %s\nURL: %s\nPlatform: %s\n%s\n\n",
			i+1, r.Title, r.URL, r.Platform, truncate(r.Text, resultSnippetLen))
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
