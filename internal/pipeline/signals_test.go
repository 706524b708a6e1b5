package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/probelab/discovery-cli/internal/llm"
	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
)

func TestScanPatternsFamilies(t *testing.T) {
	cases := []struct {
		name string
		text string
		want model.SignalType
	}{
		{"build vs buy", "We ended up building our own billing engine after two failed vendor trials.", model.SignalBuildVsBuy},
		{"workaround", "Here is the hacky workaround we use to sync the two systems.", model.SignalWorkaroundSharing},
		{"migration", "We are migrating off Heroku next quarter.", model.SignalMigration},
		{"open source", "We couldn't find a library that handled this, so we wrote one and open-sourced it.", model.SignalOpenSourceCreation},
		{"integration", "Their webhooks are flaky and the integration was painful.", model.SignalIntegrationComplaint},
		{"scale", "The whole setup fell over at 10000 events per second.", model.SignalScaleBreakpoint},
		{"manual", "We're still tracking inventory manually in a spreadsheet.", model.SignalManualProcess},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matches := scanPatterns([]model.SearchResult{{URL: "https://example.com", Title: "t", Text: tc.text}})
			require.NotEmpty(t, matches)
			found := false
			for _, m := range matches {
				if m.Type == tc.want {
					found = true
					assert.NotEmpty(t, m.Excerpt)
					assert.Equal(t, "https://example.com", m.SourceURL)
				}
			}
			assert.True(t, found, "expected a %s match", tc.want)
		})
	}
}

func TestScanPatternsOneMatchPerFamily(t *testing.T) {
	// Two build-vs-buy phrases in one result still yield a single match.
	text := "We ended up building our own tool. No vendor did what we need."
	matches := scanPatterns([]model.SearchResult{{URL: "https://example.com", Text: text}})

	count := 0
	for _, m := range matches {
		if m.Type == model.SignalBuildVsBuy {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestScanPatternsCaseInsensitive(t *testing.T) {
	matches := scanPatterns([]model.SearchResult{{Text: "WE ENDED UP BUILDING OUR OWN CRM"}})
	require.Len(t, matches, 1)
	assert.Equal(t, model.SignalBuildVsBuy, matches[0].Type)
}

func TestDetectStageZeroMatchesNoAPICalls(t *testing.T) {
	client := &mockLLMClient{}
	results := []model.SearchResult{{Title: "calm post", Text: "everything works great"}}

	update := DetectStage(context.Background(), results, client, pacer.New(0), 5, 0.6)

	assert.Empty(t, update.Signals)
	assert.Empty(t, update.Errors)
	assert.Equal(t, 0, update.Metrics.APICalls)
	client.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything)
}

func TestDetectStageVerifiesMatches(t *testing.T) {
	client := &mockLLMClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything).Return(&llm.CompletionResult{
		Content: `{"signals": [{"index": 1, "inferred_problem": "No off-the-shelf billing fits usage pricing", "confidence": 0.8, "keywords": ["billing"], "reasoning": "built in house"}]}`,
		TotalTokens: 200,
	}, nil).Once()

	results := []model.SearchResult{{
		URL:  "https://news.ycombinator.com/item?id=1",
		Text: "we ended up building our own billing system",
	}}

	update := DetectStage(context.Background(), results, client, pacer.New(0), 5, 0.6)

	require.Len(t, update.Signals, 1)
	sig := update.Signals[0]
	assert.Equal(t, model.SignalBuildVsBuy, sig.Type)
	assert.Equal(t, "No off-the-shelf billing fits usage pricing", sig.InferredProblem)
	assert.Equal(t, "https://news.ycombinator.com/item?id=1", sig.SourceURL)
	assert.NotEmpty(t, sig.Excerpt)
	assert.Equal(t, 1, update.Metrics.APICalls)
}

func TestDetectStageConfidenceGate(t *testing.T) {
	client := &mockLLMClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything).Return(&llm.CompletionResult{
		Content: `{"signals": [{"index": 1, "inferred_problem": "weak signal", "confidence": 0.3}]}`,
	}, nil).Once()

	results := []model.SearchResult{{Text: "we ended up building our own thing"}}
	update := DetectStage(context.Background(), results, client, pacer.New(0), 5, 0.6)

	assert.Empty(t, update.Signals)
	assert.Empty(t, update.Errors)
}

func TestDetectStageOutOfRangeIndexIgnored(t *testing.T) {
	client := &mockLLMClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything).Return(&llm.CompletionResult{
		Content: `{"signals": [{"index": 9, "inferred_problem": "phantom", "confidence": 0.9}]}`,
	}, nil).Once()

	results := []model.SearchResult{{Text: "we ended up building our own thing"}}
	update := DetectStage(context.Background(), results, client, pacer.New(0), 5, 0.6)

	assert.Empty(t, update.Signals)
}

func TestDetectStageMalformedBatchRecoverable(t *testing.T) {
	client := &mockLLMClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything).
		Return(&llm.CompletionResult{Content: `garbage`}, nil).Once()

	results := []model.SearchResult{{Text: "we ended up building our own thing"}}
	update := DetectStage(context.Background(), results, client, pacer.New(0), 5, 0.6)

	require.Len(t, update.Errors, 1)
	assert.True(t, update.Errors[0].Recoverable)
}
