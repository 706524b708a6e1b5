package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/probelab/discovery-cli/internal/model"
	"github.com/probelab/discovery-cli/internal/pacer"
	"github.com/probelab/discovery-cli/internal/resilience"
	"github.com/probelab/discovery-cli/internal/state"
	"github.com/probelab/discovery-cli/pkg/exa"
	"github.com/probelab/discovery-cli/pkg/tavily"
)

// Provider is one search backend in the fallback chain.
type Provider interface {
	Name() string
	Search(ctx context.Context, q model.SearchQuery, numResults int) ([]model.SearchResult, error)
}

// ExaProvider adapts the Exa client to the provider chain. It is the
// primary provider and requests page text with highlights.
type ExaProvider struct {
	client exa.Client
}

// NewExaProvider wraps an Exa client.
func NewExaProvider(client exa.Client) *ExaProvider {
	return &ExaProvider{client: client}
}

func (p *ExaProvider) Name() string { return "exa" }

func (p *ExaProvider) Search(ctx context.Context, q model.SearchQuery, numResults int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, exa.SearchRequest{
		Query:              q.Text,
		Type:               exa.SearchTypeNeural,
		NumResults:         numResults,
		IncludeDomains:     q.IncludeDomains,
		StartPublishedDate: q.StartDate.Format("2006-01-02"),
		EndPublishedDate:   q.EndDate.Format("2006-01-02"),
		Contents:           &exa.Contents{Text: true, Highlights: true},
	})
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		sr := model.SearchResult{
			URL:        r.URL,
			Title:      r.Title,
			Text:       r.Text,
			Highlights: r.Highlights,
			Platform:   model.DetectPlatform(r.URL),
			Score:      r.Score,
			Query:      q.Text,
		}
		if r.PublishedDate != "" {
			if ts, parseErr := time.Parse("2006-01-02", r.PublishedDate); parseErr == nil {
				sr.PublishedDate = ts
			}
		}
		results = append(results, sr)
	}
	return results, nil
}

// TavilyProvider adapts the Tavily client as the keyword fallback.
type TavilyProvider struct {
	client tavily.Client
}

// NewTavilyProvider wraps a Tavily client.
func NewTavilyProvider(client tavily.Client) *TavilyProvider {
	return &TavilyProvider{client: client}
}

func (p *TavilyProvider) Name() string { return "tavily" }

func (p *TavilyProvider) Search(ctx context.Context, q model.SearchQuery, numResults int) ([]model.SearchResult, error) {
	resp, err := p.client.Search(ctx, tavily.SearchRequest{
		Query:          q.Text,
		MaxResults:     numResults,
		IncludeDomains: q.IncludeDomains,
	})
	if err != nil {
		return nil, err
	}

	results := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, model.SearchResult{
			URL:      r.URL,
			Title:    r.Title,
			Text:     r.Content,
			Platform: model.DetectPlatform(r.URL),
			Score:    r.Score,
			Query:    q.Text,
		})
	}
	return results, nil
}

// SearchStage runs every query through the provider chain. The second and
// later providers are consulted only when the one before them failed with
// a rate-limit or auth error, and they run at a reduced result count. Any
// other failure records the error and skips the query.
func SearchStage(ctx context.Context, queries []model.SearchQuery, providers []Provider, pace *pacer.Pacer, resultsPerQuery, fallbackResults int) *state.Update {
	log := zap.L().Named("search")
	update := &state.Update{
		Queries: queries,
		Metrics: &model.Metrics{},
	}

	for _, q := range queries {
		if err := pace.Wait(ctx); err != nil {
			update.Errors = append(update.Errors, errRecord("search", err.Error(), false))
			return update
		}

		numResults := resultsPerQuery
		for i, provider := range providers {
			update.Metrics.APICalls++
			results, err := provider.Search(ctx, q, numResults)
			if err == nil {
				update.Results = append(update.Results, results...)
				break
			}

			fellBack := resilience.IsRateLimited(err) && i < len(providers)-1
			if fellBack {
				log.Warn("provider rate limited, falling back",
					zap.String("provider", provider.Name()),
					zap.String("query", q.Text),
				)
				numResults = fallbackResults
				continue
			}

			log.Warn("query failed",
				zap.String("provider", provider.Name()),
				zap.String("query", q.Text),
				zap.Error(err),
			)
			update.Errors = append(update.Errors, errRecord("search", provider.Name()+": "+err.Error(), true))
			break
		}
	}

	return update
}
