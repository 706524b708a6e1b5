package pipeline

import (
	"fmt"
	"time"

	"github.com/probelab/discovery-cli/internal/model"
)

// queryTemplate builds one search query per industry for its category.
type queryTemplate struct {
	category model.QueryCategory
	format   string
	domains  []string
}

var queryTemplates = []queryTemplate{
	{
		category: model.QueryCategoryExplicit,
		format:   `%s startup "biggest challenge" OR "struggling with" OR "pain point"`,
	},
	{
		category: model.QueryCategoryImplicit,
		format:   `%s "we ended up building our own" OR "hacky workaround" OR "spreadsheet hell"`,
		domains:  []string{"reddit.com", "news.ycombinator.com"},
	},
	{
		category: model.QueryCategoryReviews,
		format:   `%s software review "frustrating" OR "wish it could" OR "dealbreaker"`,
		domains:  []string{"g2.com", "capterra.com"},
	},
	{
		category: model.QueryCategoryHiring,
		format:   `%s startup hiring "manual process" OR "operations backlog"`,
		domains:  []string{"linkedin.com", "greenhouse.io", "lever.co"},
	},
	{
		category: model.QueryCategoryFounder,
		format:   `%s founder postmortem "what went wrong" OR "lessons learned"`,
	},
}

// BuildQueries expands the query templates over the configured industries
// with a publication window ending now.
func BuildQueries(industries []string, windowDays int, now time.Time) []model.SearchQuery {
	end := now.UTC()
	start := end.AddDate(0, 0, -windowDays)

	queries := make([]model.SearchQuery, 0, len(queryTemplates)*len(industries))
	for _, tmpl := range queryTemplates {
		for _, industry := range industries {
			queries = append(queries, model.SearchQuery{
				Text:           fmt.Sprintf(tmpl.format, industry),
				Category:       tmpl.category,
				IncludeDomains: tmpl.domains,
				StartDate:      start,
				EndDate:        end,
			})
		}
	}
	return queries
}
