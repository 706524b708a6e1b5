package model

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// QueryCategory tags a search query with the kind of problem evidence it
// is designed to surface.
type QueryCategory string

const (
	QueryCategoryExplicit QueryCategory = "explicit"
	QueryCategoryImplicit QueryCategory = "implicit"
	QueryCategoryReviews  QueryCategory = "reviews"
	QueryCategoryHiring   QueryCategory = "hiring"
	QueryCategoryFounder  QueryCategory = "founder"
)

// SearchQuery is one templated query issued to a search provider. Queries
// are built once by the search stage and never mutated afterward.
type SearchQuery struct {
	Text           string        `json:"text"`
	Category       QueryCategory `json:"category"`
	IncludeDomains []string      `json:"include_domains,omitempty"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
}

// SearchResult is one fetched document or snippet, normalized across
// providers.
type SearchResult struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Text          string    `json:"text"`
	Highlights    []string  `json:"highlights,omitempty"`
	Platform      string    `json:"platform,omitempty"`
	Score         float64   `json:"score,omitempty"`
	PublishedDate time.Time `json:"published_date,omitempty"`
	Query         string    `json:"query,omitempty"`
}

// NormalizeURL canonicalizes a URL for deduplication: NFC-normalized,
// lowercased scheme and host, query and fragment stripped, trailing slash
// removed. Invalid URLs fall back to a trimmed lowercase of the input so
// they still dedupe against themselves.
func NormalizeURL(raw string) string {
	raw = norm.NFC.String(strings.TrimSpace(raw))
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimRight(raw, "/"))
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimRight(u.Path, "/")
	return scheme + "://" + host + path
}

// DetectPlatform classifies a result URL into a coarse source platform.
func DetectPlatform(rawURL string) string {
	host := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}
	switch {
	case strings.Contains(host, "reddit.com"):
		return "reddit"
	case strings.Contains(host, "news.ycombinator.com"):
		return "hackernews"
	case strings.Contains(host, "github.com"):
		return "github"
	case strings.Contains(host, "stackoverflow.com"):
		return "stackoverflow"
	case strings.Contains(host, "g2.com") || strings.Contains(host, "capterra.com"):
		return "review_site"
	case strings.Contains(host, "linkedin.com"):
		return "linkedin"
	case strings.Contains(host, "twitter.com") || strings.Contains(host, "x.com"):
		return "twitter"
	default:
		return "web"
	}
}
