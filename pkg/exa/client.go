// Package exa provides a client for the Exa semantic search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/probelab/discovery-cli/internal/resilience"
)

const defaultBaseURL = "https://api.exa.ai"

// SearchType selects the retrieval strategy.
const (
	SearchTypeNeural  = "neural"
	SearchTypeKeyword = "keyword"
	SearchTypeAuto    = "auto"
)

// Client performs searches against the Exa API.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	Query              string   `json:"query"`
	Type               string   `json:"type,omitempty"`
	NumResults         int      `json:"numResults,omitempty"`
	IncludeDomains     []string `json:"includeDomains,omitempty"`
	StartPublishedDate string   `json:"startPublishedDate,omitempty"`
	EndPublishedDate   string   `json:"endPublishedDate,omitempty"`
	Contents           *Contents `json:"contents,omitempty"`
}

// Contents asks Exa to return page text and highlights with each result.
type Contents struct {
	Text       bool `json:"text,omitempty"`
	Highlights bool `json:"highlights,omitempty"`
}

// SearchResponse is the response from POST /search.
type SearchResponse struct {
	Results []Result `json:"results"`
}

// Result is a single search hit.
type Result struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Text          string   `json:"text"`
	Highlights    []string `json:"highlights,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Score         float64  `json:"score,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates an Exa API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		retry:   resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.ShouldRetry == nil {
		c.retry.ShouldRetry = retryable
	}
	return c
}

// retryable retries timeouts and 5xx responses. Rate-limit and credential
// errors are surfaced immediately so the caller can switch providers.
func retryable(err error) bool {
	return resilience.IsTransient(err) && !resilience.IsRateLimited(err)
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "exa: marshal request")
	}
	return resilience.Do(ctx, c.retry, "exa", func(ctx context.Context) (*SearchResponse, error) {
		return c.search(ctx, body)
	})
}

func (c *httpClient) search(ctx context.Context, body []byte) (*SearchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "exa: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "exa: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "exa: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewAPIError("exa", resp.StatusCode,
			eris.Errorf("exa: unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "exa: unmarshal response")
	}

	return &result, nil
}
