// Package harmonic provides a client for the Harmonic company-data API.
package harmonic

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

const defaultBaseURL = "https://api.harmonic.ai"

// Client fetches company records.
type Client interface {
	SearchCompanies(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// SearchRequest is the request body for POST /search/companies.
type SearchRequest struct {
	FundingStages []string `json:"funding_stages,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	PageSize      int      `json:"page_size,omitempty"`
	Cursor        string   `json:"cursor,omitempty"`
}

// SearchResponse is the response from POST /search/companies.
type SearchResponse struct {
	Results []Company `json:"results"`
	Cursor  string    `json:"cursor,omitempty"`
}

// Company is one upstream entity. Attributes live under nested properties.
type Company struct {
	EntityURN  string     `json:"entity_urn"`
	Properties Properties `json:"properties"`
}

// Properties carries the upstream attribute bag.
type Properties struct {
	Name            string   `json:"name"`
	Website         string   `json:"website,omitempty"`
	LinkedinURL     string   `json:"linkedin_url,omitempty"`
	Description     string   `json:"description,omitempty"`
	FundingTotal    float64  `json:"funding_total"`
	FundingStage    string   `json:"funding_stage,omitempty"`
	HeadcountBucket string   `json:"headcount_bucket,omitempty"`
	FoundingYear    int      `json:"founding_year,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	Locations       []string `json:"locations,omitempty"`
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

// NewClient creates a Harmonic API client. There is no fallback company
// source, so unlike the search clients a 429 here is retried.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		retry:   resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchCompanies(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: marshal request")
	}
	return resilience.Do(ctx, c.retry, "harmonic", func(ctx context.Context) (*SearchResponse, error) {
		return c.searchCompanies(ctx, body)
	})
}

func (c *httpClient) searchCompanies(ctx context.Context, body []byte) (*SearchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/companies", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "harmonic: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewAPIError("harmonic", resp.StatusCode,
			eris.Errorf("harmonic: unexpected status %d: %s", resp.StatusCode, string(respBody)))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "harmonic: unmarshal response")
	}

	return &result, nil
}
