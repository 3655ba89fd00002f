// Package pas provides a client for the Part Aggregation Service catalog
// API: OAuth client-credentials authentication plus the parametric search
// used to look up manufacturer part numbers.
package pas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Default service endpoints.
const (
	DefaultBaseURL = "https://api.pas.partquest.com"
	DefaultAuthURL = "https://samauth.us-east-1.sws.siemens.com/token"
)

// Routes for search provider 44, version 2.
const (
	searchPath   = "/api/v2/search-providers/44/2/parametric/search"
	nextPagePath = "/api/v2/search-providers/44/2/parametric/get-next-page"
)

// partClassRoot is the root part class the search provider indexes under.
const partClassRoot = "76f2225d"

// Output property ids exposed by the search provider.
const (
	PropManufacturerName = "6230417e"
	PropManufacturerPN   = "d8ac8dcc"
	PropDatasheetURL     = "750a45c8"
	PropFindchipsURL     = "2a2b1476"
	PropLifecycleStatus  = "e5434e21"
	PropLifecycleCode    = "a189d244"
	PropPartID           = "e1aa6f26"
)

// Requested page sizes for the two filter shapes.
const (
	pageSizeQualified = 10
	pageSizePartOnly  = 50
)

// Client defines the catalog search operations.
type Client interface {
	// Search runs a parametric search for a part number, optionally
	// qualified by a manufacturer name, and follows pagination until the
	// service stops returning a next-page token.
	Search(ctx context.Context, partNumber, manufacturer string) ([]Record, error)
}

// Record is one raw candidate returned by the catalog. Immutable once
// decoded; safe to share across goroutines.
type Record struct {
	SearchProviderPart ProviderPart `json:"searchProviderPart"`
}

// ProviderPart carries the provider's view of a part, including the
// requested output properties.
type ProviderPart struct {
	ManufacturerPartNumber string     `json:"manufacturerPartNumber"`
	ManufacturerName       string     `json:"manufacturerName"`
	PartID                 string     `json:"partId"`
	Properties             Properties `json:"properties"`
}

// Properties holds per-property output values keyed by property id.
// Values arrive either as plain JSON strings or as wrapped complex objects
// (for example {"__complex__": "Url", "value": "..."}).
type Properties struct {
	Succeeded map[string]json.RawMessage `json:"succeeded"`
}

// StringProperty returns the named output as a string. Plain strings are
// returned as-is; complex objects yield their "value" field. Missing or
// malformed values yield "".
func (p ProviderPart) StringProperty(id string) string {
	raw, ok := p.Properties.Succeeded[id]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var complexValue struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &complexValue); err == nil {
		return complexValue.Value
	}
	return ""
}

// Option configures the catalog client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for catalog calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	baseURL   string
	tokens    TokenManager
	http      *http.Client
	limiter   *rate.Limiter
	sessionID string
}

// NewClient creates a catalog client that authenticates via tokens. The
// session id header stays fixed for the life of the client; each Search
// call gets its own correlation id.
func NewClient(tokens TokenManager, opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		tokens:  tokens,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		sessionID: fmt.Sprintf("session-%d", time.Now().Unix()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
