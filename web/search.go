package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

// Result is a single web search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// BraveSearch queries the Brave Search API.
type BraveSearch struct {
	APIKey  string
	BaseURL string
	Count   int
	Country string
	Lang    string

	client *http.Client
}

type BraveOption func(*BraveSearch)

// WithBraveBaseURL sets the base URL for the Brave Search API.
func WithBraveBaseURL(baseURL string) BraveOption {
	return func(b *BraveSearch) {
		b.BaseURL = baseURL
	}
}

// WithBraveCount sets the number of results to return (1-20).
func WithBraveCount(count int) BraveOption {
	return func(b *BraveSearch) {
		if count < 1 {
			count = 1
		}
		if count > 20 {
			count = 20
		}
		b.Count = count
	}
}

// WithBraveCountry sets the country code for search results (e.g., "US", "CN").
func WithBraveCountry(country string) BraveOption {
	return func(b *BraveSearch) {
		b.Country = country
	}
}

// WithBraveLang sets the language code for search results (e.g., "en", "zh").
func WithBraveLang(lang string) BraveOption {
	return func(b *BraveSearch) {
		b.Lang = lang
	}
}

// WithBraveHTTPClient sets the HTTP client used for requests.
func WithBraveHTTPClient(client *http.Client) BraveOption {
	return func(b *BraveSearch) {
		b.client = client
	}
}

// NewBraveSearch creates a new Brave search client.
// If apiKey is empty, it tries to read from BRAVE_API_KEY environment variable.
func NewBraveSearch(apiKey string, opts ...BraveOption) (*BraveSearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("BRAVE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY not set")
	}

	b := &BraveSearch{
		APIKey:  apiKey,
		BaseURL: "https://api.search.brave.com/res/v1/web/search",
		Count:   10,
		Country: "US",
		Lang:    "en",
		client:  &http.Client{},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

type braveResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// Search executes the query and returns the web results.
func (b *BraveSearch) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", b.Count))
	if b.Country != "" {
		params.Set("country", b.Country)
	}
	if b.Lang != "" {
		params.Set("search_lang", b.Lang)
	}

	reqURL := fmt.Sprintf("%s?%s", b.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave api returned status: %d", resp.StatusCode)
	}

	var decoded braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return decoded.Web.Results, nil
}

// AddResults materializes a search on the canvas: a Search node holding
// the query, with one Reference child per result linked by a search_result
// edge. Returns the Search node. parentID is optional; when set, the
// Search node hangs off it with a reference edge.
func AddResults(g *graph.Store, layout *graph.LayoutEngine, parentID graph.NodeID, query string, results []Result) (graph.Node, error) {
	var parents []graph.NodeID
	if parentID != "" {
		parents = append(parents, parentID)
	}

	search, err := g.AddNode(graph.Node{
		Kind:     graph.KindSearch,
		Content:  query,
		Position: layout.AutoPosition(parents),
	})
	if err != nil {
		return graph.Node{}, fmt.Errorf("search %q: %w", query, err)
	}
	if parentID != "" {
		if _, err := g.AddEdge(graph.Edge{Source: parentID, Target: search.ID, Kind: graph.EdgeReference}); err != nil {
			return graph.Node{}, fmt.Errorf("search %q: %w", query, err)
		}
	}

	for _, r := range results {
		var sb strings.Builder
		fmt.Fprintf(&sb, "## %s\n\n%s\n\n%s\n", r.Title, r.URL, r.Description)
		ref, err := g.AddNode(graph.Node{
			Kind:     graph.KindReference,
			Content:  sb.String(),
			Summary:  r.Title,
			Position: layout.AutoPosition([]graph.NodeID{search.ID}),
		})
		if err != nil {
			return graph.Node{}, fmt.Errorf("search %q: %w", query, err)
		}
		if _, err := g.AddEdge(graph.Edge{Source: search.ID, Target: ref.ID, Kind: graph.EdgeSearchResult}); err != nil {
			return graph.Node{}, fmt.Errorf("search %q: %w", query, err)
		}
	}

	return search, nil
}
