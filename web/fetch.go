package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericmjl/canvas-chat-sub001/graph"
)

const defaultMaxFetchBytes = 2 << 20 // 2 MiB

// Page is the readable content extracted from a fetched URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

// Fetcher downloads a page and extracts its readable text. Markup, scripts
// and boilerplate chrome are stripped; the remaining text is sanitized
// before it ever reaches a canvas node or a model prompt.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	policy   *bluemonday.Policy
}

type FetchOption func(*Fetcher)

// WithFetchHTTPClient sets the HTTP client used for requests.
func WithFetchHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFetchMaxBytes caps how much of a response body is read.
func WithFetchMaxBytes(n int64) FetchOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewFetcher creates a fetcher with a strict sanitization policy.
func NewFetcher(opts ...FetchOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		maxBytes: defaultMaxFetchBytes,
		policy:   bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the URL and returns its title and readable text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("fetch %s returned status: %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}

	doc.Find("script, style, noscript, iframe, nav, header, footer, aside").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Prefer the article body when the page marks one up.
	content := doc.Find("main, article").First()
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	text := collapseWhitespace(f.policy.Sanitize(content.Text()))

	return Page{URL: rawURL, Title: title, Text: text}, nil
}

// FetchIntoNode fetches a URL and materializes the page as a FetchResult
// node hanging off parentID with a reference edge. Returns the new node.
func (f *Fetcher) FetchIntoNode(ctx context.Context, g *graph.Store, layout *graph.LayoutEngine, parentID graph.NodeID, rawURL string) (graph.Node, error) {
	page, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return graph.Node{}, err
	}

	var parents []graph.NodeID
	if parentID != "" {
		parents = append(parents, parentID)
	}

	var sb strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", page.Title)
	}
	fmt.Fprintf(&sb, "%s\n\n%s\n", page.URL, page.Text)

	node, err := g.AddNode(graph.Node{
		Kind:     graph.KindFetchResult,
		Content:  sb.String(),
		Summary:  page.Title,
		Position: layout.AutoPosition(parents),
	})
	if err != nil {
		return graph.Node{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if parentID != "" {
		if _, err := g.AddEdge(graph.Edge{Source: parentID, Target: node.ID, Kind: graph.EdgeReference}); err != nil {
			return graph.Node{}, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}
	return node, nil
}

// collapseWhitespace squeezes runs of blank space into single spaces and
// runs of blank lines into paragraph breaks.
func collapseWhitespace(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
