package loader

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/ragpipe"
)

// WebLoader fetches a URL and extracts its readable text. Markup is
// sanitized with bluemonday before goquery pulls the visible text, and
// the page title lands in metadata for citation.
type WebLoader struct {
	url      string
	client   *http.Client
	metadata map[string]any
	policy   *bluemonday.Policy
}

var _ ragpipe.DocumentLoader = (*WebLoader)(nil)

// WebLoaderOption configures the WebLoader
type WebLoaderOption func(*WebLoader)

// WithHTTPClient sets a custom HTTP client (timeouts, proxies)
func WithHTTPClient(client *http.Client) WebLoaderOption {
	return func(l *WebLoader) {
		l.client = client
	}
}

// WithWebMetadata sets additional metadata for loaded documents
func WithWebMetadata(metadata map[string]any) WebLoaderOption {
	return func(l *WebLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewWebLoader creates a new WebLoader
func NewWebLoader(url string, opts ...WebLoaderOption) *WebLoader {
	l := &WebLoader{
		url:      url,
		client:   &http.Client{Timeout: 30 * time.Second},
		metadata: make(map[string]any),
		policy:   bluemonday.UGCPolicy(),
	}

	l.metadata["source"] = url
	l.metadata["type"] = "web"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load fetches the page as one document
func (l *WebLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata fetches the page with additional metadata
func (l *WebLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.url, Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ragpipe.SourceError{Source: l.url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.url, Err: err}
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		combined["title"] = title
	}

	// Strip non-content elements before extracting text
	doc.Find("script, style, noscript, nav, footer, header").Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	html, err := body.Html()
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.url, Err: err}
	}

	sanitized, err := goquery.NewDocumentFromReader(strings.NewReader(l.policy.Sanitize(html)))
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.url, Err: err}
	}

	text := normalizeWhitespace(sanitized.Text())
	if text == "" {
		return nil, &ragpipe.SourceError{Source: l.url, Err: fmt.Errorf("no text content extracted")}
	}

	return []ragpipe.Document{{
		ID:       fmt.Sprintf("web_%s", l.url),
		Content:  text,
		Metadata: combined,
	}}, nil
}

// normalizeWhitespace collapses runs of blank lines and trims each line.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
