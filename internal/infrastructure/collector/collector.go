// Package collector scrapes print metadata from the parliament site:
// legislative histories, proposed law changes, related bills, and document
// listings including amendment sub-versions.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"TiskyPipeline/internal/ports"
	"TiskyPipeline/internal/ratelimit"
)

const userAgent = "TiskyPipeline/1.0"

// Client scrapes the parliament site. All requests flow through the shared
// limiter so concurrent stages never burst against it.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

var (
	_ ports.HistorySource  = (*Client)(nil)
	_ ports.DocumentSource = (*Client)(nil)
)

// New wires a scraping client for the given site root.
func New(baseURL string, timeout time.Duration, limiter *ratelimit.Limiter, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		limiter: limiter,
		log:     log,
	}
}

// fetchPage GETs a page through the limiter and parses it. The HTTP status
// is returned alongside the error so callers can treat 404 as page absence.
func (c *Client) fetchPage(ctx context.Context, pageURL string) (*goquery.Document, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status)
	}

	// The site serves Windows-1250; decode to UTF-8 before parsing so the
	// diacritic matchers downstream see the text they expect.
	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("parse page: %w", err)
	}
	return doc, resp.StatusCode, nil
}

// joinedText flattens a selection to its text nodes, each trimmed, joined by
// single spaces. Regex extraction needs stable spacing across element
// boundaries regardless of how the source HTML was formatted.
func joinedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(parts, " ")
}

// cellText collapses a table cell to single-spaced text.
func cellText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}
