// Package retrieval turns planned queries into content items: it searches
// the web, fetches the result pages, and extracts readable text, tolerating
// per-query failures.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/dossier/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// Result is a single search engine hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Searcher abstracts a search engine. Implementations may use scraping,
// official APIs, or other mechanisms. The limit parameter caps the number
// of results returned.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// ScrapeSearcher scrapes the DuckDuckGo HTML endpoint, which serves plain
// markup without JavaScript, through the same polite fetcher the crawler
// uses.
type ScrapeSearcher struct {
	fetcher  *scraper.Fetcher
	endpoint string
	logger   *slog.Logger
}

// NewScrapeSearcher builds a searcher on top of the given fetcher.
func NewScrapeSearcher(fetcher *scraper.Fetcher, logger *slog.Logger) *ScrapeSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeSearcher{
		fetcher:  fetcher,
		endpoint: "https://html.duckduckgo.com/html/",
		logger:   logger,
	}
}

// SetEndpoint overrides the search endpoint, used by tests.
func (s *ScrapeSearcher) SetEndpoint(endpoint string) {
	s.endpoint = endpoint
}

// Search runs the query and parses the organic results from the page.
func (s *ScrapeSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 5
	}

	searchURL := s.endpoint + "?q=" + url.QueryEscape(query)

	page, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	if !page.OK() {
		return nil, fmt.Errorf("searching %q: status %d, error %q, blocked by %q",
			query, page.StatusCode, page.Error, page.BlockSrc)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page.Body)))
	if err != nil {
		return nil, fmt.Errorf("parsing results for %q: %w", query, err)
	}

	var results []Result
	doc.Find(".result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		link := sel.Find(".result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		results = append(results, Result{
			URL:     resolveRedirect(href),
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < limit
	})

	s.logger.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links back into
// the destination URL.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	// Query() already decodes the parameter.
	if dest := u.Query().Get("uddg"); dest != "" {
		return dest
	}
	return href
}
