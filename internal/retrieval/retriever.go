package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/planner"
	"github.com/FranksOps/dossier/internal/scraper"
	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrBatchEmpty is returned when every query in a batch failed to produce
// content.
var ErrBatchEmpty = errors.New("retrieval batch produced no content")

// QueryError records the failure of a single query without failing the
// batch it belongs to.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q failed: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Content is one retrieved, text-extracted page tagged with the query that
// produced it.
type Content struct {
	ID          string
	Query       string
	Section     string
	SourceURL   string
	Title       string
	Text        string
	RetrievedAt time.Time
}

// Batch is the outcome of retrieving one round's queries. Items appear in
// query issue order regardless of which fetch finished first.
type Batch struct {
	Items    []Content
	Failures []*QueryError
}

// Config tunes the retriever.
type Config struct {
	// ResultsPerQuery caps how many search hits are fetched per query.
	ResultsPerQuery int
	// Concurrency bounds the number of queries processed at once.
	Concurrency int
	// MaxTextBytes truncates extracted page text. 0 means 20 KiB.
	MaxTextBytes int
}

// Retriever fans queries out to the searcher and fetches the hits.
type Retriever struct {
	cfg      Config
	searcher Searcher
	fetcher  *scraper.Fetcher
	logger   *slog.Logger
}

// New creates a retriever.
func New(cfg Config, searcher Searcher, fetcher *scraper.Fetcher, logger *slog.Logger) *Retriever {
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 3
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = 20 * 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		cfg:      cfg,
		searcher: searcher,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Retrieve processes all queries concurrently and reassembles the results in
// issue order. A failing query is recorded on the batch; only a batch where
// every query failed returns ErrBatchEmpty. On cancellation the content
// gathered so far is still returned.
func (r *Retriever) Retrieve(ctx context.Context, queries []planner.Query) (*Batch, error) {
	if len(queries) == 0 {
		return &Batch{}, nil
	}

	perQuery := make([][]Content, len(queries))
	perErr := make([]error, len(queries))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i, q := range queries {
		g.Go(func() error {
			items, err := r.retrieveOne(ctx, q)
			perQuery[i] = items
			perErr[i] = err
			return nil
		})
	}
	_ = g.Wait()

	batch := &Batch{}
	for i, q := range queries {
		if perErr[i] != nil {
			qe := &QueryError{Query: q.Text, Err: perErr[i]}
			batch.Failures = append(batch.Failures, qe)
			metrics.QueryFailuresTotal.WithLabelValues(string(q.Origin)).Inc()
			r.logger.Warn("query failed", "query", q.Text, "err", perErr[i])
			continue
		}
		batch.Items = append(batch.Items, perQuery[i]...)
	}

	if len(batch.Items) == 0 {
		return batch, ErrBatchEmpty
	}
	return batch, nil
}

func (r *Retriever) retrieveOne(ctx context.Context, q planner.Query) ([]Content, error) {
	results, err := r.searcher.Search(ctx, q.Text, r.cfg.ResultsPerQuery)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.New("no search results")
	}

	var items []Content
	for _, res := range results {
		if ctx.Err() != nil {
			break
		}
		page, err := r.fetcher.Fetch(ctx, res.URL)
		if err != nil || !page.OK() {
			continue
		}

		text := ExtractText(page.Body, r.cfg.MaxTextBytes)
		if text == "" {
			continue
		}

		items = append(items, Content{
			ID:          uuid.New().String(),
			Query:       q.Text,
			Section:     q.Section,
			SourceURL:   res.URL,
			Title:       res.Title,
			Text:        text,
			RetrievedAt: page.FetchedAt,
		})
	}

	if len(items) == 0 {
		return nil, errors.New("no result page yielded content")
	}
	return items, nil
}

// ExtractText strips markup, scripts and styles from an HTML document and
// returns whitespace-collapsed body text, truncated to maxBytes.
func ExtractText(body []byte, maxBytes int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	if maxBytes > 0 && len(text) > maxBytes {
		text = text[:maxBytes]
	}
	return text
}
