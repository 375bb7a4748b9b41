package scraper

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/pkg/ratelimit"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// defaultExcludedPaths are asset and utility path prefixes that never carry
// marketing content worth extracting.
var defaultExcludedPaths = []string{
	"/static/", "/assets/", "/images/", "/img/", "/css/", "/js/",
	"/fonts/", "/media/", "/wp-content/uploads/", "/cdn-cgi/",
}

// CrawlConfig provides parameters for the BFS crawler.
type CrawlConfig struct {
	MaxDepth    int
	MaxPages    int
	Concurrency int
	// In-scope domains, ensures we don't crawl the whole internet
	Domains []string
	// RespectRobots specifies whether to check robots.txt before fetching
	RespectRobots bool
	// UserAgent is the User-Agent string to use when checking robots.txt
	UserAgent string
	// RequestsPerSecond limits the fetch rate (0 = unlimited)
	RequestsPerSecond float64
	// Jitter applies randomness to the rate limiter (0.0 to 1.0)
	Jitter float64
	// QueueSize limits the depth of the internal BFS queue (0 = default 10000)
	QueueSize int
	// ExcludedPaths skips URLs whose path starts with any listed prefix.
	// Nil uses the default asset excludes.
	ExcludedPaths []string
}

// Collector receives every fetched page, including failed ones, as the
// crawl progresses. Calls are serialized by the crawler.
type Collector func(*Page)

// Crawler walks a site breadth-first from seed URLs and hands each fetched
// page to a collector.
type Crawler struct {
	cfg     CrawlConfig
	fetcher *Fetcher
	logger  *slog.Logger
	auditor *RobotsTxtAuditor
	limiter *ratelimit.Limiter

	collector   Collector
	collectorMu sync.Mutex
	fetched     atomic.Int64

	// Track visited URLs to prevent loops
	visitedMu sync.RWMutex
	visited   map[string]struct{}
}

type job struct {
	URL   string
	Depth int
}

// NewCrawler creates a new BFS crawler. The collector must not be nil.
func NewCrawler(cfg CrawlConfig, fetcher *Fetcher, collect Collector, logger *slog.Logger) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "*" // default generic user-agent for robots.txt
	}
	if cfg.ExcludedPaths == nil {
		cfg.ExcludedPaths = defaultExcludedPaths
	}

	var auditor *RobotsTxtAuditor
	if cfg.RespectRobots {
		auditor = NewRobotsTxtAuditor(fetcher, logger)
	}

	return &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		logger:    logger,
		auditor:   auditor,
		limiter:   ratelimit.NewLimiter(cfg.RequestsPerSecond, cfg.Jitter),
		collector: collect,
		visited:   make(map[string]struct{}),
	}
}

// Run starts the BFS crawl from the provided seed URLs and returns once the
// page budget is spent or the frontier is exhausted.
func (c *Crawler) Run(ctx context.Context, seeds []string) error {
	defer c.limiter.Stop()

	queueSize := c.cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 10000 // default buffer size
	}
	queue := make(chan job, queueSize)

	for _, seed := range seeds {
		if c.shouldVisit(seed) {
			c.markVisited(seed)
			queue <- job{URL: seed, Depth: 0}
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	// jobsWg tracks outstanding queue items, including links discovered
	// mid-crawl, so we know when the crawl is truly idle.
	var jobsWg sync.WaitGroup
	jobsWg.Add(len(queue))

	for i := 0; i < c.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gCtx.Done():
					return gCtx.Err()
				case j := <-queue:
					c.processJob(gCtx, j, queue, &jobsWg)
					jobsWg.Done()
				}
			}
		})
	}

	done := make(chan struct{})
	go func() {
		jobsWg.Wait()
		close(done)
	}()

	select {
	case <-gCtx.Done():
		return gCtx.Err()
	case <-done:
		// all jobs finished
	}

	return nil
}

func (c *Crawler) processJob(ctx context.Context, j job, queue chan<- job, wg *sync.WaitGroup) {
	if c.fetched.Load() >= int64(c.cfg.MaxPages) {
		return
	}

	if c.cfg.RespectRobots && c.auditor != nil {
		allowed, err := c.auditor.IsAllowed(ctx, j.URL, c.cfg.UserAgent)
		if err != nil {
			// Fail open on robots.txt errors.
			c.logger.Warn("error checking robots.txt", "url", j.URL, "err", err)
		} else if !allowed {
			c.logger.Debug("url blocked by robots.txt", "url", j.URL)
			return
		}
	}

	c.logger.Debug("fetching", "url", j.URL, "depth", j.Depth)

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Error("rate limiter cancelled", "url", j.URL, "err", err)
		return
	}

	page, err := c.fetcher.Fetch(ctx, j.URL)
	if err != nil {
		c.logger.Error("fetch error", "url", j.URL, "err", err)
	}
	if page == nil {
		return
	}

	c.fetched.Add(1)

	c.collectorMu.Lock()
	c.collector(page)
	c.collectorMu.Unlock()

	domain := ""
	if parsedURL, parseErr := url.Parse(j.URL); parseErr == nil {
		domain = parsedURL.Hostname()
	}
	metrics.RecordFetch(domain, page.StatusCode, page.Error, page.Blocked, page.BlockSrc, len(page.Body), page.Duration)

	// Depth limit reached or fetch failed: don't expand links.
	if j.Depth >= c.cfg.MaxDepth || page.Error != "" {
		return
	}

	contentType := ""
	if vals := page.Headers["Content-Type"]; len(vals) > 0 {
		contentType = vals[0]
	}

	if strings.Contains(strings.ToLower(contentType), "text/html") {
		links := c.extractLinks(j.URL, page.Body)
		for _, link := range links {
			if c.fetched.Load() >= int64(c.cfg.MaxPages) {
				return
			}
			if c.shouldVisit(link) {
				c.markVisited(link)
				wg.Add(1)
				select {
				case queue <- job{URL: link, Depth: j.Depth + 1}:
				case <-ctx.Done():
					wg.Done() // Context cancelled, give up
				}
			}
		}
	}
}

func (c *Crawler) shouldVisit(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	// Normalize
	u.Fragment = ""
	normalized := u.String()

	c.visitedMu.RLock()
	_, seen := c.visited[normalized]
	c.visitedMu.RUnlock()

	if seen {
		return false
	}

	// Check domain scope
	if len(c.cfg.Domains) > 0 {
		inScope := false
		host := strings.ToLower(u.Hostname())
		for _, domain := range c.cfg.Domains {
			d := strings.ToLower(domain)
			if host == d || strings.HasSuffix(host, "."+d) {
				inScope = true
				break
			}
		}
		if !inScope {
			return false
		}
	}

	for _, prefix := range c.cfg.ExcludedPaths {
		if strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}

	// Only HTTP/HTTPS
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return true
}

func (c *Crawler) markVisited(rawURL string) {
	u, err := url.Parse(rawURL)
	if err == nil {
		u.Fragment = ""
		rawURL = u.String()
	}

	c.visitedMu.Lock()
	c.visited[rawURL] = struct{}{}
	c.visitedMu.Unlock()
}

func (c *Crawler) extractLinks(baseURL string, body []byte) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			return
		}

		links = append(links, base.ResolveReference(u).String())
	})

	return links
}
