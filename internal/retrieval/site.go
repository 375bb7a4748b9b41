package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/FranksOps/dossier/internal/scraper"
	"github.com/google/uuid"
)

// SiteHarvester collects first-party content by crawling the research
// target's own domain, which anchors the first round before any search
// queries run.
type SiteHarvester struct {
	fetcher *scraper.Fetcher
	cfg     scraper.CrawlConfig
	logger  *slog.Logger
}

// NewSiteHarvester builds a harvester. Domains and seeds are derived from
// the target URL at harvest time; the passed config supplies the crawl
// limits.
func NewSiteHarvester(cfg scraper.CrawlConfig, fetcher *scraper.Fetcher, logger *slog.Logger) *SiteHarvester {
	if logger == nil {
		logger = slog.Default()
	}
	return &SiteHarvester{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Harvest crawls the target's domain breadth-first and converts every
// successfully fetched HTML page into a content item. Sitemaps declared in
// robots.txt extend the seed set when available.
func (h *SiteHarvester) Harvest(ctx context.Context, targetURL string) ([]Content, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("parsing target url: %w", err)
	}

	cfg := h.cfg
	cfg.Domains = []string{u.Hostname()}

	seeds := []string{targetURL}
	if cfg.RespectRobots {
		auditor := scraper.NewRobotsTxtAuditor(h.fetcher, h.logger)
		if sitemaps, err := auditor.SitemapExtracts(ctx, u.Scheme+"://"+u.Host); err == nil && len(sitemaps) > 0 {
			sf := scraper.NewSitemapFetcher(h.fetcher, h.logger)
			for _, sm := range sitemaps {
				urls, err := sf.FetchSitemap(ctx, sm)
				if err != nil {
					h.logger.Debug("sitemap fetch failed", "url", sm, "err", err)
					continue
				}
				seeds = append(seeds, urls...)
			}
		}
	}

	queryTag := "site:" + u.Hostname()

	var items []Content
	collect := func(p *scraper.Page) {
		if !p.OK() {
			return
		}
		text := ExtractText(p.Body, 20*1024)
		if text == "" {
			return
		}
		items = append(items, Content{
			ID:          uuid.New().String(),
			Query:       queryTag,
			SourceURL:   p.URL,
			Text:        text,
			RetrievedAt: p.FetchedAt,
		})
	}

	crawler := scraper.NewCrawler(cfg, h.fetcher, collect, h.logger)
	if err := crawler.Run(ctx, seeds); err != nil {
		// Keep whatever was gathered before cancellation.
		return items, err
	}
	return items, nil
}
