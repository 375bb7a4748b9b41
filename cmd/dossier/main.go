// Command dossier researches a company from its website URL and prints the
// resulting profile report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/dossier/internal/adintel"
	"github.com/FranksOps/dossier/internal/config"
	"github.com/FranksOps/dossier/internal/extract"
	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/report"
	"github.com/FranksOps/dossier/internal/research"
	"github.com/FranksOps/dossier/internal/retrieval"
	"github.com/FranksOps/dossier/internal/schema"
	"github.com/FranksOps/dossier/internal/scraper"
	"github.com/FranksOps/dossier/internal/storage"
	"github.com/FranksOps/dossier/internal/storage/jsonbackend"
	"github.com/FranksOps/dossier/internal/storage/postgres"
	"github.com/FranksOps/dossier/internal/storage/sqlite"
	"github.com/FranksOps/dossier/pkg/ratelimit"
)

var (
	configPath  string
	storeDSN    string
	metricsPort int
	jsonOut     bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Automated company research",
	Long: `Dossier researches a company from its website: it crawls the site,
searches the web for gaps, extracts a structured marketing profile and
enriches it with paid-advertising intelligence.`,
	SilenceUsage: true,
}

var researchCmd = &cobra.Command{
	Use:   "research [url]",
	Short: "Research a company by its website URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	researchCmd.Flags().StringVar(&storeDSN, "store", "", "override the storage DSN")
	researchCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "expose Prometheus metrics on this port")
	researchCmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
	rootCmd.AddCommand(researchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runResearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger()

	target, err := research.NewTarget(args[0])
	if err != nil {
		return err
	}

	if metricsPort > 0 {
		srv := metrics.Start(metricsPort)
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Stop(shutCtx)
		}()
	}

	// One rate budget per external source: web fetches and the ads API
	// must not eat into each other.
	sources := ratelimit.NewPerSource(cfg.Retrieval.RequestsPerSecond, cfg.Retrieval.Jitter)
	defer sources.Stop()

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      30 * time.Second,
		UseCookieJar: true,
		Limiter:      sources.Get("web"),
	})
	if err != nil {
		return fmt.Errorf("building fetcher: %w", err)
	}

	searcher := retrieval.NewScrapeSearcher(fetcher, logger)
	retriever := retrieval.New(retrieval.Config{
		ResultsPerQuery: cfg.Retrieval.ResultsPerQuery,
		Concurrency:     cfg.Retrieval.Concurrency,
	}, searcher, fetcher, logger)

	harvester := retrieval.NewSiteHarvester(scraper.CrawlConfig{
		MaxDepth:          cfg.Retrieval.CrawlMaxDepth,
		MaxPages:          cfg.Retrieval.CrawlMaxPages,
		RespectRobots:     cfg.Retrieval.RespectRobots,
		UserAgent:         cfg.Retrieval.UserAgent,
		RequestsPerSecond: cfg.Retrieval.RequestsPerSecond,
		Jitter:            cfg.Retrieval.Jitter,
	}, fetcher, logger)

	if cfg.Extract.APIKey == "" {
		return errors.New("GEMINI_API_KEY is not set; the extraction capability needs it")
	}
	capability, err := extract.NewGemini(ctx, extract.GeminiConfig{
		APIKey:          cfg.Extract.APIKey,
		Model:           cfg.Extract.Model,
		MaxContentChars: cfg.Extract.MaxContentChars,
	})
	if err != nil {
		return fmt.Errorf("building extraction capability: %w", err)
	}

	// One retry policy per external source so in-flight caps don't mix.
	extractPolicy := newPolicy(cfg.Retry)
	enrichPolicy := newPolicy(cfg.Retry)
	extractor := extract.New(capability, extractPolicy, logger)

	metaClient, err := adintel.NewMetaClient(adintel.ClientConfig{
		AccessToken: cfg.AdIntel.AccessToken,
		APIVersion:  cfg.AdIntel.APIVersion,
		Countries:   cfg.AdIntel.Countries,
		MaxAds:      cfg.AdIntel.MaxAds,
		Limiter:     sources.Get("meta"),
	}, nil)
	if err != nil {
		return fmt.Errorf("building ad library client: %w", err)
	}
	enricher := adintel.NewEnricher(metaClient, enrichPolicy, adintel.DefaultSophisticationPolicy(), logger)

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	orch := research.New(research.Config{
		MaxRounds:          cfg.Research.MaxRounds,
		MaxQueriesPerRound: cfg.Research.MaxQueriesPerRound,
		EnableAdIntel:      cfg.Research.EnableAdIntel,
		StateTimeout:       cfg.Research.StateTimeout(),
	}, schema.Default(), research.Deps{
		Retriever: retriever,
		Harvester: harvester,
		Extractor: extractor,
		Enricher:  enricher,
		Store:     store,
		Observer: research.ObserverFunc(func(e research.Event) {
			logger.Debug("state change", "state", e.State, "round", e.Round, "seq", e.Seq)
		}),
		Logger: logger,
	})

	rs, runErr := orch.Run(ctx, target)
	if rs != nil {
		summary := report.GenerateSummary(rs)
		if jsonOut {
			err = report.WriteJSON(cmd.OutOrStdout(), summary)
		} else {
			err = report.WriteText(cmd.OutOrStdout(), summary)
		}
		if err != nil {
			return err
		}
	}
	return runErr
}

func newPolicy(r config.Retry) *ratelimit.Policy {
	return ratelimit.NewPolicy(r.MaxAttempts, r.BaseDelay(), r.MaxDelay(), r.Jitter, r.MaxInFlight)
}

func openStore(ctx context.Context, cfg config.Storage) (storage.Backend, error) {
	dsn := cfg.DSN
	if storeDSN != "" {
		dsn = storeDSN
	}
	if dsn == "" {
		return nil, nil
	}

	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.New(dsn)
	case "postgres":
		return postgres.New(ctx, dsn)
	case "json":
		return jsonbackend.New(dsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
