package adintel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/pkg/ratelimit"
)

// Mode tells how the enrichment result was produced.
type Mode string

const (
	ModeLive     Mode = "live"
	ModeFallback Mode = "fallback"
)

// Result is the enrichment outcome. A fallback result is still a valid
// result: zero counts, unknown status, and the reason the live path failed.
type Result struct {
	Mode      Mode      `json:"mode"`
	Counts    Counts    `json:"counts"`
	Summary   Summary   `json:"summary"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Enricher drives the credential check, live fetch and summarization.
// It never fails: every path ends in a usable Result.
type Enricher struct {
	client         *MetaClient
	policy         *ratelimit.Policy
	sophistication SophisticationPolicy
	logger         *slog.Logger
}

// NewEnricher builds an enricher. A nil policy means a single fetch attempt.
func NewEnricher(client *MetaClient, policy *ratelimit.Policy, sophistication SophisticationPolicy, logger *slog.Logger) *Enricher {
	if policy == nil {
		policy = ratelimit.NewPolicy(1, 0, 0, 0, 0)
	}
	if (sophistication == SophisticationPolicy{}) {
		sophistication = DefaultSophisticationPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{
		client:         client,
		policy:         policy,
		sophistication: sophistication,
		logger:         logger,
	}
}

// Enrich checks the credential, fetches live ad data when possible, and
// falls back to a deterministic stub result otherwise.
func (e *Enricher) Enrich(ctx context.Context, companyKey string) *Result {
	now := time.Now().UTC()

	if e.client == nil || !e.client.HasCredential() {
		e.logger.Info("ad enrichment falling back", "reason", "no credential")
		return e.fallback(now, "no credential configured")
	}

	var counts Counts
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		c, err := e.client.FetchAds(ctx, companyKey)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	if err != nil {
		reason := fallbackReason(err)
		e.logger.Warn("ad enrichment falling back", "reason", reason, "err", err)
		return e.fallback(now, reason)
	}

	metrics.EnrichmentsTotal.WithLabelValues(string(ModeLive)).Inc()
	return &Result{
		Mode:      ModeLive,
		Counts:    counts,
		Summary:   Summarize(ModeLive, counts, e.sophistication),
		FetchedAt: now,
	}
}

// Skipped builds the fallback result attached when enrichment is disabled or
// no enricher is configured. A run always carries an ad intelligence result.
func Skipped(reason string) *Result {
	metrics.EnrichmentsTotal.WithLabelValues(string(ModeFallback)).Inc()
	return &Result{
		Mode:      ModeFallback,
		Counts:    Counts{Platforms: map[string]int{}},
		Summary:   Summarize(ModeFallback, Counts{}, DefaultSophisticationPolicy()),
		Reason:    reason,
		FetchedAt: time.Now().UTC(),
	}
}

func (e *Enricher) fallback(now time.Time, reason string) *Result {
	metrics.EnrichmentsTotal.WithLabelValues(string(ModeFallback)).Inc()
	return &Result{
		Mode:      ModeFallback,
		Counts:    Counts{Platforms: map[string]int{}},
		Summary:   Summarize(ModeFallback, Counts{}, e.sophistication),
		Reason:    reason,
		FetchedAt: now,
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrCredentialInvalid):
		return "credential invalid"
	case errors.Is(err, ErrRateLimited):
		return "rate limited"
	case errors.Is(err, ErrUnavailable):
		return "api unavailable"
	case errors.Is(err, ratelimit.ErrExhausted):
		return "retries exhausted"
	default:
		return "fetch failed"
	}
}
