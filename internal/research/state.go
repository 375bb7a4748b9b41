// Package research drives a full company research run: planning, retrieval,
// extraction, reflection, ad enrichment and scoring, under bounded rounds.
package research

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/dossier/internal/adintel"
	"github.com/FranksOps/dossier/internal/planner"
	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/score"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// State names a stage of the run's state machine.
type State string

const (
	StateInit       State = "INIT"
	StatePlanning   State = "PLANNING"
	StateRetrieving State = "RETRIEVING"
	StateExtracting State = "EXTRACTING"
	StateReflecting State = "REFLECTING"
	StateEnriching  State = "ENRICHING"
	StateScoring    State = "SCORING"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Target identifies what to research. Immutable for the run's lifetime.
type Target struct {
	// URL is the canonicalized target website.
	URL string
	// CompanyKey is the human-searchable company identifier derived from
	// the domain, used to synthesize queries.
	CompanyKey string
	// Domain is the registrable hostname without the www prefix.
	Domain string
}

// NewTarget canonicalizes a raw URL into a research target. A missing scheme
// defaults to https; host and scheme are lowercased. The company key is the
// first domain label with hyphens turned into spaces.
func NewTarget(rawURL string) (Target, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return Target{}, errors.New("empty target url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("parsing target url: %w", err)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("target url %q has no host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	domain := strings.TrimPrefix(u.Hostname(), "www.")
	label, _, _ := strings.Cut(domain, ".")
	key := strings.ReplaceAll(label, "-", " ")

	return Target{
		URL:        u.String(),
		CompanyKey: key,
		Domain:     domain,
	}, nil
}

// Round records what one planning/retrieval/extraction cycle did.
type Round struct {
	Number    int
	Queries   []planner.Query
	Retrieved int
	Failures  int
	// Degraded marks a round where retrieval produced nothing or the
	// extraction capability was exhausted; the run continues regardless.
	Degraded bool
}

// RunState is the evolving state of one research run. It is exclusively
// owned and mutated by the Orchestrator; other components see snapshots.
type RunState struct {
	ID         string
	Target     Target
	Status     Status
	Rounds     []Round
	Profile    *profile.Profile
	AdIntel    *adintel.Result
	Score      score.Score
	StartedAt  time.Time
	FinishedAt time.Time
}

// QueriesIssued counts distinct queries across all rounds.
func (rs *RunState) QueriesIssued() int {
	n := 0
	for _, r := range rs.Rounds {
		n += len(r.Queries)
	}
	return n
}
