package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/FranksOps/dossier/internal/adintel"
	"github.com/FranksOps/dossier/internal/analyzer"
	"github.com/FranksOps/dossier/internal/extract"
	"github.com/FranksOps/dossier/internal/metrics"
	"github.com/FranksOps/dossier/internal/planner"
	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/retrieval"
	"github.com/FranksOps/dossier/internal/schema"
	"github.com/FranksOps/dossier/internal/score"
	"github.com/FranksOps/dossier/internal/storage"
	"github.com/google/uuid"
)

// ErrRunFailed marks a run that obtained no profile data at all. It is the
// only failure mode; every lesser problem degrades the run instead.
var ErrRunFailed = errors.New("run obtained no profile data")

// Config tunes a run.
type Config struct {
	// MaxRounds bounds the planning/reflection loop. 0 means 4.
	MaxRounds int
	// MaxQueriesPerRound caps queries the planner may issue per round.
	MaxQueriesPerRound int
	// EnableAdIntel turns the advertising enrichment step on.
	EnableAdIntel bool
	// StateTimeout is the wall-clock budget for each suspending state
	// (retrieving, extracting, enriching). 0 disables per-state timeouts.
	StateTimeout time.Duration
}

// Deps are the components a run is assembled from. Retriever and Extractor
// are required; the rest are optional.
type Deps struct {
	Retriever *retrieval.Retriever
	Harvester *retrieval.SiteHarvester
	Extractor *extract.Extractor
	Enricher  *adintel.Enricher
	Store     storage.Backend
	Observer  Observer
	Logger    *slog.Logger
}

// Orchestrator owns the run state machine. It performs no I/O itself beyond
// invoking its components.
type Orchestrator struct {
	cfg  Config
	sch  schema.Schema
	deps Deps
	seq  atomic.Uint64
}

// New builds an orchestrator for the given schema and components.
func New(cfg Config, sch schema.Schema, deps Deps) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 4
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, sch: sch, deps: deps}
}

// Run researches the target to a terminal state. The returned RunState is
// always usable for diagnostics; the error is non-nil only for a failed run.
func (o *Orchestrator) Run(ctx context.Context, target Target) (*RunState, error) {
	rs := &RunState{
		ID:        uuid.New().String(),
		Target:    target,
		Status:    StatusPending,
		Profile:   profile.New(),
		StartedAt: time.Now().UTC(),
	}
	o.emit(StateInit, 0)
	o.deps.Logger.Info("run starting", "run", rs.ID, "target", target.URL)

	pl := planner.New(o.cfg.MaxQueriesPerRound)
	lastRound := 0

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		o.emit(StatePlanning, round)

		var queries []planner.Query
		if round == 1 {
			queries = pl.Seed(o.sch, target.CompanyKey)
		} else {
			queries = pl.Plan(o.sch, rs.Profile, round, target.CompanyKey, target.Domain)
		}
		if round > 1 && len(queries) == 0 {
			// No gaps left, or every remaining gap is unresolvable.
			break
		}
		lastRound = round
		rec := Round{Number: round, Queries: queries}

		o.emit(StateRetrieving, round)
		items, failures := o.retrieve(ctx, round, target, queries)
		rec.Retrieved = len(items)
		rec.Failures = failures

		if len(items) == 0 {
			rec.Degraded = true
			o.deps.Logger.Warn("round retrieved nothing", "run", rs.ID, "round", round)
		} else {
			o.emit(StateExtracting, round)
			frag, err := o.extract(ctx, items, rs.Profile, round)
			if err != nil {
				rec.Degraded = true
				o.deps.Logger.Warn("round degraded", "run", rs.ID, "round", round, "err", err)
			}
			profile.Merge(o.sch, rs.Profile, frag)
		}
		rs.Rounds = append(rs.Rounds, rec)

		o.emit(StateReflecting, round)
		if len(pl.Gaps(o.sch, rs.Profile)) == 0 {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	// At most one enrichment per run, and exactly one result: disabled
	// enrichment still attaches a fallback-tagged result so downstream
	// consumers never miss it. Only a real enrichment feeds the profile.
	o.emit(StateEnriching, lastRound)
	if o.cfg.EnableAdIntel && o.deps.Enricher != nil {
		rs.AdIntel = o.enrich(ctx, target)
		profile.Merge(o.sch, rs.Profile, adFragment(o.sch, rs.AdIntel, lastRound))
	} else {
		rs.AdIntel = adintel.Skipped("enrichment disabled")
	}

	o.emit(StateScoring, lastRound)
	rs.Score = score.Compute(o.sch, rs.Profile)
	rs.Status = o.finalStatus(pl, rs)
	rs.FinishedAt = time.Now().UTC()

	metrics.RecordRun(string(rs.Status), rs.FinishedAt.Sub(rs.StartedAt))
	o.save(ctx, rs)

	if rs.Status == StatusFailed {
		o.emit(StateFailed, lastRound)
		return rs, fmt.Errorf("%w: %s", ErrRunFailed, target.URL)
	}

	o.emit(StateDone, lastRound)
	o.deps.Logger.Info("run finished",
		"run", rs.ID,
		"status", rs.Status,
		"rounds", len(rs.Rounds),
		"score", rs.Score.Overall,
	)
	return rs, nil
}

// retrieve gathers content for one round: a bounded crawl of the target's
// own site anchors the first round, then search-driven retrieval for the
// round's queries. Partial results are kept on timeout or cancellation.
func (o *Orchestrator) retrieve(ctx context.Context, round int, target Target, queries []planner.Query) ([]retrieval.Content, int) {
	sctx, cancel := o.stateCtx(ctx)
	defer cancel()

	var items []retrieval.Content
	if round == 1 && o.deps.Harvester != nil {
		site, err := o.deps.Harvester.Harvest(sctx, target.URL)
		if err != nil {
			o.deps.Logger.Warn("site harvest incomplete", "target", target.URL, "err", err)
		}
		// Crawled pages carry no originating query; tag each with the
		// section its text matches hardest so extraction sees the hint.
		for i := range site {
			if sec := o.strongestSection(site[i].Text); sec != "" {
				site[i].Section = sec
			}
		}
		items = append(items, site...)
	}

	failures := 0
	batch, err := o.deps.Retriever.Retrieve(sctx, queries)
	if batch != nil {
		items = append(items, batch.Items...)
		failures = len(batch.Failures)
	}
	if err != nil && !errors.Is(err, retrieval.ErrBatchEmpty) {
		o.deps.Logger.Warn("retrieval error", "round", round, "err", err)
	}
	return items, failures
}

// extract runs the single extraction pass for a retrieved batch. Retries
// live inside the extractor's policy, never here.
func (o *Orchestrator) extract(ctx context.Context, items []retrieval.Content, prof *profile.Profile, round int) (profile.Fragment, error) {
	sctx, cancel := o.stateCtx(ctx)
	defer cancel()
	return o.deps.Extractor.Extract(sctx, items, o.sch, prof.Clone(), round, false)
}

func (o *Orchestrator) strongestSection(text string) string {
	var best string
	bestCount := 0
	for _, m := range analyzer.MatchSections(text, o.sch) {
		if m.Count > bestCount {
			best, bestCount = m.Section, m.Count
		}
	}
	return best
}

func (o *Orchestrator) enrich(ctx context.Context, target Target) *adintel.Result {
	sctx, cancel := o.stateCtx(ctx)
	defer cancel()
	return o.deps.Enricher.Enrich(sctx, target.CompanyKey)
}

// finalStatus classifies the run: failed when nothing was learned, partial
// when gaps remain (resolvable or not), completed otherwise.
func (o *Orchestrator) finalStatus(pl *planner.Planner, rs *RunState) Status {
	if rs.Profile.Empty() {
		return StatusFailed
	}
	if len(pl.Outstanding(o.sch, rs.Profile)) > 0 {
		return StatusPartial
	}
	return StatusCompleted
}

func (o *Orchestrator) save(ctx context.Context, rs *RunState) {
	if o.deps.Store == nil {
		return
	}
	rec, err := rs.Record()
	if err != nil {
		o.deps.Logger.Warn("encoding run record", "run", rs.ID, "err", err)
		return
	}
	// Best effort, and the record must survive a cancelled run context.
	if err := o.deps.Store.Save(context.WithoutCancel(ctx), rec); err != nil {
		o.deps.Logger.Warn("saving run record", "run", rs.ID, "err", err)
	}
}

func (o *Orchestrator) stateCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.StateTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.cfg.StateTimeout)
}

func (o *Orchestrator) emit(state State, round int) {
	if o.deps.Observer == nil {
		return
	}
	o.deps.Observer.Observe(Event{
		State:     state,
		Round:     round,
		Timestamp: time.Now().UTC(),
		Seq:       o.seq.Add(1),
	})
}

// adFragment projects an enrichment result onto the schema's ads section.
// Live data overwrites extracted guesses; a fallback result only fills holes,
// and its unknown status counts as a placeholder so scoring stays honest.
func adFragment(sch schema.Schema, res *adintel.Result, round int) profile.Fragment {
	frag := profile.Fragment{
		ID:         uuid.New().String(),
		Round:      round,
		Correction: res.Mode == adintel.ModeLive,
	}
	sec, ok := sch.Section("ads")
	if !ok {
		return frag
	}
	for _, f := range sec.Fields {
		switch f.Name {
		case "advertising_status":
			frag.Set(sec.Name, f.Name, profile.String(res.Summary.Status))
		case "campaign_summary":
			frag.Set(sec.Name, f.Name, profile.String(res.Summary.Narrative))
		case "targeting_summary":
			frag.Set(sec.Name, f.Name, profile.String(res.Summary.TargetingBreadth))
		case "optimization_opportunities":
			frag.Set(sec.Name, f.Name, profile.StringList(res.Summary.Opportunities...))
		}
	}
	return frag
}
