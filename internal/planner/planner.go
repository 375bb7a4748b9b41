// Package planner decides what to search for next: it finds the profile
// sections still missing data and synthesizes search queries for them,
// never issuing the same query twice across a run.
package planner

import (
	"fmt"
	"strings"

	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/schema"
)

// Origin records why a query was issued.
type Origin string

const (
	OriginSeed    Origin = "seed"
	OriginGapFill Origin = "gap_fill"
)

// Query is a single search instruction handed to the retriever.
type Query struct {
	Text       string
	Normalized string
	Origin     Origin
	Round      int
	// Section names the profile section this query targets, empty for
	// broad seed queries.
	Section string
}

// Normalize lowercases, trims and collapses inner whitespace so textually
// equivalent queries dedup against each other.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// gapThreshold is the populated-required-field ratio below which a required
// section still counts as a gap even though some fields are filled.
const gapThreshold = 0.5

// Planner tracks issued queries and unresolvable gaps across rounds.
type Planner struct {
	maxPerRound  int
	issued       map[string]struct{}
	unresolvable map[string]struct{}
}

// New creates a planner. maxPerRound <= 0 means no per-round cap.
func New(maxPerRound int) *Planner {
	return &Planner{
		maxPerRound:  maxPerRound,
		issued:       make(map[string]struct{}),
		unresolvable: make(map[string]struct{}),
	}
}

// Seed synthesizes the first-round queries for a fresh target: one broad
// query plus one per required section, within the round cap.
func (p *Planner) Seed(sch schema.Schema, companyKey string) []Query {
	var out []Query

	broad := fmt.Sprintf("%s company marketing overview", companyKey)
	if q, ok := p.issue(broad, OriginSeed, 1, ""); ok {
		out = append(out, q)
	}

	for _, sec := range sch.RequiredSections() {
		if p.capped(len(out)) {
			break
		}
		text := fmt.Sprintf("%s %s", companyKey, sec.Label)
		if q, ok := p.issue(text, OriginSeed, 1, sec.Name); ok {
			out = append(out, q)
		}
	}
	return out
}

// Gaps returns the names of sections that still need data: required sections
// below the coverage threshold and any section with nothing at all, skipping
// gaps already marked unresolvable.
func (p *Planner) Gaps(sch schema.Schema, prof *profile.Profile) []string {
	var gaps []string
	for _, sec := range sch.Sections {
		if _, dead := p.unresolvable[sec.Name]; dead {
			continue
		}
		if sectionGap(sec, prof) {
			gaps = append(gaps, sec.Name)
		}
	}
	return gaps
}

// Outstanding returns every section still missing data, including gaps
// already marked unresolvable. Used to classify a run's final status.
func (p *Planner) Outstanding(sch schema.Schema, prof *profile.Profile) []string {
	var gaps []string
	for _, sec := range sch.Sections {
		if sectionGap(sec, prof) {
			gaps = append(gaps, sec.Name)
		}
	}
	return gaps
}

func sectionGap(sec schema.Section, prof *profile.Profile) bool {
	cov := prof.SectionCoverage(sec)
	if sec.Required && cov.RequiredRatio() < gapThreshold {
		return true
	}
	return cov.Populated == 0
}

// Plan synthesizes gap-fill queries for the given round. Each gap gets its
// first not-yet-issued query variant; a gap whose variants are exhausted is
// marked unresolvable and never planned again.
func (p *Planner) Plan(sch schema.Schema, prof *profile.Profile, round int, companyKey, domain string) []Query {
	var out []Query
	for _, name := range p.Gaps(sch, prof) {
		if p.capped(len(out)) {
			break
		}
		sec, ok := sch.Section(name)
		if !ok {
			continue
		}

		issued := false
		for _, text := range p.variants(sec, companyKey, domain) {
			if q, ok := p.issue(text, OriginGapFill, round, sec.Name); ok {
				out = append(out, q)
				issued = true
				break
			}
		}
		if !issued {
			p.unresolvable[sec.Name] = struct{}{}
		}
	}
	return out
}

// Unresolvable reports whether the planner has given up on a section.
func (p *Planner) Unresolvable(section string) bool {
	_, ok := p.unresolvable[section]
	return ok
}

// Issued reports how many distinct queries the planner has handed out.
func (p *Planner) Issued() int {
	return len(p.issued)
}

// variants lists the query phrasings for a section, most specific first.
func (p *Planner) variants(sec schema.Section, companyKey, domain string) []string {
	out := []string{
		fmt.Sprintf("%s %s", companyKey, sec.Label),
	}
	for _, f := range sec.Fields {
		out = append(out, fmt.Sprintf("%s %s", companyKey, f.Label))
	}
	if domain != "" {
		out = append(out, fmt.Sprintf("%s %s", domain, sec.Label))
	}
	out = append(out, fmt.Sprintf("%q %s", companyKey, sec.Label))
	return out
}

func (p *Planner) issue(text string, origin Origin, round int, section string) (Query, bool) {
	norm := Normalize(text)
	if norm == "" {
		return Query{}, false
	}
	if _, dup := p.issued[norm]; dup {
		return Query{}, false
	}
	p.issued[norm] = struct{}{}
	return Query{
		Text:       text,
		Normalized: norm,
		Origin:     origin,
		Round:      round,
		Section:    section,
	}, true
}

func (p *Planner) capped(planned int) bool {
	return p.maxPerRound > 0 && planned >= p.maxPerRound
}
