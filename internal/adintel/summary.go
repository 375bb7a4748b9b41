package adintel

import (
	"fmt"
	"sort"
	"strings"
)

// Advertising status values, matching the profile schema's enum.
const (
	StatusActive   = "active_advertiser"
	StatusInactive = "inactive_advertiser"
	StatusNoAds    = "no_ads_found"
	StatusUnknown  = "unknown"
)

// Sophistication levels, highest first.
const (
	SophisticationHigh   = "high"
	SophisticationMedium = "medium"
	SophisticationLow    = "low"
	SophisticationBasic  = "basic"
)

// SophisticationPolicy sets the ad-count thresholds for each level. A level
// is demoted one step when the ads show neither creative variety nor A/B
// testing evidence.
type SophisticationPolicy struct {
	HighAds   int
	MediumAds int
	LowAds    int
}

// DefaultSophisticationPolicy matches the observed heuristics of ad-spend
// analysis: ten or more ads rates high, five medium, two low.
func DefaultSophisticationPolicy() SophisticationPolicy {
	return SophisticationPolicy{HighAds: 10, MediumAds: 5, LowAds: 2}
}

// Level rates the counts against the policy thresholds.
func (p SophisticationPolicy) Level(counts Counts) string {
	var level string
	switch {
	case counts.TotalAds >= p.HighAds:
		level = SophisticationHigh
	case counts.TotalAds >= p.MediumAds:
		level = SophisticationMedium
	case counts.TotalAds >= p.LowAds:
		level = SophisticationLow
	default:
		return SophisticationBasic
	}

	if counts.CreativeVariants <= 1 && !counts.ABTestEvidence {
		level = demote(level)
	}
	return level
}

func demote(level string) string {
	switch level {
	case SophisticationHigh:
		return SophisticationMedium
	case SophisticationMedium:
		return SophisticationLow
	default:
		return SophisticationBasic
	}
}

// Summary is the deterministic interpretation of the counts, rendered
// without any model involvement so fallback and live runs are comparable.
type Summary struct {
	Status           string   `json:"status"`
	Sophistication   string   `json:"sophistication"`
	TargetingBreadth string   `json:"targeting_breadth"`
	Opportunities    []string `json:"opportunities"`
	Narrative        string   `json:"narrative"`
}

// Summarize interprets the counts for the given mode. Fallback mode reports
// unknown status and a narrative that says why nothing more is known.
func Summarize(mode Mode, counts Counts, policy SophisticationPolicy) Summary {
	if mode == ModeFallback {
		return Summary{
			Status:           StatusUnknown,
			Sophistication:   SophisticationBasic,
			TargetingBreadth: "unknown",
			Opportunities: []string{
				"verify advertising activity directly in the Meta Ad Library",
			},
			Narrative: "Ad library data was unavailable for this run; advertising activity could not be assessed.",
		}
	}

	s := Summary{
		Sophistication:   policy.Level(counts),
		TargetingBreadth: breadth(counts),
	}

	switch {
	case counts.TotalAds == 0:
		s.Status = StatusNoAds
	case counts.ActiveAds > 0:
		s.Status = StatusActive
	default:
		s.Status = StatusInactive
	}

	s.Opportunities = opportunities(counts)
	s.Narrative = narrative(s, counts)
	return s
}

func breadth(counts Counts) string {
	switch {
	case len(counts.Platforms) >= 3:
		return "broad"
	case len(counts.Platforms) == 2:
		return "moderate"
	case len(counts.Platforms) == 1:
		return "narrow"
	default:
		return "none"
	}
}

func opportunities(counts Counts) []string {
	var out []string
	if counts.TotalAds == 0 {
		return []string{"no paid presence found, paid social is an open channel"}
	}
	if len(counts.Platforms) <= 1 {
		out = append(out, "expand beyond a single publisher platform")
	}
	if !counts.ABTestEvidence {
		out = append(out, "no creative A/B testing evidence, test ad variants")
	}
	if counts.ActiveAds == 0 {
		out = append(out, "all found ads are inactive, campaigns appear paused")
	}
	if len(out) == 0 {
		out = append(out, "mature paid presence, focus on creative refresh cadence")
	}
	return out
}

func narrative(s Summary, counts Counts) string {
	if counts.TotalAds == 0 {
		return "No ads were found in the ad library for this company."
	}

	platforms := make([]string, 0, len(counts.Platforms))
	for p := range counts.Platforms {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	return fmt.Sprintf("Found %d ads (%d active) across %s with %d creative variants; sophistication rated %s.",
		counts.TotalAds, counts.ActiveAds, strings.Join(platforms, ", "),
		counts.CreativeVariants, s.Sophistication)
}
