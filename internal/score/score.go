// Package score rates how completely a profile covers its schema.
package score

import (
	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/schema"
)

// Score is the weighted coverage of a profile. Overall lies in [0, 1];
// Sections carries each section's own coverage ratio.
type Score struct {
	Overall  float64            `json:"overall"`
	Sections map[string]float64 `json:"sections"`
}

// Compute scores the profile against the schema: each section contributes
// its populated-field ratio scaled by its weight, normalized by the total
// weight. Pure and deterministic; populating another field never lowers
// the score.
func Compute(sch schema.Schema, prof *profile.Profile) Score {
	s := Score{Sections: make(map[string]float64, len(sch.Sections))}

	total := sch.TotalWeight()
	if total == 0 {
		return s
	}

	var weighted float64
	for _, sec := range sch.Sections {
		ratio := prof.SectionCoverage(sec).Ratio()
		s.Sections[sec.Name] = ratio
		weighted += ratio * sec.Weight
	}

	s.Overall = weighted / total
	return s
}
