// Package analyzer scores retrieved page text against profile sections, so
// the extractor can be told which sections a content item likely informs.
package analyzer

import (
	"strings"

	"github.com/FranksOps/dossier/internal/schema"
)

// SectionMatch reports how strongly a piece of content relates to one
// profile section.
type SectionMatch struct {
	Section string `json:"section"`
	Count   int    `json:"count"`
}

// MatchSections scans content for each section's label terms
// (case-insensitive) and returns the sections with at least one hit, in
// schema declaration order.
func MatchSections(content string, sch schema.Schema) []SectionMatch {
	if len(content) == 0 {
		return nil
	}

	lowerContent := strings.ToLower(content)

	var results []SectionMatch
	for _, sec := range sch.Sections {
		count := 0
		for _, term := range sectionTerms(sec) {
			count += strings.Count(lowerContent, term)
		}
		if count == 0 {
			continue
		}
		results = append(results, SectionMatch{
			Section: sec.Name,
			Count:   count,
		})
	}
	return results
}

// sectionTerms derives the lowercase search terms for a section from its
// label and its field labels. Words shorter than four characters are skipped.
func sectionTerms(sec schema.Section) []string {
	seen := make(map[string]struct{})
	var terms []string

	add := func(label string) {
		for _, w := range strings.Fields(strings.ToLower(label)) {
			if len(w) < 4 {
				// Short words like "and" or "key" match everything.
				continue
			}
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			terms = append(terms, w)
		}
	}

	add(sec.Label)
	for _, f := range sec.Fields {
		add(f.Label)
	}
	return terms
}
