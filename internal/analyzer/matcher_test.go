package analyzer

import (
	"testing"

	"github.com/FranksOps/dossier/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		Version: "test",
		Sections: []schema.Section{
			{
				Name:  "identity",
				Label: "company identity",
				Fields: []schema.Field{
					{Name: "mission", Label: "mission statement", Kind: schema.KindString},
				},
			},
			{
				Name:  "competitors",
				Label: "competitive landscape",
				Fields: []schema.Field{
					{Name: "competitors", Label: "key competitors", Kind: schema.KindObjectList},
				},
			},
		},
	}
}

func TestMatchSections(t *testing.T) {
	content := "Our mission is simple. Our competitors are slower and pricier! " +
		"The company was founded in 2003."

	matches := MatchSections(content, testSchema())
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2: %+v", len(matches), matches)
	}

	// Declaration order is preserved.
	if matches[0].Section != "identity" || matches[1].Section != "competitors" {
		t.Errorf("unexpected section order: %+v", matches)
	}

	if matches[0].Count < 2 {
		t.Errorf("identity count = %d, want at least 2 (mission + company)", matches[0].Count)
	}
}

func TestMatchSectionsNoHits(t *testing.T) {
	if got := MatchSections("completely unrelated text about weather patterns", testSchema()); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got := MatchSections("", testSchema()); got != nil {
		t.Errorf("expected nil for empty content, got %+v", got)
	}
}

func TestMatchSectionsCaseInsensitive(t *testing.T) {
	matches := MatchSections("MISSION critical infrastructure.", testSchema())
	if len(matches) != 1 || matches[0].Section != "identity" {
		t.Fatalf("expected identity match, got %+v", matches)
	}
}

func TestSectionTermsSkipShortWords(t *testing.T) {
	sec := schema.Section{
		Label: "key and the mission",
		Fields: []schema.Field{
			{Name: "mission", Label: "mission statement", Kind: schema.KindString},
		},
	}

	terms := sectionTerms(sec)
	for _, term := range terms {
		if len(term) < 4 {
			t.Errorf("term %q shorter than four characters", term)
		}
	}
	// Duplicates across section and field labels collapse.
	count := 0
	for _, term := range terms {
		if term == "mission" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("mission appears %d times, want 1", count)
	}
}
