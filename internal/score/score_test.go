package score

import (
	"testing"

	"github.com/FranksOps/dossier/internal/profile"
	"github.com/FranksOps/dossier/internal/schema"
)

func scoringSchema() schema.Schema {
	return schema.Schema{
		Version: "test",
		Sections: []schema.Section{
			{
				Name:   "brand",
				Label:  "brand",
				Weight: 0.6,
				Fields: []schema.Field{
					{Name: "name", Label: "name", Kind: schema.KindString},
					{Name: "tagline", Label: "tagline", Kind: schema.KindString},
				},
			},
			{
				Name:   "ads",
				Label:  "ads",
				Weight: 0.4,
				Fields: []schema.Field{
					{Name: "status", Label: "status", Kind: schema.KindString},
				},
			},
		},
	}
}

func TestComputeEmptyProfile(t *testing.T) {
	s := Compute(scoringSchema(), profile.New())
	if s.Overall != 0 {
		t.Errorf("empty profile Overall = %f, want 0", s.Overall)
	}
}

func TestComputeWeightedCoverage(t *testing.T) {
	sch := scoringSchema()
	prof := profile.New()

	frag := profile.Fragment{}
	frag.Set("brand", "name", profile.String("Acme"))
	frag.Set("ads", "status", profile.String("active_advertiser"))
	profile.Merge(sch, prof, frag)

	s := Compute(sch, prof)

	// brand is half covered, ads fully: 0.5*0.6 + 1.0*0.4 = 0.7.
	if s.Overall < 0.699 || s.Overall > 0.701 {
		t.Errorf("Overall = %f, want 0.7", s.Overall)
	}
	if s.Sections["brand"] != 0.5 || s.Sections["ads"] != 1.0 {
		t.Errorf("section scores = %v", s.Sections)
	}
}

func TestComputeMonotone(t *testing.T) {
	sch := scoringSchema()
	prof := profile.New()

	before := Compute(sch, prof).Overall

	frag := profile.Fragment{}
	frag.Set("brand", "name", profile.String("Acme"))
	profile.Merge(sch, prof, frag)
	mid := Compute(sch, prof).Overall

	frag2 := profile.Fragment{}
	frag2.Set("brand", "tagline", profile.String("build better"))
	profile.Merge(sch, prof, frag2)
	after := Compute(sch, prof).Overall

	if !(before < mid && mid < after) {
		t.Errorf("score not monotone: %f, %f, %f", before, mid, after)
	}
}

func TestComputePlaceholdersDontCount(t *testing.T) {
	sch := scoringSchema()
	prof := profile.New()

	frag := profile.Fragment{}
	frag.Set("brand", "name", profile.String("unknown"))
	profile.Merge(sch, prof, frag)

	if s := Compute(sch, prof); s.Overall != 0 {
		t.Errorf("placeholder value raised the score to %f", s.Overall)
	}
}
