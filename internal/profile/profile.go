// Package profile holds the evolving structured description of a research
// target and the merge rules for combining extraction fragments into it.
package profile

import (
	"strings"

	"github.com/FranksOps/dossier/internal/schema"
)

// Value is the tagged union of the shapes a field may hold. Exactly one of
// Text, List or Items is meaningful, selected by Kind.
type Value struct {
	Kind  schema.Kind         `json:"kind"`
	Text  string              `json:"text,omitempty"`
	List  []string            `json:"list,omitempty"`
	Items []map[string]string `json:"items,omitempty"`
}

// String wraps a plain string value.
func String(s string) Value {
	return Value{Kind: schema.KindString, Text: s}
}

// StringList wraps a list-of-strings value.
func StringList(list ...string) Value {
	return Value{Kind: schema.KindStringList, List: list}
}

// ObjectList wraps a list-of-objects value.
func ObjectList(items ...map[string]string) Value {
	return Value{Kind: schema.KindObjectList, Items: items}
}

// placeholders are string values that count as "not populated" for merging,
// gap analysis and scoring.
var placeholders = map[string]struct{}{
	"":              {},
	"unknown":       {},
	"n/a":           {},
	"none":          {},
	"not available": {},
}

// Empty reports whether the value carries no usable content. Placeholder
// strings count as empty.
func (v Value) Empty() bool {
	switch v.Kind {
	case schema.KindString:
		_, ph := placeholders[strings.ToLower(strings.TrimSpace(v.Text))]
		return ph
	case schema.KindStringList:
		for _, s := range v.List {
			if _, ph := placeholders[strings.ToLower(strings.TrimSpace(s))]; !ph {
				return false
			}
		}
		return true
	case schema.KindObjectList:
		return len(v.Items) == 0
	}
	return true
}

// Fragment is a partial profile produced by one extraction pass. Correction
// fragments may overwrite fields a previous round already populated.
type Fragment struct {
	ID         string
	Round      int
	Correction bool
	// Sections maps section name to field name to value. Only fields the
	// extraction actually populated appear here.
	Sections map[string]map[string]Value
	// Unpopulated lists "section.field" paths the extraction was asked for
	// but could not fill or whose values failed shape validation.
	Unpopulated []string
}

// Empty reports whether the fragment populates nothing at all.
func (f Fragment) Empty() bool {
	for _, fields := range f.Sections {
		for _, v := range fields {
			if !v.Empty() {
				return false
			}
		}
	}
	return true
}

// Set records a value on the fragment, allocating maps as needed.
func (f *Fragment) Set(section, field string, v Value) {
	if f.Sections == nil {
		f.Sections = make(map[string]map[string]Value)
	}
	if f.Sections[section] == nil {
		f.Sections[section] = make(map[string]Value)
	}
	f.Sections[section][field] = v
}

// Profile is the accumulated, schema-conforming description of a target.
// It is owned by the orchestrator; other components receive snapshots.
type Profile struct {
	Sections map[string]map[string]Value `json:"sections"`
}

// New returns an empty profile.
func New() *Profile {
	return &Profile{Sections: make(map[string]map[string]Value)}
}

// Get returns the value stored for section.field.
func (p *Profile) Get(section, field string) (Value, bool) {
	fields, ok := p.Sections[section]
	if !ok {
		return Value{}, false
	}
	v, ok := fields[field]
	return v, ok
}

// Clone returns a deep copy, used to hand immutable snapshots to components.
func (p *Profile) Clone() *Profile {
	out := New()
	for sec, fields := range p.Sections {
		out.Sections[sec] = make(map[string]Value, len(fields))
		for name, v := range fields {
			cv := Value{Kind: v.Kind, Text: v.Text}
			if v.List != nil {
				cv.List = append([]string(nil), v.List...)
			}
			for _, item := range v.Items {
				ci := make(map[string]string, len(item))
				for k, val := range item {
					ci[k] = val
				}
				cv.Items = append(cv.Items, ci)
			}
			out.Sections[sec][name] = cv
		}
	}
	return out
}

// Merge applies a fragment to the profile under the non-destructive overwrite
// rule: a field already populated with non-empty content is kept unless the
// fragment is a correction. Fields are visited in schema declaration order so
// merging is deterministic, and replaying the same fragment is a no-op.
func Merge(sch schema.Schema, p *Profile, frag Fragment) {
	for _, sec := range sch.Sections {
		incoming, ok := frag.Sections[sec.Name]
		if !ok {
			continue
		}
		for _, f := range sec.Fields {
			v, ok := incoming[f.Name]
			if !ok || v.Empty() {
				continue
			}
			existing, has := p.Get(sec.Name, f.Name)
			if has && !existing.Empty() && !frag.Correction {
				continue
			}
			if p.Sections[sec.Name] == nil {
				p.Sections[sec.Name] = make(map[string]Value)
			}
			p.Sections[sec.Name][f.Name] = v
		}
	}
}

// Coverage describes how much of a section is populated.
type Coverage struct {
	Populated         int
	Total             int
	RequiredPopulated int
	RequiredTotal     int
}

// Ratio returns populated fields over total fields, 0 for empty sections.
func (c Coverage) Ratio() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Populated) / float64(c.Total)
}

// RequiredRatio returns populated required fields over required fields.
// Sections with no required fields report 1 once any field is populated.
func (c Coverage) RequiredRatio() float64 {
	if c.RequiredTotal == 0 {
		if c.Populated > 0 {
			return 1
		}
		return 0
	}
	return float64(c.RequiredPopulated) / float64(c.RequiredTotal)
}

// SectionCoverage computes population counts for one schema section.
func (p *Profile) SectionCoverage(sec schema.Section) Coverage {
	var c Coverage
	for _, f := range sec.Fields {
		c.Total++
		if f.Required {
			c.RequiredTotal++
		}
		v, ok := p.Get(sec.Name, f.Name)
		if !ok || v.Empty() {
			continue
		}
		c.Populated++
		if f.Required {
			c.RequiredPopulated++
		}
	}
	return c
}

// Empty reports whether the profile holds no usable data at all.
func (p *Profile) Empty() bool {
	for _, fields := range p.Sections {
		for _, v := range fields {
			if !v.Empty() {
				return false
			}
		}
	}
	return true
}
