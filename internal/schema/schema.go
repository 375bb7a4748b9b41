// Package schema declares the fixed, versioned profile schema that every
// extraction pass must conform to. The schema is data, not behavior: sections
// and fields are declared once, in order, and the extractor, planner and
// scorer all iterate them in that order so runs stay deterministic.
package schema

// Kind enumerates the value shapes a profile field may take.
type Kind int

const (
	KindString Kind = iota
	KindStringList
	KindObjectList
)

// Field describes a single extractable field within a section.
type Field struct {
	Name  string
	Label string // human-readable label, used for query synthesis and prompts
	Kind  Kind
	// Enum restricts KindString values to a fixed set when non-empty.
	Enum []string
	// ItemKeys lists the allowed object keys for KindObjectList fields.
	ItemKeys []string
	Required bool
}

// Section groups related fields and carries the weight used by the scorer.
type Section struct {
	Name     string
	Label    string
	Weight   float64
	Required bool
	Fields   []Field
}

// Schema is an ordered set of sections identified by a version string.
type Schema struct {
	Version  string
	Sections []Section
}

// Section returns the named section, if declared.
func (s Schema) Section(name string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// Field returns the named field within the named section, if declared.
func (s Schema) Field(section, field string) (Field, bool) {
	sec, ok := s.Section(section)
	if !ok {
		return Field{}, false
	}
	for _, f := range sec.Fields {
		if f.Name == field {
			return f, true
		}
	}
	return Field{}, false
}

// RequiredSections returns the sections that must be populated for a run to
// count as complete, in declaration order.
func (s Schema) RequiredSections() []Section {
	var out []Section
	for _, sec := range s.Sections {
		if sec.Required {
			out = append(out, sec)
		}
	}
	return out
}

// TotalWeight sums the section weights. The scorer normalizes by this value,
// so weights do not need to add up to 1.
func (s Schema) TotalWeight() float64 {
	var total float64
	for _, sec := range s.Sections {
		total += sec.Weight
	}
	return total
}

// AllowsValue reports whether v satisfies the field's enum restriction.
// Fields without an enum accept any string.
func (f Field) AllowsValue(v string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, e := range f.Enum {
		if e == v {
			return true
		}
	}
	return false
}

// AllowsKey reports whether k is a declared object key for a KindObjectList
// field. Fields without declared keys accept any key.
func (f Field) AllowsKey(k string) bool {
	if len(f.ItemKeys) == 0 {
		return true
	}
	for _, ik := range f.ItemKeys {
		if ik == k {
			return true
		}
	}
	return false
}

// Default returns the company marketing profile schema. Section order is
// significant: fragments merge and score in this order.
func Default() Schema {
	return Schema{
		Version: "v1",
		Sections: []Section{
			{
				Name:     "identity",
				Label:    "company identity and positioning",
				Weight:   0.20,
				Required: true,
				Fields: []Field{
					{Name: "company_name", Label: "company name", Kind: KindString, Required: true},
					{Name: "mission_vision", Label: "mission and vision", Kind: KindString},
					{Name: "unique_selling_proposition", Label: "unique selling proposition", Kind: KindString, Required: true},
					{Name: "positioning_statement", Label: "market positioning", Kind: KindString},
					{Name: "brand_messages", Label: "key brand messages", Kind: KindStringList},
				},
			},
			{
				Name:     "audience",
				Label:    "target audience personas",
				Weight:   0.15,
				Required: true,
				Fields: []Field{
					{
						Name: "personas", Label: "audience personas", Kind: KindObjectList, Required: true,
						ItemKeys: []string{"persona_name", "demographics", "pain_points", "motivations"},
					},
				},
			},
			{
				Name:     "presence",
				Label:    "online marketing presence",
				Weight:   0.15,
				Required: true,
				Fields: []Field{
					{
						Name: "social_channels", Label: "social media channels", Kind: KindObjectList, Required: true,
						ItemKeys: []string{"platform", "follower_count", "activity_level", "content_strategy"},
					},
					{Name: "digital_advertising", Label: "digital advertising evidence", Kind: KindStringList},
					{Name: "content_marketing", Label: "content marketing", Kind: KindString},
					{Name: "email_marketing", Label: "email marketing", Kind: KindString},
				},
			},
			{
				Name:     "channels",
				Label:    "marketing channels",
				Weight:   0.10,
				Required: true,
				Fields: []Field{
					{
						Name: "channels", Label: "marketing channels", Kind: KindObjectList, Required: true,
						ItemKeys: []string{"channel_name", "campaign_types", "effectiveness"},
					},
				},
			},
			{
				Name:   "competitors",
				Label:  "competitive landscape",
				Weight: 0.10,
				Fields: []Field{
					{
						Name: "competitors", Label: "key competitors", Kind: KindObjectList,
						ItemKeys: []string{"competitor_name", "strengths", "weaknesses", "positioning"},
					},
					{Name: "market_position", Label: "relative market position", Kind: KindString},
				},
			},
			{
				Name:     "ads",
				Label:    "paid advertising activity",
				Weight:   0.15,
				Required: true,
				Fields: []Field{
					{
						Name: "advertising_status", Label: "advertising status", Kind: KindString, Required: true,
						Enum: []string{"active_advertiser", "inactive_advertiser", "no_ads_found", "unknown"},
					},
					{Name: "campaign_summary", Label: "active campaigns summary", Kind: KindString},
					{Name: "targeting_summary", Label: "audience targeting insights", Kind: KindString},
					{Name: "optimization_opportunities", Label: "advertising optimization opportunities", Kind: KindStringList},
				},
			},
			{
				Name:   "seo",
				Label:  "search visibility",
				Weight: 0.075,
				Fields: []Field{
					{Name: "content_strategy", Label: "SEO content strategy", Kind: KindString},
					{Name: "technical_signals", Label: "technical SEO signals", Kind: KindStringList},
				},
			},
			{
				Name:   "ux",
				Label:  "website user experience",
				Weight: 0.075,
				Fields: []Field{
					{Name: "conversion_elements", Label: "conversion and trust elements", Kind: KindStringList},
					{Name: "overall_rating", Label: "overall UX rating", Kind: KindString},
				},
			},
		},
	}
}
