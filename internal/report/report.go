// Package report renders a finished research run for human consumption.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/dossier/internal/research"
)

// SectionLine is one schema section's coverage in the summary.
type SectionLine struct {
	Name  string
	Score float64
}

// RoundLine summarizes one planning/retrieval/extraction cycle.
type RoundLine struct {
	Number    int
	Queries   int
	Retrieved int
	Failures  int
	Degraded  bool
}

// Summary contains the aggregated outcome of a research run.
type Summary struct {
	RunID         string
	Target        string
	CompanyKey    string
	Status        string
	Overall       float64
	Sections      []SectionLine
	Rounds        []RoundLine
	QueriesIssued int
	AdMode        string
	AdStatus      string
	AdNarrative   string
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
}

// GenerateSummary aggregates a finalized run state into a summary.
func GenerateSummary(rs *research.RunState) Summary {
	s := Summary{
		RunID:         rs.ID,
		Target:        rs.Target.URL,
		CompanyKey:    rs.Target.CompanyKey,
		Status:        string(rs.Status),
		Overall:       rs.Score.Overall,
		QueriesIssued: rs.QueriesIssued(),
		StartedAt:     rs.StartedAt,
		FinishedAt:    rs.FinishedAt,
		Duration:      rs.FinishedAt.Sub(rs.StartedAt),
	}

	for name, score := range rs.Score.Sections {
		s.Sections = append(s.Sections, SectionLine{Name: name, Score: score})
	}
	sort.Slice(s.Sections, func(i, j int) bool { return s.Sections[i].Name < s.Sections[j].Name })

	for _, r := range rs.Rounds {
		s.Rounds = append(s.Rounds, RoundLine{
			Number:    r.Number,
			Queries:   len(r.Queries),
			Retrieved: r.Retrieved,
			Failures:  r.Failures,
			Degraded:  r.Degraded,
		})
	}

	if rs.AdIntel != nil {
		s.AdMode = string(rs.AdIntel.Mode)
		s.AdStatus = rs.AdIntel.Summary.Status
		s.AdNarrative = rs.AdIntel.Summary.Narrative
	}

	return s
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Dossier Research Report
-----------------------
Target:    {{.Target}} ({{.CompanyKey}})
Status:    {{.Status}}
Duration:  {{.Duration}}
Queries:   {{.QueriesIssued}}
Score:     {{printf "%.2f" .Overall}}

Section Coverage:
{{- range .Sections}}
  {{.Name}}: {{printf "%.2f" .Score}}
{{- else}}
  None
{{- end}}

Rounds:
{{- range .Rounds}}
  {{.Number}}: {{.Queries}} queries, {{.Retrieved}} items, {{.Failures}} failures{{if .Degraded}} [degraded]{{end}}
{{- else}}
  None
{{- end}}

Advertising: {{if .AdStatus}}{{.AdStatus}} ({{.AdMode}}){{else}}not enriched{{end}}
{{- if .AdNarrative}}
{{.AdNarrative}}
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parsing report template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	return nil
}
