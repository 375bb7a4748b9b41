package research

import (
	"encoding/json"
	"fmt"

	"github.com/FranksOps/dossier/internal/storage"
)

// Record converts a finalized run into its immutable storage representation.
func (rs *RunState) Record() (*storage.Record, error) {
	prof, err := json.Marshal(rs.Profile)
	if err != nil {
		return nil, fmt.Errorf("marshaling profile: %w", err)
	}

	var adIntel json.RawMessage
	if rs.AdIntel != nil {
		adIntel, err = json.Marshal(rs.AdIntel)
		if err != nil {
			return nil, fmt.Errorf("marshaling ad intelligence: %w", err)
		}
	}

	return &storage.Record{
		RunID:         rs.ID,
		TargetURL:     rs.Target.URL,
		CompanyKey:    rs.Target.CompanyKey,
		Status:        string(rs.Status),
		Rounds:        len(rs.Rounds),
		QueriesIssued: rs.QueriesIssued(),
		Profile:       prof,
		AdIntel:       adIntel,
		Overall:       rs.Score.Overall,
		SectionScores: rs.Score.Sections,
		StartedAt:     rs.StartedAt,
		FinishedAt:    rs.FinishedAt,
	}, nil
}
