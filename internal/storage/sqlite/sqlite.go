package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/dossier/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS run_records (
	run_id TEXT PRIMARY KEY,
	target_url TEXT NOT NULL,
	company_key TEXT NOT NULL,
	status TEXT NOT NULL,
	rounds INTEGER NOT NULL,
	queries_issued INTEGER NOT NULL,
	profile TEXT NOT NULL,
	ad_intel TEXT,
	overall REAL NOT NULL,
	section_scores TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating run_records table: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, rec *storage.Record) error {
	scoresJSON, err := json.Marshal(rec.SectionScores)
	if err != nil {
		return fmt.Errorf("marshaling section scores: %w", err)
	}

	query := `
	INSERT INTO run_records (
		run_id, target_url, company_key, status, rounds, queries_issued, profile, ad_intel, overall, section_scores, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		rec.RunID,
		rec.TargetURL,
		rec.CompanyKey,
		rec.Status,
		rec.Rounds,
		rec.QueriesIssued,
		string(rec.Profile),
		string(rec.AdIntel),
		rec.Overall,
		string(scoresJSON),
		rec.StartedAt,
		rec.FinishedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT run_id, target_url, company_key, status, rounds, queries_issued, profile, ad_intel, overall, section_scores, started_at, finished_at FROM run_records WHERE 1=1`
	args := []any{}

	if filter.TargetURL != "" {
		query += ` AND target_url = ?`
		args = append(args, filter.TargetURL)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		query += ` AND finished_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY finished_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var records []*storage.Record
	for rows.Next() {
		var r storage.Record
		var profileJSON, adIntelJSON, scoresJSON string

		err := rows.Scan(
			&r.RunID, &r.TargetURL, &r.CompanyKey, &r.Status, &r.Rounds, &r.QueriesIssued,
			&profileJSON, &adIntelJSON, &r.Overall, &scoresJSON, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}

		r.Profile = json.RawMessage(profileJSON)
		if adIntelJSON != "" {
			r.AdIntel = json.RawMessage(adIntelJSON)
		}
		if err := json.Unmarshal([]byte(scoresJSON), &r.SectionScores); err != nil {
			return nil, fmt.Errorf("unmarshaling section scores: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run records: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
