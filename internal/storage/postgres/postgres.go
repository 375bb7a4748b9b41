package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/dossier/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS run_records (
	run_id TEXT PRIMARY KEY,
	target_url TEXT NOT NULL,
	company_key TEXT NOT NULL,
	status TEXT NOT NULL,
	rounds INTEGER NOT NULL,
	queries_issued INTEGER NOT NULL,
	profile JSONB NOT NULL,
	ad_intel JSONB,
	overall DOUBLE PRECISION NOT NULL,
	section_scores JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating run_records table: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, rec *storage.Record) error {
	scoresJSON, err := json.Marshal(rec.SectionScores)
	if err != nil {
		return fmt.Errorf("marshaling section scores: %w", err)
	}

	var adIntel []byte
	if len(rec.AdIntel) > 0 {
		adIntel = rec.AdIntel
	}

	query := `
	INSERT INTO run_records (
		run_id, target_url, company_key, status, rounds, queries_issued, profile, ad_intel, overall, section_scores, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = b.pool.Exec(ctx, query,
		rec.RunID,
		rec.TargetURL,
		rec.CompanyKey,
		rec.Status,
		rec.Rounds,
		rec.QueriesIssued,
		[]byte(rec.Profile),
		adIntel,
		rec.Overall,
		scoresJSON,
		rec.StartedAt,
		rec.FinishedAt,
	)

	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT run_id, target_url, company_key, status, rounds, queries_issued, profile, ad_intel, overall, section_scores, started_at, finished_at FROM run_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.TargetURL != "" {
		query += fmt.Sprintf(` AND target_url = $%d`, paramCount)
		args = append(args, filter.TargetURL)
		paramCount++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, filter.Status)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND finished_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY finished_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var records []*storage.Record
	for rows.Next() {
		var r storage.Record
		var profileJSON, adIntelJSON, scoresJSON []byte

		err := rows.Scan(
			&r.RunID, &r.TargetURL, &r.CompanyKey, &r.Status, &r.Rounds, &r.QueriesIssued,
			&profileJSON, &adIntelJSON, &r.Overall, &scoresJSON, &r.StartedAt, &r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}

		r.Profile = json.RawMessage(profileJSON)
		if len(adIntelJSON) > 0 {
			r.AdIntel = json.RawMessage(adIntelJSON)
		}
		if err := json.Unmarshal(scoresJSON, &r.SectionScores); err != nil {
			return nil, fmt.Errorf("unmarshaling section scores: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run records: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
