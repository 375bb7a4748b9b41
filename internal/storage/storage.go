// Package storage persists finalized research run records.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the immutable outcome of one research run: the finalized
// profile, the ad intelligence result, the quality score and run timings.
// Profile and AdIntel are stored as opaque JSON documents.
type Record struct {
	RunID         string             `json:"run_id"`
	TargetURL     string             `json:"target_url"`
	CompanyKey    string             `json:"company_key"`
	Status        string             `json:"status"` // completed, partial, failed
	Rounds        int                `json:"rounds"`
	QueriesIssued int                `json:"queries_issued"`
	Profile       json.RawMessage    `json:"profile"`
	AdIntel       json.RawMessage    `json:"ad_intel,omitempty"`
	Overall       float64            `json:"overall"`
	SectionScores map[string]float64 `json:"section_scores"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}

// Filter allows querying for specific Records.
type Filter struct {
	TargetURL string
	Status    string
	Since     *time.Time
	Limit     int
	Offset    int
}

// Backend defines the interface for storing and querying run records.
type Backend interface {
	Save(ctx context.Context, rec *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}
