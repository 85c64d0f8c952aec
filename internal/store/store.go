// Package store persists lead rows. Two drivers share the Store interface:
// Postgres (pgx pool, jsonb columns) for production, SQLite for local runs.
// All writes are idempotent upserts or per-row field patches keyed by a
// stable identifier, so concurrent and retried writes need no coordination.
package store

import (
	"context"
	"time"

	"github.com/carebridge/leadsync-cli/internal/model"
)

// LeadFilter narrows ListLeads.
type LeadFilter struct {
	CandidatesOnly bool
	Limit          int
}

// Sync run kinds.
const (
	RunKindSync   = "sync"
	RunKindPolish = "polish"
)

// SyncRun is the persisted summary of one sync or polish invocation.
type SyncRun struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Processed   int       `json:"processed"`
	Updated     int       `json:"updated"`
	Errored     int       `json:"errored"`
}

// Store defines the persistence interface for the lead table.
type Store interface {
	// ListLeads bulk-reads lead rows, oldest id first.
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRow, error)

	// UpsertLead inserts or fully replaces a row keyed by lead_id.
	UpsertLead(ctx context.Context, row *model.LeadRow) error

	// UpdateLeadFields patches individual columns of an existing row by
	// its surrogate id, as a single all-or-nothing statement.
	UpdateLeadFields(ctx context.Context, id int64, fields map[string]any) error

	// RecordSyncRun appends a run summary to the sync log.
	RecordSyncRun(ctx context.Context, run SyncRun) error

	// Migrate creates or refreshes the schema.
	Migrate(ctx context.Context) error

	Close() error
}
