package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/model"
	"github.com/carebridge/leadsync-cli/internal/reconcile"
	"github.com/carebridge/leadsync-cli/internal/store"
	"github.com/carebridge/leadsync-cli/pkg/geocode"
)

// SyncOptions configures one sync run.
type SyncOptions struct {
	DryRun         bool
	SkipGeocoding  bool
	Limit          int
	GeocodeWorkers int
}

// SyncSummary reports what a sync run did. A run always ends with these
// numbers, even when every row failed.
type SyncSummary struct {
	RunID      string
	Loaded     int
	Synced     int
	Errors     int
	Candidates int
	WithCoords int
	Geocode    GeocodeStats
}

// Sync projects dossiers into lead rows, geocodes missing coordinates, and
// upserts each row keyed by lead_id. Upserts are idempotent and per-row:
// one failed write is counted and logged, never fatal to the batch.
func Sync(ctx context.Context, st store.Store, gc geocode.Client, dossiers []model.Dossier, opts SyncOptions) (*SyncSummary, error) {
	log := zap.L()
	started := time.Now().UTC()

	if opts.Limit > 0 && len(dossiers) > opts.Limit {
		dossiers = dossiers[:opts.Limit]
	}

	rows := make([]*model.LeadRow, len(dossiers))
	for i := range dossiers {
		rows[i] = reconcile.ProjectRow(&dossiers[i])
	}

	summary := &SyncSummary{
		RunID:  uuid.NewString(),
		Loaded: len(rows),
	}

	if !opts.SkipGeocoding && gc != nil {
		summary.Geocode = GeocodeRows(ctx, gc, rows, opts.GeocodeWorkers)
	}

	for _, row := range rows {
		if row.ChineseRepCandidate {
			summary.Candidates++
		}
		if row.HasCoordinates() {
			summary.WithCoords++
		}
	}

	if opts.DryRun {
		log.Info("dry run: skipping writes", zap.Int("rows", len(rows)))
		return summary, nil
	}

	for _, row := range rows {
		if err := st.UpsertLead(ctx, row); err != nil {
			summary.Errors++
			log.Warn("upsert failed",
				zap.String("lead_id", row.LeadID),
				zap.String("name", row.Name),
				zap.Error(err),
			)
			continue
		}
		summary.Synced++
	}

	run := store.SyncRun{
		ID:          summary.RunID,
		Kind:        store.RunKindSync,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
		Processed:   summary.Loaded,
		Updated:     summary.Synced,
		Errored:     summary.Errors,
	}
	if err := st.RecordSyncRun(ctx, run); err != nil {
		// The sync itself succeeded; a missing log row is worth a warning only.
		log.Warn("record sync run failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	log.Info("sync complete",
		zap.String("run_id", summary.RunID),
		zap.Int("synced", summary.Synced),
		zap.Int("errors", summary.Errors),
		zap.Int("candidates", summary.Candidates),
		zap.Int("with_coords", summary.WithCoords),
	)
	return summary, nil
}
