package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/polish"
	"github.com/carebridge/leadsync-cli/internal/store"
	"github.com/carebridge/leadsync-cli/pkg/anthropic"
)

var (
	polishDryRun         bool
	polishLimit          int
	polishCandidatesOnly bool
)

// maxDiffPreview caps the per-update lines printed in a dry run.
const maxDiffPreview = 20

var polishCmd = &cobra.Command{
	Use:   "polish",
	Short: "Validate and correct contact names via Claude",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		started := time.Now().UTC()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key is required (LEADSYNC_ANTHROPIC_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rows, err := st.ListLeads(ctx, store.LeadFilter{
			CandidatesOnly: polishCandidatesOnly,
			Limit:          polishLimit,
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			zap.L().Info("no rows to polish")
			return nil
		}

		p := polish.New(anthropic.NewClient(cfg.Anthropic.Key), polish.Config{
			Model:          cfg.Anthropic.Model,
			MaxTokens:      int64(cfg.Anthropic.MaxTokens),
			Workers:        cfg.Polish.Workers,
			RequestTimeout: time.Duration(cfg.Polish.RequestTimeoutSecs) * time.Second,
		})

		results := p.Run(ctx, rows)
		updates := polish.MergeUpdates(rows, results)

		var errored int
		for _, res := range results {
			if res.Err != nil {
				errored++
			}
		}

		zap.L().Info("polish decided",
			zap.Int("rows", len(rows)),
			zap.Int("updates", len(updates)),
			zap.Int("errors", errored),
		)

		if polishDryRun {
			for i, u := range updates {
				if i >= maxDiffPreview {
					fmt.Printf("... and %d more\n", len(updates)-maxDiffPreview)
					break
				}
				fmt.Printf("%s: %q -> %v\n", u.LeadName, u.Original, u.Fields)
			}
			return nil
		}

		var applied int
		for _, u := range updates {
			if err := st.UpdateLeadFields(ctx, u.ID, u.Fields); err != nil {
				errored++
				zap.L().Warn("update failed",
					zap.Int64("id", u.ID),
					zap.String("lead", u.LeadName),
					zap.Error(err),
				)
				continue
			}
			applied++
		}

		run := store.SyncRun{
			ID:          uuid.NewString(),
			Kind:        store.RunKindPolish,
			StartedAt:   started,
			CompletedAt: time.Now().UTC(),
			Processed:   len(rows),
			Updated:     applied,
			Errored:     errored,
		}
		if err := st.RecordSyncRun(ctx, run); err != nil {
			zap.L().Warn("record polish run failed", zap.String("run_id", run.ID), zap.Error(err))
		}

		zap.L().Info("polish complete",
			zap.String("run_id", run.ID),
			zap.Int("applied", applied),
			zap.Int("errors", errored),
		)
		return nil
	},
}

func init() {
	polishCmd.Flags().BoolVar(&polishDryRun, "dry-run", false, "decide updates but write nothing")
	polishCmd.Flags().IntVar(&polishLimit, "limit", 0, "polish at most N rows (0 = all)")
	polishCmd.Flags().BoolVar(&polishCandidatesOnly, "candidates-only", false, "polish only Chinese-rep candidates")
	rootCmd.AddCommand(polishCmd)
}
