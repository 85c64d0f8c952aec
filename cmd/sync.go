package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebridge/leadsync-cli/internal/pipeline"
	"github.com/carebridge/leadsync-cli/pkg/geocode"
)

var (
	syncInput         string
	syncDryRun        bool
	syncSkipGeocoding bool
	syncLimit         int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync enriched dossiers into the lead store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input := syncInput
		if input == "" {
			input = cfg.Sync.Input
		}

		dossiers, err := pipeline.LoadDossiers(input)
		if err != nil {
			return err
		}
		if len(dossiers) == 0 {
			zap.L().Warn("no dossiers found", zap.String("input", input))
			return nil
		}
		zap.L().Info("dossiers loaded", zap.String("input", input), zap.Int("count", len(dossiers)))

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var gc geocode.Client
		if !syncSkipGeocoding {
			gc = initGeocoder()
		}

		summary, err := pipeline.Sync(ctx, st, gc, dossiers, pipeline.SyncOptions{
			DryRun:         syncDryRun,
			SkipGeocoding:  syncSkipGeocoding,
			Limit:          syncLimit,
			GeocodeWorkers: cfg.Geocode.Workers,
		})
		if err != nil {
			return err
		}

		if syncDryRun {
			zap.L().Info("dry run summary",
				zap.Int("loaded", summary.Loaded),
				zap.Int("candidates", summary.Candidates),
				zap.Int("with_coords", summary.WithCoords),
			)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncInput, "input", "", "dossier JSONL file (default from config)")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "project and geocode but write nothing")
	syncCmd.Flags().BoolVar(&syncSkipGeocoding, "skip-geocoding", false, "skip coordinate resolution")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "sync at most N dossiers (0 = all)")
	rootCmd.AddCommand(syncCmd)
}
