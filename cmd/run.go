package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/export"
	"github.com/samwcounsell/APEM-River-Quality/internal/pipeline"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
	"github.com/samwcounsell/APEM-River-Quality/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline and export artifacts",
	Long: `Loads ward boundaries, the site registry, the biological index table, and the
river network; joins sites to wards; merges bio records; filters rivers; and
writes GeoJSON feature collections plus a per-ward summary CSV.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("command", "run"))

		res, err := pipeline.Run(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Export.Dir
		}

		tr, err := proj.NewTransformer(cfg.CRS.Source, cfg.CRS.Target)
		if err != nil {
			return eris.Wrap(err, "run")
		}
		if err := export.All(outDir, res, tr); err != nil {
			return eris.Wrap(err, "run: export")
		}

		persist, _ := cmd.Flags().GetBool("store")
		if persist {
			st, err := store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return eris.Wrap(err, "run: open store")
			}
			defer func() { _ = st.Close() }()

			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "run: migrate store")
			}
			runID, err := st.SaveRun(ctx, res)
			if err != nil {
				return eris.Wrap(err, "run: save run")
			}
			log.Info("run persisted", zap.String("run_id", runID), zap.String("path", cfg.Store.Path))
		}

		fmt.Printf("Pipeline complete: %d wards, %d sites, %d bio records, %d+%d river segments → %s\n",
			len(res.Wards), len(res.Sites), len(res.Bio),
			len(res.NamedRiver), len(res.BBoxRivers), outDir)
		return nil
	},
}

func init() {
	runCmd.Flags().String("out", "", "output directory (default: from config)")
	runCmd.Flags().Bool("store", false, "persist the run to the SQLite results store")
	rootCmd.AddCommand(runCmd)
}
