package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/samwcounsell/APEM-River-Quality/internal/config"
	"github.com/samwcounsell/APEM-River-Quality/internal/export"
	"github.com/samwcounsell/APEM-River-Quality/internal/loader"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
	"github.com/samwcounsell/APEM-River-Quality/internal/rivers"
)

var riversCmd = &cobra.Command{
	Use:   "rivers",
	Short: "Filter the river network and export GeoJSON",
	Long: `Applies both river filters independently: segments of the named river below
the disambiguation latitude, and segments strictly inside the projected
bounding box. Writes one GeoJSON file per filter.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		segments, err := loader.LoadRivers(cfg.Rivers.Path, loader.RiverOptions{
			NameField: cfg.Rivers.NameField,
			SRID:      cfg.CRS.Source,
		})
		if err != nil {
			return eris.Wrap(err, "rivers")
		}

		tr, err := proj.NewTransformer(cfg.CRS.Source, cfg.CRS.Target)
		if err != nil {
			return eris.Wrap(err, "rivers")
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			name = cfg.Rivers.Name
		}
		maxLat, _ := cmd.Flags().GetFloat64("max-lat")
		if maxLat == 0 {
			maxLat = cfg.Rivers.MaxLat
		}
		box, err := config.BoundingBox(cfg.Rivers.BBox)
		if err != nil {
			return eris.Wrap(err, "rivers")
		}

		named := rivers.Named(segments, name, tr, maxLat)
		inBox := rivers.InBBox(segments, box, tr)

		outDir, _ := cmd.Flags().GetString("out")
		if outDir == "" {
			outDir = cfg.Export.Dir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "rivers: create dir %s", outDir)
		}

		if err := export.WriteRivers(filepath.Join(outDir, "river_named.geojson"), named); err != nil {
			return eris.Wrap(err, "rivers")
		}
		if err := export.WriteRivers(filepath.Join(outDir, "river_bbox.geojson"), inBox); err != nil {
			return eris.Wrap(err, "rivers")
		}

		fmt.Printf("River filters: %d segments named %q (max lat %.1f), %d in bounding box → %s\n",
			len(named), name, maxLat, len(inBox), outDir)
		return nil
	},
}

func init() {
	riversCmd.Flags().String("name", "", "river name substring (default: from config)")
	riversCmd.Flags().Float64("max-lat", 0, "disambiguation latitude ceiling (default: from config)")
	riversCmd.Flags().String("out", "", "output directory (default: from config)")
	rootCmd.AddCommand(riversCmd)
}
