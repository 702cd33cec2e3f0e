package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/samwcounsell/APEM-River-Quality/internal/join"
	"github.com/samwcounsell/APEM-River-Quality/internal/loader"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

var wardsCmd = &cobra.Command{
	Use:   "wards",
	Short: "Run the spatial join only and print per-ward site counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		wards, err := loader.LoadWards(cfg.Wards.Path, loader.WardOptions{
			CodeField: cfg.Wards.CodeField,
			NameField: cfg.Wards.NameField,
			SRID:      cfg.CRS.Source,
		})
		if err != nil {
			return eris.Wrap(err, "wards")
		}

		sites, err := loader.LoadSites(cfg.Sites.Path)
		if err != nil {
			return eris.Wrap(err, "wards")
		}

		tr, err := proj.NewTransformer(cfg.CRS.Source, cfg.CRS.Target)
		if err != nil {
			return eris.Wrap(err, "wards")
		}
		tieBreak, err := join.ParseTieBreak(cfg.Join.TieBreak)
		if err != nil {
			return eris.Wrap(err, "wards")
		}

		joined, enriched := join.AssignWards(wards, sites, tr, tieBreak)

		var unassigned int
		for _, s := range enriched {
			if s.WardCode == nil {
				unassigned++
			}
		}

		fmt.Printf("%-12s %-30s %8s\n", "Code", "Name", "Sites")
		fmt.Println(strings.Repeat("-", 52))
		for _, w := range joined {
			fmt.Printf("%-12s %-30s %8d\n", w.Code, w.Name, w.Count)
		}
		fmt.Printf("\n%d sites total, %d outside all wards\n", len(enriched), unassigned)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(wardsCmd)
}
