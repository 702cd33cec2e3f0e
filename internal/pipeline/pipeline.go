// Package pipeline wires the stages together: load the four inputs, join
// sites to wards, merge biological records, and filter the river network.
// Each stage consumes immutable inputs and produces new tables; any failure
// aborts the run with stage context attached.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/samwcounsell/APEM-River-Quality/internal/config"
	"github.com/samwcounsell/APEM-River-Quality/internal/join"
	"github.com/samwcounsell/APEM-River-Quality/internal/loader"
	"github.com/samwcounsell/APEM-River-Quality/internal/merge"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
	"github.com/samwcounsell/APEM-River-Quality/internal/rivers"
)

// Result holds every table the pipeline produces. Ward geometry stays in the
// source projected CRS; bio points and filtered rivers carry geographic
// geometry for the charting collaborator.
type Result struct {
	Wards      []model.Ward
	Sites      []model.Site
	Bio        []model.BioRecord
	NamedRiver []model.RiverSegment
	BBoxRivers []model.RiverSegment

	Started  time.Time
	Finished time.Time
}

// Run executes the full pipeline once. The four inputs load in parallel
// (they share nothing); all downstream stages are sequential.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	started := time.Now().UTC()

	tr, err := proj.NewTransformer(cfg.CRS.Source, cfg.CRS.Target)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: projection setup")
	}

	tieBreak, err := join.ParseTieBreak(cfg.Join.TieBreak)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: join setup")
	}

	bioFrom, err := config.Date(cfg.Bio.From)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: bio filter setup")
	}
	bioTo, err := config.Date(cfg.Bio.To)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: bio filter setup")
	}
	riverBox, err := config.BoundingBox(cfg.Rivers.BBox)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: river filter setup")
	}

	var (
		wards    []model.Ward
		sites    []model.Site
		bio      []model.BioRecord
		segments []model.RiverSegment
	)

	// The loaders are local-file reads with no context plumbing, so a plain
	// group suffices.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		wards, err = loader.LoadWards(cfg.Wards.Path, loader.WardOptions{
			CodeField: cfg.Wards.CodeField,
			NameField: cfg.Wards.NameField,
			SRID:      cfg.CRS.Source,
		})
		return err
	})
	g.Go(func() error {
		var err error
		sites, err = loader.LoadSites(cfg.Sites.Path)
		return err
	})
	g.Go(func() error {
		var err error
		bio, err = loader.LoadBioRecords(cfg.Bio.Path, loader.BioOptions{
			SheetName: cfg.Bio.Sheet,
			SiteIDs:   cfg.Bio.SiteIDs,
			From:      bioFrom,
			To:        bioTo,
		})
		return err
	})
	g.Go(func() error {
		var err error
		segments, err = loader.LoadRivers(cfg.Rivers.Path, loader.RiverOptions{
			NameField: cfg.Rivers.NameField,
			SRID:      cfg.CRS.Source,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: loader stage")
	}

	if len(cfg.Sites.BBox) > 0 {
		box, err := config.BoundingBox(cfg.Sites.BBox)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: site filter setup")
		}
		sites = filterSites(sites, box)
	}

	wards, sites = join.AssignWards(wards, sites, tr, tieBreak)

	merged, err := merge.BioSites(bio, sites, tr)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: merger stage")
	}

	res := &Result{
		Wards:      wards,
		Sites:      sites,
		Bio:        merged,
		NamedRiver: rivers.Named(segments, cfg.Rivers.Name, tr, cfg.Rivers.MaxLat),
		BBoxRivers: rivers.InBBox(segments, riverBox, tr),
		Started:    started,
		Finished:   time.Now().UTC(),
	}

	zap.L().Info("pipeline complete",
		zap.Int("wards", len(res.Wards)),
		zap.Int("sites", len(res.Sites)),
		zap.Int("bio_records", len(res.Bio)),
		zap.Int("named_river_segments", len(res.NamedRiver)),
		zap.Int("bbox_river_segments", len(res.BBoxRivers)),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)),
	)
	return res, nil
}

// filterSites keeps sites inside the projected bounding region, preserving
// order.
func filterSites(sites []model.Site, box model.BBox) []model.Site {
	out := make([]model.Site, 0, len(sites))
	for _, s := range sites {
		if box.Contains(s.Easting, s.Northing) {
			out = append(out, s)
		}
	}
	if dropped := len(sites) - len(out); dropped > 0 {
		zap.L().Info("sites outside bounding region dropped", zap.Int("dropped", dropped))
	}
	return out
}
