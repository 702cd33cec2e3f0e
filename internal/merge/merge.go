// Package merge joins biological records to enriched registry sites by site
// id. The join is a left-outer join: every record survives, records with no
// matching site keep nil coordinate and ward fields, and sites with no record
// contribute nothing.
package merge

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

// BioSites left-joins records to sites on site id and builds a geographic
// point geometry per matched record in one batch transform. Output row i
// always corresponds to input record i. Duplicate site ids in the registry
// make the join ambiguous and fail with ErrJoin.
func BioSites(records []model.BioRecord, sites []model.Site, tr *proj.Transformer) ([]model.BioRecord, error) {
	byID := make(map[string]model.Site, len(sites))
	for _, s := range sites {
		if _, dup := byID[s.ID]; dup {
			return nil, errs.Mark(errs.ErrJoin, eris.Errorf("merge: duplicate site id %q in registry", s.ID))
		}
		byID[s.ID] = s
	}

	out := make([]model.BioRecord, len(records))

	// First pass: attach coordinates and ward codes, collecting the projected
	// coordinates of matched rows for the batch transform.
	matched := make([]int, 0, len(records))
	coords := make([]geom.Coord, 0, len(records))
	var unmatched int

	for i, rec := range records {
		if s, ok := byID[rec.SiteID]; ok {
			e, n := s.Easting, s.Northing
			rec.Easting = &e
			rec.Northing = &n
			rec.WardCode = s.WardCode
			matched = append(matched, i)
			coords = append(coords, geom.Coord{e, n})
		} else {
			unmatched++
		}
		out[i] = rec
	}

	// Second pass: one batch reprojection, then assign geometries back by the
	// recorded row indices so per-row correspondence holds.
	geoCoords := tr.PointsToGeographic(coords)
	for k, i := range matched {
		pt := geom.NewPointFlat(geom.XY, []float64{geoCoords[k][0], geoCoords[k][1]}).SetSRID(tr.TargetEPSG())
		out[i].Geometry = pt
	}

	if unmatched > 0 {
		zap.L().Warn("bio records with no registry site",
			zap.Int("records", unmatched),
		)
	}

	return out, nil
}
