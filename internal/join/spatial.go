// Package join assigns monitoring sites to the wards that contain them and
// tallies per-ward site counts. The join is a pure function of its inputs:
// callers get fresh slices back and the originals are never mutated.
package join

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

// TieBreak selects the ward when overlapping polygons contain the same site.
type TieBreak string

const (
	// TieBreakLast takes the last containing ward in iteration order. This is
	// the historical behavior of scanning the containment matrix and keeping
	// the final match; it stays the default until the data owners rule on the
	// intended semantics.
	TieBreakLast TieBreak = "last"

	// TieBreakFirst takes the first containing ward in iteration order.
	TieBreakFirst TieBreak = "first"

	// TieBreakNone leaves ambiguous sites unassigned, excluding them from all
	// ward counts.
	TieBreakNone TieBreak = "none"
)

// ParseTieBreak validates a configured tie-break name.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case TieBreakLast, TieBreakFirst, TieBreakNone:
		return TieBreak(s), nil
	case "":
		return TieBreakLast, nil
	default:
		return "", eris.Errorf("join: unknown tie-break strategy %q", s)
	}
}

// AssignWards reprojects ward polygons and site points into the transformer's
// geographic CRS, assigns each site the ward containing it (per the tie-break
// strategy when several do), and attaches per-ward site counts. Sites outside
// every ward keep a nil ward code and count toward no ward. Input order is
// preserved in both outputs.
func AssignWards(wards []model.Ward, sites []model.Site, tr *proj.Transformer, tb TieBreak) ([]model.Ward, []model.Site) {
	// Reproject once per ward; containment is tested in lon/lat.
	geoPolys := make([]*geom.MultiPolygon, len(wards))
	for i := range wards {
		geoPolys[i] = tr.MultiPolygonToGeographic(wards[i].Geometry)
	}

	outSites := make([]model.Site, len(sites))
	counts := make(map[string]int, len(wards))
	var ambiguous int

	for i, s := range sites {
		s.Lon, s.Lat = tr.ToGeographic(s.Easting, s.Northing)
		s.WardCode = nil

		var matches []int
		for w, mp := range geoPolys {
			if multiPolygonContains(mp, s.Lon, s.Lat) {
				matches = append(matches, w)
			}
		}

		if len(matches) > 1 {
			ambiguous++
		}
		if w, ok := pick(matches, tb); ok {
			code := wards[w].Code
			s.WardCode = &code
			counts[code]++
		}

		outSites[i] = s
	}

	if ambiguous > 0 {
		zap.L().Warn("sites contained by multiple wards",
			zap.Int("sites", ambiguous),
			zap.String("tie_break", string(tb)),
		)
	}

	outWards := make([]model.Ward, len(wards))
	for i, w := range wards {
		w.Count = counts[w.Code]
		outWards[i] = w
	}

	return outWards, outSites
}

// pick applies the tie-break strategy to the matched ward indices.
func pick(matches []int, tb TieBreak) (int, bool) {
	switch {
	case len(matches) == 0:
		return 0, false
	case len(matches) == 1:
		return matches[0], true
	case tb == TieBreakFirst:
		return matches[0], true
	case tb == TieBreakNone:
		return 0, false
	default: // TieBreakLast
		return matches[len(matches)-1], true
	}
}

// multiPolygonContains tests point-in-polygon containment: inside the outer
// ring of any member polygon and outside all of that polygon's holes.
func multiPolygonContains(mp *geom.MultiPolygon, lon, lat float64) bool {
	if mp == nil {
		return false
	}
	p := geom.Coord{lon, lat}
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(geom.XY, p, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for j := 1; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(geom.XY, p, poly.LinearRing(j).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
