// Package rivers filters river network segments two independent ways: by
// watercourse name with a latitude disambiguation rule, and by strict
// containment in a projected-CRS bounding box. Each filter is a named
// predicate over a single segment so the rules are testable in isolation.
package rivers

import (
	"strings"

	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

// Predicate decides whether one river segment passes a filter.
type Predicate func(model.RiverSegment) bool

// NameContains matches segments whose name contains the substring,
// case-insensitively, anywhere in the field.
func NameContains(name string) Predicate {
	needle := strings.ToLower(name)
	return func(seg model.RiverSegment) bool {
		return strings.Contains(strings.ToLower(seg.Name), needle)
	}
}

// MaxLatitudeAtMost drops a segment when the maximum latitude among its
// reprojected vertices exceeds the threshold. Several UK rivers share a name;
// the latitude cut keeps only the southern instance. Evaluated independently
// per segment, never across the collection.
func MaxLatitudeAtMost(tr *proj.Transformer, threshold float64) Predicate {
	return func(seg model.RiverSegment) bool {
		if seg.Geometry == nil {
			return false
		}
		flat := seg.Geometry.FlatCoords()
		for i := 0; i+1 < len(flat); i += 2 {
			_, lat := tr.ToGeographic(flat[i], flat[i+1])
			if lat > threshold {
				return false
			}
		}
		return true
	}
}

// WithinBBox passes a segment only when every vertex lies inside the box in
// the source projected CRS. Partial overlap is excluded; this is strict
// containment, not intersection.
func WithinBBox(box model.BBox) Predicate {
	return func(seg model.RiverSegment) bool {
		if seg.Geometry == nil {
			return false
		}
		flat := seg.Geometry.FlatCoords()
		if len(flat) == 0 {
			return false
		}
		for i := 0; i+1 < len(flat); i += 2 {
			if !box.Contains(flat[i], flat[i+1]) {
				return false
			}
		}
		return true
	}
}

// Filter returns the segments passing every predicate, in input order.
func Filter(segments []model.RiverSegment, preds ...Predicate) []model.RiverSegment {
	var out []model.RiverSegment
	for _, seg := range segments {
		pass := true
		for _, pred := range preds {
			if !pred(seg) {
				pass = false
				break
			}
		}
		if pass {
			out = append(out, seg)
		}
	}
	return out
}

// Reproject returns copies of the segments with geometry in the geographic
// CRS. Input order and count are preserved.
func Reproject(segments []model.RiverSegment, tr *proj.Transformer) []model.RiverSegment {
	out := make([]model.RiverSegment, len(segments))
	for i, seg := range segments {
		seg.Geometry = tr.MultiLineStringToGeographic(seg.Geometry)
		out[i] = seg
	}
	return out
}

// Named selects segments of the named river, applies the max-latitude
// disambiguation, and reprojects the survivors to the geographic CRS.
func Named(segments []model.RiverSegment, name string, tr *proj.Transformer, maxLat float64) []model.RiverSegment {
	matched := Filter(segments, NameContains(name), MaxLatitudeAtMost(tr, maxLat))
	zap.L().Info("named river filter",
		zap.String("name", name),
		zap.Float64("max_lat", maxLat),
		zap.Int("segments", len(matched)),
	)
	return Reproject(matched, tr)
}

// InBBox selects segments strictly inside the projected bounding box and
// reprojects them to the geographic CRS. Evaluated on the original projected
// coordinates, before any reprojection.
func InBBox(segments []model.RiverSegment, box model.BBox, tr *proj.Transformer) []model.RiverSegment {
	matched := Filter(segments, WithinBBox(box))
	zap.L().Info("bounding-box river filter",
		zap.Float64("min_easting", box.MinEasting),
		zap.Float64("max_easting", box.MaxEasting),
		zap.Float64("min_northing", box.MinNorthing),
		zap.Float64("max_northing", box.MaxNorthing),
		zap.Int("segments", len(matched)),
	)
	return Reproject(matched, tr)
}
