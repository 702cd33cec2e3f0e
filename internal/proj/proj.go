// Package proj wraps EPSG-coded coordinate reference system transforms. The
// pipeline works with one projected CRS (eastings/northings, default British
// National Grid EPSG:27700) and one geographic CRS (lon/lat, default WGS84
// EPSG:4326); both codes come from configuration.
package proj

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/wroge/wgs84"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
)

// Transformer converts coordinates between a source projected CRS and a target
// geographic CRS. A Transformer is immutable and safe for concurrent use.
type Transformer struct {
	sourceEPSG int
	targetEPSG int
	forward    wgs84.Func
	inverse    wgs84.Func
}

// NewTransformer builds a transformer for the given EPSG code pair. Unknown
// codes fail with ErrProjection.
func NewTransformer(sourceEPSG, targetEPSG int) (*Transformer, error) {
	epsg := wgs84.EPSG()

	source := epsg.Code(sourceEPSG)
	if source == nil {
		return nil, errs.Mark(errs.ErrProjection, eris.Errorf("proj: unsupported EPSG code %d", sourceEPSG))
	}
	target := epsg.Code(targetEPSG)
	if target == nil {
		return nil, errs.Mark(errs.ErrProjection, eris.Errorf("proj: unsupported EPSG code %d", targetEPSG))
	}

	return &Transformer{
		sourceEPSG: sourceEPSG,
		targetEPSG: targetEPSG,
		forward:    wgs84.Transform(source, target),
		inverse:    wgs84.Transform(target, source),
	}, nil
}

// SourceEPSG returns the projected CRS code.
func (t *Transformer) SourceEPSG() int { return t.sourceEPSG }

// TargetEPSG returns the geographic CRS code.
func (t *Transformer) TargetEPSG() int { return t.targetEPSG }

// ToGeographic converts one easting/northing pair to lon/lat.
func (t *Transformer) ToGeographic(easting, northing float64) (lon, lat float64) {
	lon, lat, _ = t.forward(easting, northing, 0)
	return lon, lat
}

// ToProjected converts one lon/lat pair back to easting/northing.
func (t *Transformer) ToProjected(lon, lat float64) (easting, northing float64) {
	easting, northing, _ = t.inverse(lon, lat, 0)
	return easting, northing
}

// FlatToGeographic transforms an XY flat coordinate slice in place-order: the
// returned slice has the same length and every pair i corresponds to input
// pair i. The input slice is not modified.
func (t *Transformer) FlatToGeographic(flat []float64) []float64 {
	out := make([]float64, len(flat))
	for i := 0; i+1 < len(flat); i += 2 {
		out[i], out[i+1] = t.ToGeographic(flat[i], flat[i+1])
	}
	return out
}

// PointsToGeographic batch-transforms coordinate pairs, preserving order and
// count. Row i of the output always corresponds to row i of the input.
func (t *Transformer) PointsToGeographic(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		lon, lat := t.ToGeographic(c[0], c[1])
		out[i] = geom.Coord{lon, lat}
	}
	return out
}

// MultiPolygonToGeographic rebuilds a MultiPolygon with all vertices
// reprojected to the geographic CRS. Ring structure is preserved.
func (t *Transformer) MultiPolygonToGeographic(mp *geom.MultiPolygon) *geom.MultiPolygon {
	if mp == nil {
		return nil
	}
	out := geom.NewMultiPolygon(geom.XY).SetSRID(t.targetEPSG)
	for i := 0; i < mp.NumPolygons(); i++ {
		src := mp.Polygon(i)
		poly := geom.NewPolygon(geom.XY)
		for j := 0; j < src.NumLinearRings(); j++ {
			ring := geom.NewLinearRingFlat(geom.XY, t.FlatToGeographic(src.LinearRing(j).FlatCoords()))
			if err := poly.Push(ring); err != nil {
				continue
			}
		}
		if err := out.Push(poly); err != nil {
			continue
		}
	}
	return out
}

// MultiLineStringToGeographic rebuilds a MultiLineString with all vertices
// reprojected to the geographic CRS. Part structure is preserved.
func (t *Transformer) MultiLineStringToGeographic(mls *geom.MultiLineString) *geom.MultiLineString {
	if mls == nil {
		return nil
	}
	out := geom.NewMultiLineString(geom.XY).SetSRID(t.targetEPSG)
	for i := 0; i < mls.NumLineStrings(); i++ {
		ls := geom.NewLineStringFlat(geom.XY, t.FlatToGeographic(mls.LineString(i).FlatCoords()))
		if err := out.Push(ls); err != nil {
			continue
		}
	}
	return out
}
