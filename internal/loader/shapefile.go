// Package loader reads the four pipeline inputs: ward polygons and river
// linestrings from shapefiles, the site registry from CSV, and the biological
// index table from XLSX. Loading preserves the source attribute schema; the
// only transformations applied here are the optional site-id and date-range
// filters on the biological table.
package loader

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// fieldNames returns the shapefile's DBF field names, trimmed of the NUL
// padding go-shp leaves in place.
func fieldNames(reader *shp.Reader) []string {
	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}
	return names
}

// fieldIndex returns the index of a named field, or -1 if not found.
func fieldIndex(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// attributes reads every DBF column of the current record into a map, keeping
// the source schema intact.
func attributes(reader *shp.Reader, names []string) map[string]string {
	attrs := make(map[string]string, len(names))
	for i, name := range names {
		val := strings.TrimRight(reader.Attribute(i), "\x00")
		attrs[name] = strings.TrimSpace(val)
	}
	return attrs
}

// polygonToMultiPolygon converts a shapefile Polygon to a go-geom
// MultiPolygon in the given SRID. Returns nil for empty or malformed shapes.
func polygonToMultiPolygon(p *shp.Polygon, srid int) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(srid)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := partEnd(p.Parts, i, len(p.Points))

		ring := geom.NewLinearRingFlat(geom.XY, flatCoords(p.Points[start:end]))
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// polyLineToMultiLineString converts a shapefile PolyLine to a go-geom
// MultiLineString in the given SRID. Returns nil for empty or malformed shapes.
func polyLineToMultiLineString(pl *shp.PolyLine, srid int) *geom.MultiLineString {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	mls := geom.NewMultiLineString(geom.XY).SetSRID(srid)

	for i := int32(0); i < pl.NumParts; i++ {
		start := pl.Parts[i]
		end := partEnd(pl.Parts, i, len(pl.Points))

		ls := geom.NewLineStringFlat(geom.XY, flatCoords(pl.Points[start:end]))
		if err := mls.Push(ls); err != nil {
			continue
		}
	}

	if mls.NumLineStrings() == 0 {
		return nil
	}
	return mls
}

func partEnd(parts []int32, i int32, total int) int32 {
	if int(i)+1 < len(parts) {
		return parts[i+1]
	}
	return int32(total)
}

// flatCoords converts shapefile points to flat XY pairs for go-geom.
func flatCoords(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
