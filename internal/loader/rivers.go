package loader

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// RiverOptions configures river network loading.
type RiverOptions struct {
	NameField string // required watercourse-name column, e.g. "name1"
	SRID      int    // EPSG code of the shapefile's projected CRS
}

// LoadRivers reads river linestrings from a shapefile. Records without a
// usable linestring are skipped; a missing name column fails the whole load
// with ErrDataLoad. Unnamed segments are kept (empty Name) so the bounding-box
// filter still sees them.
func LoadRivers(path string, opts RiverOptions) ([]model.RiverSegment, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "rivers: open shapefile %s", path))
	}
	defer func() { _ = reader.Close() }()

	names := fieldNames(reader)
	nameIdx := fieldIndex(names, opts.NameField)
	if nameIdx < 0 {
		return nil, errs.Mark(errs.ErrDataLoad,
			eris.Errorf("rivers: required field %q not found in %s", opts.NameField, path))
	}

	var segments []model.RiverSegment
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		pl, ok := shape.(*shp.PolyLine)
		if !ok {
			skipped++
			continue
		}
		mls := polyLineToMultiLineString(pl, opts.SRID)
		if mls == nil {
			skipped++
			continue
		}

		attrs := attributes(reader, names)
		segments = append(segments, model.RiverSegment{
			Name:     attrs[names[nameIdx]],
			Attrs:    attrs,
			Geometry: mls,
		})
	}

	if skipped > 0 {
		zap.L().Debug("rivers: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(segments) == 0 {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Errorf("rivers: no usable linestrings in %s", path))
	}

	zap.L().Info("rivers loaded", zap.String("path", path), zap.Int("count", len(segments)))
	return segments, nil
}
