package loader

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// WardOptions configures ward boundary loading.
type WardOptions struct {
	CodeField string // required unique-code column, e.g. "WD24CD"
	NameField string // optional display-name column, e.g. "WD24NM"
	SRID      int    // EPSG code of the shapefile's projected CRS
}

// LoadWards reads ward polygons from a shapefile. Records without a usable
// polygon or without a ward code are skipped; a missing code column fails the
// whole load with ErrDataLoad.
func LoadWards(path string, opts WardOptions) ([]model.Ward, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "wards: open shapefile %s", path))
	}
	defer func() { _ = reader.Close() }()

	names := fieldNames(reader)
	codeIdx := fieldIndex(names, opts.CodeField)
	if codeIdx < 0 {
		return nil, errs.Mark(errs.ErrDataLoad,
			eris.Errorf("wards: required field %q not found in %s", opts.CodeField, path))
	}
	nameIdx := -1
	if opts.NameField != "" {
		nameIdx = fieldIndex(names, opts.NameField)
	}

	var wards []model.Ward
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly, opts.SRID)
		if mp == nil {
			skipped++
			continue
		}

		attrs := attributes(reader, names)
		code := attrs[names[codeIdx]]
		if code == "" {
			skipped++
			continue
		}

		w := model.Ward{
			Code:     code,
			Attrs:    attrs,
			Geometry: mp,
		}
		if nameIdx >= 0 {
			w.Name = attrs[names[nameIdx]]
		}
		wards = append(wards, w)
	}

	if skipped > 0 {
		zap.L().Debug("wards: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(wards) == 0 {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Errorf("wards: no usable polygons in %s", path))
	}

	zap.L().Info("wards loaded", zap.String("path", path), zap.Int("count", len(wards)))
	return wards, nil
}
