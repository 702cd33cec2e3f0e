// Package export writes the joined tables as GeoJSON feature collections and
// a per-ward summary CSV. These artifacts are the hand-off point to the
// charting collaborator; no plot rendering happens in this repository.
package export

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
	"github.com/samwcounsell/APEM-River-Quality/internal/pipeline"
	"github.com/samwcounsell/APEM-River-Quality/internal/proj"
)

// All writes every artifact of a pipeline run into dir.
func All(dir string, res *pipeline.Result, tr *proj.Transformer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir %s", dir)
	}

	if err := WriteWardChoropleth(filepath.Join(dir, "ward_counts.geojson"), res.Wards, tr); err != nil {
		return err
	}
	if err := WriteBioPoints(filepath.Join(dir, "bio_sites.geojson"), res.Bio); err != nil {
		return err
	}
	if err := WriteRivers(filepath.Join(dir, "river_named.geojson"), res.NamedRiver); err != nil {
		return err
	}
	if err := WriteRivers(filepath.Join(dir, "river_bbox.geojson"), res.BBoxRivers); err != nil {
		return err
	}
	if err := WriteWardSummary(filepath.Join(dir, "ward_summary.csv"), res.Wards, res.Bio); err != nil {
		return err
	}

	zap.L().Info("export complete", zap.String("dir", dir))
	return nil
}

// WriteWardChoropleth writes one feature per ward with its site count, with
// geometry reprojected to the geographic CRS for rendering.
func WriteWardChoropleth(path string, wards []model.Ward, tr *proj.Transformer) error {
	fc := &geojson.FeatureCollection{}
	for _, w := range wards {
		props := map[string]interface{}{
			"code":  w.Code,
			"name":  w.Name,
			"count": w.Count,
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         w.Code,
			Geometry:   tr.MultiPolygonToGeographic(w.Geometry),
			Properties: props,
		})
	}
	return writeJSON(path, fc)
}

// WriteBioPoints writes one feature per matched biological record. Records
// with no matched site have no location to plot and are omitted; the merged
// table itself keeps them.
func WriteBioPoints(path string, records []model.BioRecord) error {
	fc := &geojson.FeatureCollection{}
	var skipped int
	for _, rec := range records {
		if rec.Geometry == nil {
			skipped++
			continue
		}
		props := map[string]interface{}{
			"site_id":     rec.SiteID,
			"waterbody":   rec.Waterbody,
			"ntaxa":       rec.NTaxa,
			"aspt":        rec.ASPT,
			"total_score": rec.TotalScore,
		}
		if !rec.SampleDate.IsZero() {
			props["sample_date"] = rec.SampleDate.Format("2006-01-02")
		}
		if rec.WardCode != nil {
			props["ward_code"] = *rec.WardCode
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   rec.Geometry,
			Properties: props,
		})
	}
	if skipped > 0 {
		zap.L().Debug("bio records without geometry omitted from geojson",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return writeJSON(path, fc)
}

// WriteRivers writes one feature per river segment. Segments are expected to
// carry geographic geometry already.
func WriteRivers(path string, segments []model.RiverSegment) error {
	fc := &geojson.FeatureCollection{}
	for _, seg := range segments {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   seg.Geometry,
			Properties: map[string]interface{}{"name": seg.Name},
		})
	}
	return writeJSON(path, fc)
}

func writeJSON(path string, fc *geojson.FeatureCollection) error {
	// Strict consumers reject "features":null on an empty collection.
	if fc.Features == nil {
		fc.Features = []*geojson.Feature{}
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	zap.L().Debug("geojson written", zap.String("path", path), zap.Int("features", len(fc.Features)))
	return nil
}
