package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// siteColumns are the registry columns the pipeline cannot run without.
var siteColumns = []string{"site_id", "easting", "northing"}

// LoadSites reads the site registry CSV. The file must carry site_id, easting,
// and northing columns; anything else in the header is tolerated and ignored.
func LoadSites(path string) ([]model.Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "sites: open %s", path))
	}
	defer func() { _ = f.Close() }()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "sites: read header of %s", path))
	}

	header := dec.Header()
	if missing := missingColumns(header, siteColumns); len(missing) > 0 {
		return nil, errs.Mark(errs.ErrDataLoad,
			eris.Errorf("sites: required columns %v not found in %s", missing, path))
	}

	var sites []model.Site
	for {
		var s model.Site
		if err := dec.Decode(&s); err == io.EOF {
			break
		} else if err != nil {
			return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "sites: decode row in %s", path))
		}
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			continue
		}
		// Columns without a struct field stay with the record.
		if unused := dec.Unused(); len(unused) > 0 {
			s.Attrs = make(map[string]string, len(unused))
			record := dec.Record()
			for _, i := range unused {
				s.Attrs[strings.TrimSpace(header[i])] = strings.TrimSpace(record[i])
			}
		}
		sites = append(sites, s)
	}

	zap.L().Info("sites loaded", zap.String("path", path), zap.Int("count", len(sites)))
	return sites, nil
}

// missingColumns returns the required names absent from header, compared
// case-insensitively.
func missingColumns(header, required []string) []string {
	var missing []string
	for _, want := range required {
		found := false
		for _, have := range header {
			if strings.EqualFold(strings.TrimSpace(have), want) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return missing
}
