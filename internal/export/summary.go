package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// wardStats accumulates total-score statistics for one ward.
type wardStats struct {
	samples int
	sum     float64
	min     float64
	max     float64
}

func (s *wardStats) add(score float64) {
	if s.samples == 0 || score < s.min {
		s.min = score
	}
	if s.samples == 0 || score > s.max {
		s.max = score
	}
	s.samples++
	s.sum += score
}

// WriteWardSummary writes one CSV row per ward: site count plus total-score
// statistics over the ward's biological samples. Wards with no sites or no
// samples still get a row, so the distribution plots see the full region.
func WriteWardSummary(path string, wards []model.Ward, records []model.BioRecord) error {
	stats := make(map[string]*wardStats, len(wards))
	for _, rec := range records {
		if rec.WardCode == nil {
			continue
		}
		s, ok := stats[*rec.WardCode]
		if !ok {
			s = &wardStats{}
			stats[*rec.WardCode] = s
		}
		s.add(rec.TotalScore)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	header := []string{"ward_code", "ward_name", "site_count", "sample_count", "mean_total_score", "min_total_score", "max_total_score"}
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "export: write header %s", path)
	}

	for _, ward := range wards {
		row := []string{
			ward.Code,
			ward.Name,
			strconv.Itoa(ward.Count),
			"0", "", "", "",
		}
		if s, ok := stats[ward.Code]; ok && s.samples > 0 {
			row[3] = strconv.Itoa(s.samples)
			row[4] = strconv.FormatFloat(s.sum/float64(s.samples), 'f', 2, 64)
			row[5] = strconv.FormatFloat(s.min, 'f', 2, 64)
			row[6] = strconv.FormatFloat(s.max, 'f', 2, 64)
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "export: write row %s", path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}
	return nil
}
