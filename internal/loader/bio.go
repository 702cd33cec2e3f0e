package loader

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/samwcounsell/APEM-River-Quality/internal/errs"
	"github.com/samwcounsell/APEM-River-Quality/internal/model"
)

// BioOptions configures biological index table loading. SiteIDs restricts the
// result to the listed sites; From/To bound SampleDate inclusively. Zero
// values disable the corresponding filter.
type BioOptions struct {
	SheetName string // defaults to the first sheet
	SiteIDs   []string
	From      time.Time
	To        time.Time
}

// bio table column headers, matched case-insensitively against the first row.
const (
	colSiteID     = "site_id"
	colSampleDate = "sample_date"
	colWaterbody  = "waterbody"
	colNTaxa      = "ntaxa"
	colASPT       = "aspt"
	colTotalScore = "total_score"
)

// dateLayouts are the sample-date formats seen in exports of the index table.
var dateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"}

// bioColumns are the headers with a typed BioRecord field; anything else in
// the sheet is carried through in Attrs.
var bioColumns = map[string]bool{
	colSiteID:     true,
	colSampleDate: true,
	colWaterbody:  true,
	colNTaxa:      true,
	colASPT:       true,
	colTotalScore: true,
}

// LoadBioRecords reads the biological index table from an XLSX workbook,
// applying the optional site-id and inclusive date-range filters. The site_id
// column is required; score columns missing from a row parse as zero.
func LoadBioRecords(path string, opts BioOptions) ([]model.BioRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Wrapf(err, "bio: open %s", path))
	}

	sheet, err := bioSheet(f, opts.SheetName)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, errs.Mark(errs.ErrDataLoad, eris.Errorf("bio: empty sheet in %s", path))
	}

	idx := headerIndex(sheet.Rows[0])
	siteIdx, ok := idx[colSiteID]
	if !ok {
		return nil, errs.Mark(errs.ErrDataLoad,
			eris.Errorf("bio: required column %q not found in %s", colSiteID, path))
	}

	wanted := make(map[string]bool, len(opts.SiteIDs))
	for _, id := range opts.SiteIDs {
		wanted[id] = true
	}

	var records []model.BioRecord
	var badDates int
	for _, row := range sheet.Rows[1:] {
		siteID := strings.TrimSpace(cellAt(row, siteIdx))
		if siteID == "" {
			continue
		}
		if len(wanted) > 0 && !wanted[siteID] {
			continue
		}

		rec := model.BioRecord{
			SiteID:     siteID,
			NTaxa:      cellFloat(row, idx, colNTaxa),
			ASPT:       cellFloat(row, idx, colASPT),
			TotalScore: cellFloat(row, idx, colTotalScore),
		}
		if i, ok := idx[colWaterbody]; ok {
			rec.Waterbody = cellAt(row, i)
		}

		if i, ok := idx[colSampleDate]; ok {
			raw := cellAt(row, i)
			rec.SampleDate = parseDate(raw)
			if raw != "" && rec.SampleDate.IsZero() {
				badDates++
			}
		}
		// A zero date fails any lower bound, so rows with unparseable dates
		// drop out of a bounded filter; badDates keeps that visible.
		if !inDateRange(rec.SampleDate, opts.From, opts.To) {
			continue
		}

		for name, i := range idx {
			if bioColumns[name] {
				continue
			}
			if rec.Attrs == nil {
				rec.Attrs = make(map[string]string)
			}
			rec.Attrs[name] = cellAt(row, i)
		}

		records = append(records, rec)
	}

	if badDates > 0 {
		zap.L().Warn("bio rows with unparseable sample dates",
			zap.String("path", path),
			zap.Int("rows", badDates),
		)
	}
	zap.L().Info("bio records loaded", zap.String("path", path), zap.Int("count", len(records)))
	return records, nil
}

func bioSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, errs.Mark(errs.ErrDataLoad, eris.Errorf("bio: sheet %q not found", name))
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, errs.Mark(errs.ErrDataLoad, eris.New("bio: workbook has no sheets"))
	}
	return f.Sheets[0], nil
}

// headerIndex maps lowercased header names to column positions.
func headerIndex(row *xlsx.Row) map[string]int {
	idx := make(map[string]int, len(row.Cells))
	for i, cell := range row.Cells {
		name := strings.ToLower(strings.TrimSpace(cell.String()))
		if name != "" {
			idx[name] = i
		}
	}
	return idx
}

func cellAt(row *xlsx.Row, i int) string {
	if i < 0 || i >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[i].String())
}

func cellFloat(row *xlsx.Row, idx map[string]int, col string) float64 {
	i, ok := idx[col]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(cellAt(row, i), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// inDateRange applies the inclusive [from, to] bound; zero bounds are open.
func inDateRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
