package pairs

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"PairDesk/internal/domain/models"
)

const (
	pricePrecision = 4
	ratioPrecision = 6
)

// ExportRows lays the aligned closes next to the ratio and z-score, one row per timestamp.
// The first two columns are the pair; a third column, if present, is the reference.
func ExportRows(aligned models.AlignedSeriesSet, analysis models.RatioAnalysis) []models.ExportRow {
	if aligned.Empty() || len(aligned.Columns) < 2 {
		return nil
	}
	first := aligned.Columns[0].Closes
	second := aligned.Columns[1].Closes
	var ref []float64
	if len(aligned.Columns) > 2 {
		ref = aligned.Columns[2].Closes
	}

	rows := make([]models.ExportRow, aligned.Len())
	for i, t := range aligned.Times {
		row := models.ExportRow{
			Time:      t,
			First:     first[i],
			Second:    second[i],
			Reference: models.NA(),
			Ratio:     models.NA(),
			ZScore:    models.NA(),
		}
		if ref != nil {
			row.Reference = models.Number(ref[i])
		}
		if i < len(analysis.Ratio) {
			row.Ratio = analysis.Ratio[i]
		}
		if i < len(analysis.ZScore) {
			row.ZScore = analysis.ZScore[i]
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV renders rows with a header naming the symbols. Undefined cells are left empty.
func WriteCSV(w io.Writer, first, second, reference string, rows []models.ExportRow) error {
	cw := csv.NewWriter(w)
	header := []string{"date", first, second}
	if reference != "" {
		header = append(header, reference)
	}
	header = append(header, "ratio", "zscore")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range rows {
		rec := []string{
			r.Time.Format(time.DateOnly),
			fixed(models.Number(r.First), pricePrecision),
			fixed(models.Number(r.Second), pricePrecision),
		}
		if reference != "" {
			rec = append(rec, fixed(r.Reference, pricePrecision))
		}
		rec = append(rec, fixed(r.Ratio, ratioPrecision), fixed(r.ZScore, ratioPrecision))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func fixed(n models.Number, places int32) string {
	if !n.Defined() {
		return ""
	}
	return decimal.NewFromFloat(n.Float64()).StringFixed(places)
}
