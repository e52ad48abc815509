// Package pairs holds the pure pair-trading engine: alignment, ratio/z-score
// signal, lot balancing and trade settlement. Nothing here performs I/O or keeps state.
package pairs

import (
	"sort"
	"time"

	"PairDesk/internal/domain/models"
)

// Align intersects the timestamps of every series and restricts each series to them.
// The result is empty (not an error) when no timestamp is common to all inputs.
// Duplicate timestamps inside one series keep the last point.
func Align(series ...models.PriceSeries) models.AlignedSeriesSet {
	if len(series) == 0 {
		return models.AlignedSeriesSet{}
	}

	lookups := make([]map[int64]float64, len(series))
	stamps := make(map[int64]time.Time)
	for i, s := range series {
		m := make(map[int64]float64, len(s.Points))
		for _, p := range s.Points {
			k := p.Time.UnixNano()
			m[k] = p.Close
			if i == 0 {
				stamps[k] = p.Time
			}
		}
		lookups[i] = m
	}

	keys := make([]int64, 0, len(stamps))
	for k := range stamps {
		common := true
		for _, m := range lookups[1:] {
			if _, ok := m[k]; !ok {
				common = false
				break
			}
		}
		if common {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return models.AlignedSeriesSet{}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := models.AlignedSeriesSet{
		Times:   make([]time.Time, len(keys)),
		Columns: make([]models.AlignedColumn, len(series)),
	}
	for i, k := range keys {
		out.Times[i] = stamps[k]
	}
	for i, s := range series {
		closes := make([]float64, len(keys))
		for j, k := range keys {
			closes[j] = lookups[i][k]
		}
		out.Columns[i] = models.AlignedColumn{Symbol: s.Symbol, Closes: closes}
	}
	return out
}
