package pairs

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairDesk/internal/domain/models"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func series(symbol string, start int, closes ...float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol}
	for i, c := range closes {
		s.Points = append(s.Points, models.PricePoint{Time: day(start + i), Close: c})
	}
	return s
}

func TestAlign_IntersectsAndOrders(t *testing.T) {
	a := series("A", 1, 10, 11, 12, 13, 14)
	b := series("B", 3, 5, 5, 5, 5, 5)
	// reverse b to check ordering does not depend on input order
	for i, j := 0, len(b.Points)-1; i < j; i, j = i+1, j-1 {
		b.Points[i], b.Points[j] = b.Points[j], b.Points[i]
	}

	got := Align(a, b)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, []time.Time{day(3), day(4), day(5)}, got.Times)

	ca, ok := got.Column("A")
	require.True(t, ok)
	assert.Equal(t, []float64{12, 13, 14}, ca)
	cb, _ := got.Column("B")
	assert.Equal(t, []float64{5, 5, 5}, cb)

	for i := 1; i < got.Len(); i++ {
		assert.True(t, got.Times[i-1].Before(got.Times[i]))
	}
}

func TestAlign_EmptyIntersection(t *testing.T) {
	got := Align(series("A", 1, 1, 2), series("B", 10, 3, 4))
	assert.True(t, got.Empty())

	got = Align(series("A", 1, 1, 2), models.PriceSeries{Symbol: "B"})
	assert.True(t, got.Empty())

	assert.True(t, Align().Empty())
}

func TestAlign_DuplicateKeepsLast(t *testing.T) {
	a := series("A", 1, 10, 11)
	a.Points = append(a.Points, models.PricePoint{Time: day(2), Close: 99})
	got := Align(a, series("B", 1, 1, 1))
	ca, _ := got.Column("A")
	assert.Equal(t, []float64{10, 99}, ca)
}

func TestAlign_DoesNotMutateInputs(t *testing.T) {
	a := series("A", 3, 1, 2, 3)
	b := series("B", 1, 1, 2, 3, 4, 5)
	before := append([]models.PricePoint(nil), b.Points...)
	_ = Align(a, b)
	assert.Equal(t, before, b.Points)
}

func TestComputeSignal_Example(t *testing.T) {
	aligned := Align(series("A", 1, 10, 11, 9, 10, 12), series("B", 1, 5, 5, 5, 5, 5))
	res := ComputeSignal(aligned, 1.0)

	want := []float64{2, 2.2, 1.8, 2, 2.4}
	require.Len(t, res.Ratio, len(want))
	for i, w := range want {
		assert.InDelta(t, w, res.Ratio[i].Float64(), 1e-12)
	}
	assert.InDelta(t, 2.08, res.Mean.Float64(), 1e-12)
	assert.InDelta(t, 0.203961, res.StdDev.Float64(), 1e-6)
	assert.InDelta(t, 1.568929, res.LatestZ.Float64(), 1e-6)
	assert.InDelta(t, 2.4, res.LatestRatio.Float64(), 1e-12)
	assert.Equal(t, models.SignalSellFirstBuySecond, res.Signal)
}

func TestComputeSignal_SampleStdDev(t *testing.T) {
	aligned := Align(series("A", 1, 10, 11, 9, 10, 12), series("B", 1, 5, 5, 5, 5, 5))
	res := ComputeSignal(aligned, 1.0, WithSampleStdDev())
	assert.InDelta(t, 0.228035, res.StdDev.Float64(), 1e-6)
	assert.InDelta(t, 1.403293, res.LatestZ.Float64(), 1e-6)
	assert.Equal(t, models.SignalSellFirstBuySecond, res.Signal)
}

func TestComputeSignal_Deterministic(t *testing.T) {
	aligned := Align(series("A", 1, 3, 4, 2, 8, 1, 6), series("B", 1, 2, 2, 3, 3, 1, 2))
	r1 := ComputeSignal(aligned, 1.5)
	r2 := ComputeSignal(aligned, 1.5)
	require.Equal(t, len(r1.ZScore), len(r2.ZScore))
	for i := range r1.ZScore {
		assert.Equal(t, math.Float64bits(r1.ZScore[i].Float64()), math.Float64bits(r2.ZScore[i].Float64()))
	}
	assert.Equal(t, r1.Signal, r2.Signal)
}

func TestComputeSignal_InsufficientHistory(t *testing.T) {
	res := ComputeSignal(Align(series("A", 1, 10), series("B", 1, 4)), 2)
	assert.InDelta(t, 2.5, res.LatestRatio.Float64(), 1e-12)
	assert.False(t, res.LatestZ.Defined())
	assert.False(t, res.Mean.Defined())
	assert.False(t, res.StdDev.Defined())
	assert.Equal(t, models.SignalUndefined, res.Signal)

	empty := ComputeSignal(models.AlignedSeriesSet{}, 2)
	assert.False(t, empty.LatestRatio.Defined())
	assert.Equal(t, models.SignalUndefined, empty.Signal)
}

func TestComputeSignal_ZeroDenominator(t *testing.T) {
	res := ComputeSignal(Align(series("A", 1, 1, 2, 3), series("B", 1, 1, 1, 0)), 1)
	assert.False(t, res.Ratio[2].Defined())
	assert.False(t, res.LatestZ.Defined())
	assert.Equal(t, models.SignalUndefined, res.Signal)
	// the two defined ratios still produce a mean
	assert.InDelta(t, 1.5, res.Mean.Float64(), 1e-12)
}

func TestComputeSignal_FlatRatioIsUndefined(t *testing.T) {
	res := ComputeSignal(Align(series("A", 1, 2, 4, 6), series("B", 1, 1, 2, 3)), 1)
	assert.Equal(t, 0.0, res.StdDev.Float64())
	assert.False(t, res.LatestZ.Defined())
	assert.Equal(t, models.SignalUndefined, res.Signal)
}

func TestDecide_StrictBoundary(t *testing.T) {
	assert.Equal(t, models.SignalNeutral, Decide(2, 2))
	assert.Equal(t, models.SignalNeutral, Decide(-2, 2))
	assert.Equal(t, models.SignalSellFirstBuySecond, Decide(2.0001, 2))
	assert.Equal(t, models.SignalBuyFirstSellSecond, Decide(-2.0001, 2))
	assert.Equal(t, models.SignalUndefined, Decide(models.NA(), 2))
}

func TestDecide_ThresholdMonotonicity(t *testing.T) {
	zs := []float64{-3, -1.2, -0.5, 0, 0.7, 1.9, 2.5, 4}
	thresholds := []float64{0.5, 1, 1.5, 2, 3, 5}
	for _, z := range zs {
		prev := Decide(models.Number(z), thresholds[0])
		for _, u := range thresholds[1:] {
			cur := Decide(models.Number(z), u)
			if prev == models.SignalNeutral {
				assert.Equal(t, models.SignalNeutral, cur, "z=%v u=%v", z, u)
			}
			if cur.Actionable() {
				assert.Equal(t, prev, cur, "z=%v u=%v", z, u)
			}
			prev = cur
		}
	}
}

func TestBalance(t *testing.T) {
	assert.Equal(t, int64(2000), Balance(1000, 20, 10, 100))
	assert.Equal(t, int64(500), Balance(1000, 10, 20, 100))
	// ties round half to even
	assert.Equal(t, int64(200), Balance(100, 25, 10, 100))
	assert.Equal(t, int64(400), Balance(100, 35, 10, 100))
	assert.Equal(t, int64(0), Balance(1000, 10, 0, 100))
	assert.Equal(t, int64(0), Balance(1000, 10, -1, 100))
	assert.Equal(t, int64(0), Balance(1000, 0, 10, 100))
	// quantities past int64 cannot be balanced
	assert.Equal(t, int64(0), Balance(1000, 50, 1e-15, 100))
	assert.Equal(t, int64(0), Balance(1000, 50, 1e-16, 100))
	assert.Equal(t, int64(0), Balance(1000, 50, 1e-20, 100))
	assert.Equal(t, int64(0), Balance(math.MaxInt64/2, 50, 1, 1))
}

func TestBalance_RoundTrip(t *testing.T) {
	prices := []float64{3.17, 9.9, 12.5, 27.33, 41.02, 88.8}
	for _, p1 := range prices {
		for _, p2 := range prices {
			there := Balance(1000, p1, p2, 100)
			back := Balance(there, p2, p1, 100)
			drift := math.Abs(float64(back - 1000))
			// each leg rounds to half a lot, the first one scaled by p2/p1
			assert.LessOrEqual(t, drift, 50*(1+p2/p1)+1e-9, "p1=%v p2=%v", p1, p2)
			if p2 <= p1 {
				assert.LessOrEqual(t, drift, 100.0, "p1=%v p2=%v there=%d back=%d", p1, p2, there, back)
			}
		}
	}
	assert.Equal(t, int64(1000), Balance(Balance(1000, 41.02, 27.33, 100), 27.33, 41.02, 100))
}

func TestBalance_NotionalWithinHalfLot(t *testing.T) {
	prices := []float64{3.17, 9.9, 12.5, 27.33, 41.02, 88.8}
	for _, ref := range prices {
		for _, other := range prices {
			qty := Balance(1000, ref, other, 100)
			assert.Zero(t, qty%100)
			diff := math.Abs(float64(qty)*other - 1000*ref)
			assert.LessOrEqual(t, diff, 100*other/2+1e-9, "ref=%v other=%v qty=%d", ref, other, qty)
		}
	}
}

func TestSimulate_Example(t *testing.T) {
	res := Simulate(
		models.Leg{Entry: 10, Exit: 10.5, Qty: 1000},
		models.Leg{Entry: 20, Exit: 19, Qty: 1000},
		models.CostParams{BorrowAnnualRatePct: 5, DurationDays: 30, BrokerageTotal: 10, FeesTotal: 5},
	)
	assert.InDelta(t, 500, res.Buy.Result, 1e-9)
	assert.InDelta(t, 1000, res.Sell.Result, 1e-9)
	assert.InDelta(t, 1500, res.GrossResult, 1e-9)
	assert.InDelta(t, 82.19178, res.BorrowCost, 1e-5)
	assert.InDelta(t, 15, res.OperatingCost, 1e-9)
	assert.InDelta(t, 1402.80822, res.NetResult, 1e-5)
	assert.InDelta(t, 20000, res.CapitalBase, 1e-9)
	assert.InDelta(t, 7.014041, res.NetReturnPct.Float64(), 1e-6)
	assert.InDelta(t, 10000, res.Buy.EntryVolume, 1e-9)
	assert.InDelta(t, 19000, res.Sell.ExitVolume, 1e-9)
}

func TestSimulate_SignConventions(t *testing.T) {
	res := Simulate(models.Leg{Entry: 10, Exit: 12, Qty: 100}, models.Leg{Entry: 10, Exit: 8, Qty: 100}, models.CostParams{})
	assert.Greater(t, res.Buy.Result, 0.0)
	assert.Greater(t, res.Sell.Result, 0.0)

	res = Simulate(models.Leg{Entry: 10, Exit: 9, Qty: 100}, models.Leg{Entry: 10, Exit: 11, Qty: 100}, models.CostParams{})
	assert.Less(t, res.Buy.Result, 0.0)
	assert.Less(t, res.Sell.Result, 0.0)
}

func TestSimulate_ZeroBorrow(t *testing.T) {
	buy := models.Leg{Entry: 10, Exit: 11, Qty: 100}
	sell := models.Leg{Entry: 20, Exit: 19, Qty: 100}
	assert.Equal(t, 0.0, Simulate(buy, sell, models.CostParams{BorrowAnnualRatePct: 5, DurationDays: 0}).BorrowCost)
	assert.Equal(t, 0.0, Simulate(buy, sell, models.CostParams{BorrowAnnualRatePct: 0, DurationDays: 30}).BorrowCost)
	assert.Equal(t, 0.0, Simulate(buy, models.Leg{Qty: 0, Entry: 20}, models.CostParams{BorrowAnnualRatePct: 5, DurationDays: 30}).BorrowCost)
}

func TestSimulate_NoCapitalIsUndefined(t *testing.T) {
	res := Simulate(models.Leg{}, models.Leg{}, models.CostParams{BrokerageTotal: 10})
	assert.False(t, res.NetReturnPct.Defined())
	assert.Equal(t, "N/A", res.NetReturnPct.String())
	assert.InDelta(t, -10, res.NetResult, 1e-9)
}

func TestQuoteView(t *testing.T) {
	v := QuoteView(20, 10)
	assert.InDelta(t, 2, v.Ratio.Float64(), 1e-12)
	assert.InDelta(t, 10, v.Spread, 1e-12)
	assert.False(t, QuoteView(20, 0).Ratio.Defined())
}

func TestExportCSV(t *testing.T) {
	aligned := Align(
		series("A", 1, 10, 11, 9),
		series("B", 1, 5, 5, 5),
		series("BZ=F", 1, 80.5, 81, 79.25),
	)
	res := ComputeSignal(aligned, 2)
	rows := ExportRows(aligned, res)
	require.Len(t, rows, 3)
	assert.InDelta(t, 80.5, rows[0].Reference.Float64(), 1e-12)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "A", "B", "BZ=F", rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,A,B,BZ=F,ratio,zscore", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-01,10.0000,5.0000,80.5000,2.000000,"))
}

func TestExportCSV_UndefinedCellsEmpty(t *testing.T) {
	aligned := Align(series("A", 1, 10), series("B", 1, 5))
	rows := ExportRows(aligned, ComputeSignal(aligned, 2))
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, "A", "B", "", rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-01-01,10.0000,5.0000,2.000000,", lines[1])
}
