package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func series(symbol string, start int, closes ...float64) models.PriceSeries {
	s := models.PriceSeries{Symbol: symbol, Period: "1y", Interval: "1d"}
	for i, c := range closes {
		s.Points = append(s.Points, models.PricePoint{Time: day(start + i), Close: c})
	}
	return s
}

type fakeProvider struct {
	series map[string]models.PriceSeries
	quotes map[string]float64
}

func (f *fakeProvider) GetHistory(_ context.Context, symbol string, _ drepo.Period, _ drepo.Interval) (models.PriceSeries, error) {
	s, ok := f.series[symbol]
	if !ok {
		return models.PriceSeries{}, drepo.ErrNotFound
	}
	return s, nil
}

func (f *fakeProvider) GetQuote(_ context.Context, symbol string) (models.Quote, error) {
	p, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{Symbol: symbol, Price: models.NA()}, drepo.ErrNotFound
	}
	return models.Quote{Symbol: symbol, Price: models.Number(p)}, nil
}

type zMetrics struct {
	mu sync.Mutex
	z  map[string]float64
}

func (m *zMetrics) RecordFetch(string, string)      {}
func (m *zMetrics) RecordError(string)              {}
func (m *zMetrics) RecordLastPrice(string, float64) {}
func (m *zMetrics) RecordLatency(string, float64)   {}
func (m *zMetrics) RecordZScore(pair string, z float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.z == nil {
		m.z = map[string]float64{}
	}
	m.z[pair] = z
}

func exampleProvider() *fakeProvider {
	return &fakeProvider{
		series: map[string]models.PriceSeries{
			"A":    series("A", 1, 10, 11, 9, 10, 12),
			"B":    series("B", 1, 5, 5, 5, 5, 5),
			"BZ=F": series("BZ=F", 1, 80, 81, 82, 83, 84),
			"OLD":  series("OLD", 20, 70, 71),
		},
		quotes: map[string]float64{"A": 12, "B": 5},
	}
}

func TestPairAnalyzer_WithReference(t *testing.T) {
	m := &zMetrics{}
	a := NewPairAnalyzer(exampleProvider(), WithReference("BZ=F"), WithAnalyzerMetrics(m))

	res, err := a.Analyze(context.Background(), models.AnalysisRequest{First: "A", Second: "B", UpperZ: 1})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOK, res.Status)
	assert.True(t, res.Loaded)
	assert.Equal(t, "BZ=F", res.Reference)
	assert.Equal(t, models.SignalSellFirstBuySecond, res.Analysis.Signal)
	assert.Equal(t, "Sell A / Buy B", res.Label)
	assert.InDelta(t, 1.568929, res.Analysis.LatestZ.Float64(), 1e-6)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, 84.0, res.Rows[4].Reference.Float64())
	assert.Empty(t, res.Errors)
	assert.Equal(t, 12.0, res.Quotes["A"].Price.Float64())
	assert.InDelta(t, 1.568929, m.z["A/B"], 1e-6)
}

func TestPairAnalyzer_ReferenceFallback(t *testing.T) {
	a := NewPairAnalyzer(exampleProvider())

	res, err := a.Analyze(context.Background(), models.AnalysisRequest{First: "A", Second: "B", UpperZ: 1, Reference: "OLD"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, res.Status)
	assert.Empty(t, res.Reference)
	assert.Contains(t, res.Errors, PartReference)
	require.Len(t, res.Rows, 5)
	assert.False(t, res.Rows[0].Reference.Defined())

	res, err = a.Analyze(context.Background(), models.AnalysisRequest{First: "A", Second: "B", UpperZ: 1, Reference: "MISSING"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOK, res.Status)
	assert.Contains(t, res.Errors, PartReference)
}

func TestPairAnalyzer_SampleStdDev(t *testing.T) {
	a := NewPairAnalyzer(exampleProvider(), WithStdDev("sample"))
	res, err := a.Analyze(context.Background(), models.AnalysisRequest{First: "A", Second: "B", UpperZ: 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.403293, res.Analysis.LatestZ.Float64(), 1e-6)
}

func TestPairAnalyzer_Statuses(t *testing.T) {
	p := exampleProvider()
	p.series["C"] = series("C", 10, 1, 2, 3)
	p.series["D"] = series("D", 5, 6)
	a := NewPairAnalyzer(p)
	ctx := context.Background()

	res, err := a.Analyze(ctx, models.AnalysisRequest{First: "A", Second: "MISSING"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDataUnavailable, res.Status)
	assert.False(t, res.Loaded)
	assert.Equal(t, "N/A", res.Label)
	assert.Contains(t, res.Errors, PartSecond)

	res, err = a.Analyze(ctx, models.AnalysisRequest{First: "A", Second: "C"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoCommonData, res.Status)
	assert.False(t, res.Loaded)

	res, err = a.Analyze(ctx, models.AnalysisRequest{First: "A", Second: "D"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficientHistory, res.Status)
	assert.True(t, res.Loaded)
	assert.Equal(t, models.SignalUndefined, res.Analysis.Signal)
	assert.InDelta(t, 2.0, res.Analysis.LatestRatio.Float64(), 1e-12)

	_, err = a.Analyze(ctx, models.AnalysisRequest{First: "A", Second: "A"})
	assert.Error(t, err)
}

type stubAnalyzer struct {
	mu      sync.Mutex
	signals  []models.Signal
	statuses []string
	quotes   map[string]models.Quote
	err      error
	calls    int
}

func (s *stubAnalyzer) Analyze(_ context.Context, req models.AnalysisRequest) (*models.PairAnalysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	sig := s.signals[len(s.signals)-1]
	if s.calls < len(s.signals) {
		sig = s.signals[s.calls]
	}
	status := models.StatusOK
	if s.calls < len(s.statuses) && s.statuses[s.calls] != "" {
		status = s.statuses[s.calls]
	}
	s.calls++
	return &models.PairAnalysis{
		First:    req.First,
		Second:   req.Second,
		Status:   status,
		Loaded:   true,
		Label:    sig.Label(req.First, req.Second),
		Analysis: models.RatioAnalysis{Signal: sig, LatestZ: 2.5, LatestRatio: 2, UpperZ: 2},
		Quotes:   s.quotes,
	}, nil
}

func quotes(kv map[string]float64) map[string]models.Quote {
	out := map[string]models.Quote{}
	for k, v := range kv {
		out[k] = models.Quote{Symbol: k, Price: models.Number(v)}
	}
	return out
}

func TestTradeSimulation_FromSignal(t *testing.T) {
	an := &stubAnalyzer{
		signals: []models.Signal{models.SignalSellFirstBuySecond},
		quotes:  quotes(map[string]float64{"A": 20, "B": 10}),
	}
	sim := NewTradeSimulation(an, DefaultSimulationDefaults(), nil)

	rep, err := sim.Simulate(context.Background(), models.SimulationRequest{First: "A", Second: "B", RefLeg: "sell"})
	require.NoError(t, err)

	assert.Equal(t, "B", rep.BuySymbol)
	assert.Equal(t, "A", rep.SellSymbol)
	assert.Equal(t, "A", rep.RefSymbol)
	assert.Equal(t, int64(1000), rep.Result.Sell.Qty)
	assert.Equal(t, int64(2000), rep.Result.Buy.Qty)
	assert.InDelta(t, 10.2, rep.Result.Buy.Exit, 1e-9)
	assert.InDelta(t, 19.6, rep.Result.Sell.Exit, 1e-9)
	assert.InDelta(t, 800, rep.Result.GrossResult, 1e-6)
	assert.InDelta(t, 82.19178, rep.Result.BorrowCost, 1e-5)
	assert.InDelta(t, 702.80822, rep.Result.NetResult, 1e-5)
	assert.InDelta(t, 2.0, rep.AtEntry.Ratio.Float64(), 1e-12)
	assert.InDelta(t, 10.0, rep.AtEntry.Spread, 1e-12)
	assert.Empty(t, rep.Warnings)
}

func TestTradeSimulation_DirectionOverrideAndCosts(t *testing.T) {
	an := &stubAnalyzer{signals: []models.Signal{models.SignalNeutral}, quotes: quotes(map[string]float64{"A": 20, "B": 10})}
	sim := NewTradeSimulation(an, DefaultSimulationDefaults(), nil)

	zero := 0.0
	days := 0
	buyExit := 21.0
	rep, err := sim.Simulate(context.Background(), models.SimulationRequest{
		First:               "A",
		Second:              "B",
		Direction:           "buy_first_sell_second",
		RefLeg:              "buy",
		RefQty:              500,
		LotSize:             100,
		BuyExit:             &buyExit,
		BorrowAnnualRatePct: &zero,
		DurationDays:        &days,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SignalBuyFirstSellSecond, rep.Signal)
	assert.Equal(t, "A", rep.BuySymbol)
	assert.Equal(t, int64(500), rep.Result.Buy.Qty)
	assert.Equal(t, int64(1000), rep.Result.Sell.Qty)
	assert.Equal(t, 21.0, rep.Result.Buy.Exit)
	assert.Equal(t, 0.0, rep.Result.BorrowCost)
	assert.Equal(t, 10.0, rep.Costs.BrokerageTotal)
}

func TestTradeSimulation_Errors(t *testing.T) {
	an := &stubAnalyzer{signals: []models.Signal{models.SignalNeutral}}
	sim := NewTradeSimulation(an, DefaultSimulationDefaults(), nil)
	ctx := context.Background()

	_, err := sim.Simulate(ctx, models.SimulationRequest{First: "A", Second: "B"})
	assert.ErrorIs(t, err, ErrNoSignal)

	_, err = sim.Simulate(ctx, models.SimulationRequest{First: "A", Second: "B", Direction: "buy_first_sell_second", RefQty: 150})
	assert.ErrorIs(t, err, ErrLotMultiple)

	an.err = errors.New("boom")
	_, err = sim.Simulate(ctx, models.SimulationRequest{First: "A", Second: "B"})
	assert.Error(t, err)
}

func TestTradeSimulation_MissingQuoteDegrades(t *testing.T) {
	an := &stubAnalyzer{signals: []models.Signal{models.SignalBuyFirstSellSecond}, quotes: quotes(map[string]float64{"B": 10})}
	sim := NewTradeSimulation(an, DefaultSimulationDefaults(), nil)

	rep, err := sim.Simulate(context.Background(), models.SimulationRequest{First: "A", Second: "B"})
	require.NoError(t, err)
	assert.Contains(t, rep.Warnings, "buy_entry")
	assert.Contains(t, rep.Warnings, "balance")
	assert.Equal(t, 0.0, rep.Result.Buy.Entry)
	assert.Equal(t, int64(0), rep.Result.Buy.Qty)
	assert.Equal(t, 0.0, rep.AtEntry.Ratio.Float64())
}

type recordingSink struct {
	events []*models.SignalEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, ev *models.SignalEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func TestSignalWatcher_EmitsOnChange(t *testing.T) {
	an := &stubAnalyzer{signals: []models.Signal{
		models.SignalSellFirstBuySecond,
		models.SignalSellFirstBuySecond,
		models.SignalNeutral,
	}}
	sink := &recordingSink{}
	w := NewSignalWatcher(an, sink, []WatchedPair{{First: "A", Second: "B"}}, time.Minute, 2, nil)
	w.newID = func() string { return "id-1" }
	ctx := context.Background()

	assert.Equal(t, 1, w.Tick(ctx))
	assert.Equal(t, 0, w.Tick(ctx))
	assert.Equal(t, 1, w.Tick(ctx))

	require.Len(t, sink.events, 2)
	first := sink.events[0]
	assert.Equal(t, "id-1", first.ID)
	assert.Equal(t, models.SignalSellFirstBuySecond, first.Signal)
	assert.Equal(t, models.SignalUndefined, first.Previous)
	assert.Equal(t, "A/B", first.PairKey())
	assert.Equal(t, models.SignalSellFirstBuySecond, sink.events[1].Previous)

	cur, ok := w.Current("A", "B")
	assert.True(t, ok)
	assert.Equal(t, models.SignalNeutral, cur)
}

func TestSignalWatcher_IgnoresDataOutage(t *testing.T) {
	an := &stubAnalyzer{
		signals: []models.Signal{
			models.SignalSellFirstBuySecond,
			models.SignalUndefined,
			models.SignalSellFirstBuySecond,
		},
		statuses: []string{"", models.StatusDataUnavailable, ""},
	}
	sink := &recordingSink{}
	w := NewSignalWatcher(an, sink, []WatchedPair{{First: "A", Second: "B"}}, time.Minute, 2, nil)
	ctx := context.Background()

	assert.Equal(t, 1, w.Tick(ctx))
	assert.Equal(t, 0, w.Tick(ctx))
	assert.Equal(t, 0, w.Tick(ctx))
	require.Len(t, sink.events, 1)

	cur, ok := w.Current("A", "B")
	assert.True(t, ok)
	assert.Equal(t, models.SignalSellFirstBuySecond, cur)
}

func TestSignalWatcher_RunStopsOnCancel(t *testing.T) {
	an := &stubAnalyzer{signals: []models.Signal{models.SignalNeutral}}
	sink := &recordingSink{}
	w := NewSignalWatcher(an, sink, []WatchedPair{{First: "A", Second: "B"}}, time.Hour, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	assert.Eventually(t, func() bool {
		_, ok := w.Current("A", "B")
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
