package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	"PairDesk/internal/services/pairs"
	applogger "PairDesk/pkg/logger"
)

// Keys of PairAnalysis.Errors.
const (
	PartFirst     = "first"
	PartSecond    = "second"
	PartReference = "reference"
)

// PairAnalyzer loads both legs (and the reference commodity) and runs the ratio engine.
type PairAnalyzer struct {
	provider  drepo.PriceProvider
	metrics   drepo.Metrics
	l         *applogger.Logger
	reference string
	stdDev    string
	upperZ    float64
	period    drepo.Period
	interval  drepo.Interval
	now       func() time.Time
}

type AnalyzerOption func(*PairAnalyzer)

// WithReference sets the default reference symbol. Empty disables it.
func WithReference(symbol string) AnalyzerOption {
	return func(a *PairAnalyzer) { a.reference = symbol }
}

// WithStdDev selects "population" or "sample" deviation.
func WithStdDev(mode string) AnalyzerOption {
	return func(a *PairAnalyzer) { a.stdDev = mode }
}

// WithDefaultUpperZ is used when a request carries no threshold.
func WithDefaultUpperZ(z float64) AnalyzerOption {
	return func(a *PairAnalyzer) {
		if z > 0 {
			a.upperZ = z
		}
	}
}

// WithDefaultWindow is used when a request names no period or interval.
func WithDefaultWindow(period, interval string) AnalyzerOption {
	return func(a *PairAnalyzer) {
		a.period = drepo.NormalizePeriod(period)
		a.interval = drepo.NormalizeInterval(interval)
	}
}

func WithAnalyzerMetrics(m drepo.Metrics) AnalyzerOption {
	return func(a *PairAnalyzer) { a.metrics = m }
}

func WithAnalyzerLogger(l *applogger.Logger) AnalyzerOption {
	return func(a *PairAnalyzer) {
		if l != nil {
			a.l = l
		}
	}
}

func NewPairAnalyzer(provider drepo.PriceProvider, opts ...AnalyzerOption) *PairAnalyzer {
	a := &PairAnalyzer{
		provider: provider,
		l:        applogger.Nop(),
		stdDev:   "population",
		upperZ:   2,
		period:   drepo.DefaultPeriod(),
		interval: drepo.Interval1d,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze never fails on missing data: failed parts land in Errors and the status
// marker tells the caller what could be computed.
func (a *PairAnalyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.PairAnalysis, error) {
	if req.First == "" || req.Second == "" {
		return nil, fmt.Errorf("analyze: both symbols are required")
	}
	if req.First == req.Second {
		return nil, fmt.Errorf("analyze: symbols must differ")
	}
	period, interval := a.period, a.interval
	if req.Period != "" {
		period = drepo.NormalizePeriod(req.Period)
	}
	if req.Interval != "" {
		interval = drepo.NormalizeInterval(req.Interval)
	}
	upperZ := req.UpperZ
	if upperZ <= 0 {
		upperZ = a.upperZ
	}
	ref := req.Reference
	if ref == "" {
		ref = a.reference
	}
	if req.NoReference || ref == req.First || ref == req.Second {
		ref = ""
	}

	out := &models.PairAnalysis{
		First:     req.First,
		Second:    req.Second,
		Reference: ref,
		Period:    string(period),
		Interval:  string(interval),
		Timestamp: a.now().UTC(),
		Quotes:    make(map[string]models.Quote, 2),
		Errors:    make(map[string]string),
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		set = map[string]models.PriceSeries{}
	)
	fetchHistory := func(part, symbol string) {
		defer wg.Done()
		s, err := a.provider.GetHistory(ctx, symbol, period, interval)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.Errors[part] = fmt.Sprintf("%s: %v", symbol, err)
			return
		}
		if s.Empty() {
			out.Errors[part] = fmt.Sprintf("%s: no data", symbol)
			return
		}
		set[part] = s
	}
	fetchQuote := func(symbol string) {
		defer wg.Done()
		q, err := a.provider.GetQuote(ctx, symbol)
		mu.Lock()
		defer mu.Unlock()
		if err != nil || !q.Available() {
			out.Quotes[symbol] = models.Quote{Symbol: symbol, Price: models.NA()}
			if err != nil {
				out.Errors["quote:"+symbol] = err.Error()
			}
			return
		}
		out.Quotes[symbol] = q
	}

	wg.Add(4)
	go fetchHistory(PartFirst, req.First)
	go fetchHistory(PartSecond, req.Second)
	go fetchQuote(req.First)
	go fetchQuote(req.Second)
	if ref != "" {
		wg.Add(1)
		go fetchHistory(PartReference, ref)
	}
	wg.Wait()

	first, okFirst := set[PartFirst]
	second, okSecond := set[PartSecond]
	if !okFirst || !okSecond {
		out.Status = models.StatusDataUnavailable
		out.Analysis = pairs.ComputeSignal(models.AlignedSeriesSet{}, upperZ)
		out.Label = out.Analysis.Signal.Label(req.First, req.Second)
		a.l.Warn("pair data unavailable",
			applogger.String("pair", req.First+"/"+req.Second),
			applogger.Any("errors", out.Errors),
		)
		return out, nil
	}

	aligned := pairs.Align(first, second)
	if refSeries, ok := set[PartReference]; ok {
		withRef := pairs.Align(first, second, refSeries)
		if withRef.Empty() {
			out.Errors[PartReference] = fmt.Sprintf("%s: no dates in common with the pair", ref)
		} else {
			aligned = withRef
		}
	}
	if _, ok := aligned.Column(ref); !ok {
		out.Reference = ""
	}

	out.Analysis = pairs.ComputeSignal(aligned, upperZ, pairs.WithStdDevMode(a.stdDev))
	out.Label = out.Analysis.Signal.Label(req.First, req.Second)
	out.Times = aligned.Times
	out.Rows = pairs.ExportRows(aligned, out.Analysis)
	out.Loaded = !aligned.Empty()

	switch {
	case aligned.Empty():
		out.Status = models.StatusNoCommonData
	case !out.Analysis.StdDev.Defined():
		out.Status = models.StatusInsufficientHistory
	default:
		out.Status = models.StatusOK
	}

	if a.metrics != nil && out.Analysis.LatestZ.Defined() {
		a.metrics.RecordZScore(req.First+"/"+req.Second, out.Analysis.LatestZ.Float64())
	}
	a.l.Debug("pair analyzed",
		applogger.String("pair", req.First+"/"+req.Second),
		applogger.String("status", out.Status),
		applogger.String("signal", out.Analysis.Signal.String()),
		applogger.Int("points", aligned.Len()),
	)
	return out, nil
}
