package usecase

import (
	"context"
	"errors"
	"fmt"

	"PairDesk/internal/domain/models"
	"PairDesk/internal/services/pairs"
	applogger "PairDesk/pkg/logger"
)

var (
	// ErrNoSignal means neither the request nor the current signal names a direction.
	ErrNoSignal = errors.New("no actionable signal for pair")
	// ErrLotMultiple means the reference quantity is not a whole number of lots.
	ErrLotMultiple = errors.New("reference quantity must be a multiple of the lot size")
)

// Analyzer is the analysis step the simulator and watcher depend on.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.PairAnalysis, error)
}

// SimulationDefaults fill the request fields the caller left out.
type SimulationDefaults struct {
	RefQty      int64
	LotSize     int64
	Costs       models.CostParams
	BuyExitPct  float64
	SellExitPct float64
}

// DefaultSimulationDefaults mirrors the dashboard's initial form values.
func DefaultSimulationDefaults() SimulationDefaults {
	return SimulationDefaults{
		RefQty:  1000,
		LotSize: pairs.DefaultLotSize,
		Costs: models.CostParams{
			BorrowAnnualRatePct: 5,
			DurationDays:        30,
			BrokerageTotal:      10,
			FeesTotal:           5,
		},
		BuyExitPct:  2,
		SellExitPct: -2,
	}
}

// TradeSimulation sizes and settles one pair trade on top of the current analysis.
type TradeSimulation struct {
	analyzer Analyzer
	defaults SimulationDefaults
	l        *applogger.Logger
}

func NewTradeSimulation(analyzer Analyzer, defaults SimulationDefaults, l *applogger.Logger) *TradeSimulation {
	if l == nil {
		l = applogger.Nop()
	}
	if defaults.LotSize <= 0 {
		defaults.LotSize = pairs.DefaultLotSize
	}
	return &TradeSimulation{analyzer: analyzer, defaults: defaults, l: l}
}

func (s *TradeSimulation) Simulate(ctx context.Context, req models.SimulationRequest) (*models.SimulationReport, error) {
	analysis, err := s.analyzer.Analyze(ctx, models.AnalysisRequest{
		First:       req.First,
		Second:      req.Second,
		Period:      req.Period,
		UpperZ:      req.UpperZ,
		NoReference: true,
	})
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	signal := analysis.Analysis.Signal
	if req.Direction != "" {
		if signal, err = models.ParseSignal(req.Direction); err != nil {
			return nil, fmt.Errorf("simulate: %w", err)
		}
	}
	buySym, sellSym, ok := signal.Legs(req.First, req.Second)
	if !ok {
		return nil, ErrNoSignal
	}

	lot := req.LotSize
	if lot <= 0 {
		lot = s.defaults.LotSize
	}
	refQty := req.RefQty
	if refQty <= 0 {
		refQty = s.defaults.RefQty
	}
	if refQty%lot != 0 {
		return nil, fmt.Errorf("%w: %d is not a multiple of %d", ErrLotMultiple, refQty, lot)
	}

	warnings := map[string]string{}
	entryOf := func(override *float64, symbol, field string) float64 {
		if override != nil {
			return *override
		}
		if q, ok := analysis.Quotes[symbol]; ok && q.Available() {
			return q.Price.Float64()
		}
		warnings[field] = fmt.Sprintf("no current quote for %s", symbol)
		return 0
	}
	buy := models.Leg{Entry: entryOf(req.BuyEntry, buySym, "buy_entry")}
	sell := models.Leg{Entry: entryOf(req.SellEntry, sellSym, "sell_entry")}
	buy.Exit = exitOf(req.BuyExit, buy.Entry, s.defaults.BuyExitPct)
	sell.Exit = exitOf(req.SellExit, sell.Entry, s.defaults.SellExitPct)

	refSymbol := sellSym
	if req.RefLeg == "buy" {
		refSymbol = buySym
		buy.Qty = refQty
		sell.Qty = pairs.Balance(refQty, buy.Entry, sell.Entry, lot)
	} else {
		sell.Qty = refQty
		buy.Qty = pairs.Balance(refQty, sell.Entry, buy.Entry, lot)
	}
	if buy.Qty == 0 || sell.Qty == 0 {
		warnings["balance"] = "cannot balance legs with the given prices"
	}

	costs := s.costs(req)
	report := &models.SimulationReport{
		First:      req.First,
		Second:     req.Second,
		Signal:     signal,
		Label:      signal.Label(req.First, req.Second),
		BuySymbol:  buySym,
		SellSymbol: sellSym,
		RefSymbol:  refSymbol,
		LotSize:    lot,
		Costs:      costs,
		Result:     pairs.Simulate(buy, sell, costs),
	}

	// ratio and spread are always first over second, whichever leg is bought
	firstLeg, secondLeg := buy, sell
	if buySym == req.Second {
		firstLeg, secondLeg = sell, buy
	}
	report.AtEntry = pairs.QuoteView(firstLeg.Entry, secondLeg.Entry)
	report.AtExit = pairs.QuoteView(firstLeg.Exit, secondLeg.Exit)
	if len(warnings) > 0 {
		report.Warnings = warnings
	}

	s.l.Info("trade simulated",
		applogger.String("pair", req.First+"/"+req.Second),
		applogger.String("signal", signal.String()),
		applogger.Int64("buy_qty", buy.Qty),
		applogger.Int64("sell_qty", sell.Qty),
		applogger.Float64("net", report.Result.NetResult),
	)
	return report, nil
}

func exitOf(override *float64, entry, pct float64) float64 {
	if override != nil {
		return *override
	}
	return entry * (1 + pct/100)
}

func (s *TradeSimulation) costs(req models.SimulationRequest) models.CostParams {
	c := s.defaults.Costs
	if req.BorrowAnnualRatePct != nil {
		c.BorrowAnnualRatePct = *req.BorrowAnnualRatePct
	}
	if req.DurationDays != nil {
		c.DurationDays = *req.DurationDays
	}
	if req.BrokerageTotal != nil {
		c.BrokerageTotal = *req.BrokerageTotal
	}
	if req.FeesTotal != nil {
		c.FeesTotal = *req.FeesTotal
	}
	return c
}
