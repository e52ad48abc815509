package models

// Leg is one side of a simulated pair trade.
type Leg struct {
	Entry float64 `json:"entry"`
	Exit  float64 `json:"exit"`
	Qty   int64   `json:"qty"`
}

// EntryVolume is the notional at entry.
func (l Leg) EntryVolume() float64 { return float64(l.Qty) * l.Entry }

// ExitVolume is the notional at exit.
func (l Leg) ExitVolume() float64 { return float64(l.Qty) * l.Exit }

// CostParams are the trade costs applied on top of the gross result.
type CostParams struct {
	BorrowAnnualRatePct float64 `json:"borrow_annual_rate_pct"`
	DurationDays        int     `json:"duration_days"`
	BrokerageTotal      float64 `json:"brokerage_total"`
	FeesTotal           float64 `json:"fees_total"`
}

// LegResult is the outcome of a single leg.
type LegResult struct {
	Qty         int64   `json:"qty"`
	Entry       float64 `json:"entry"`
	Exit        float64 `json:"exit"`
	EntryVolume float64 `json:"entry_volume"`
	ExitVolume  float64 `json:"exit_volume"`
	Result      float64 `json:"result"`
}

// SimulationResult holds the settlement economics of a pair trade.
type SimulationResult struct {
	Buy           LegResult `json:"buy"`
	Sell          LegResult `json:"sell"`
	GrossResult   float64   `json:"gross_result"`
	BorrowCost    float64   `json:"borrow_cost"`
	OperatingCost float64   `json:"operating_cost"`
	NetResult     float64   `json:"net_result"`
	CapitalBase   float64   `json:"capital_base"`
	NetReturnPct  Number    `json:"net_return_pct"`
}

// PairQuoteView is the ratio and spread between the pair's prices at one moment.
type PairQuoteView struct {
	Ratio  Number  `json:"ratio"`
	Spread float64 `json:"spread"`
}
