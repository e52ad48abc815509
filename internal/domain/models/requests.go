package models

// Requests for the pairs HTTP endpoints. Defined in domain for reuse by the watcher.
// Zero values of period, threshold and sizing fields fall back to the configured defaults.

type AnalysisRequest struct {
	First     string  `query:"first" json:"first" validate:"required"`
	Second    string  `query:"second" json:"second" validate:"required,nefield=First"`
	Period    string  `query:"period" json:"period" validate:"omitempty,oneof=1mo 3mo 6mo 1y 2y 5y"`
	Interval  string  `query:"interval" json:"interval" validate:"omitempty,oneof=1d 1wk 1mo"`
	UpperZ    float64 `query:"upper_z" json:"upper_z" validate:"omitempty,gt=0,lte=10"`
	Reference string  `query:"reference" json:"reference"`
	// NoReference skips the reference commodity entirely.
	NoReference bool `query:"no_reference" json:"no_reference"`
}

type QuoteRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

// SimulationRequest drives a single simulated pair trade. Pointer fields keep an explicit
// zero distinguishable from "use the default".
type SimulationRequest struct {
	First     string  `json:"first" validate:"required"`
	Second    string  `json:"second" validate:"required,nefield=First"`
	Period    string  `json:"period" validate:"omitempty,oneof=1mo 3mo 6mo 1y 2y 5y"`
	UpperZ    float64 `json:"upper_z" validate:"omitempty,gt=0,lte=10"`
	Direction string  `json:"direction" validate:"omitempty,oneof=sell_first_buy_second buy_first_sell_second"`

	// RefLeg is "buy" or "sell": the leg whose quantity the caller fixes.
	RefLeg  string `json:"ref_leg" default:"sell" validate:"oneof=buy sell"`
	RefQty  int64  `json:"ref_qty" validate:"omitempty,gt=0"`
	LotSize int64  `json:"lot_size" validate:"omitempty,gt=0"`

	BuyEntry  *float64 `json:"buy_entry" validate:"omitempty,gte=0"`
	BuyExit   *float64 `json:"buy_exit" validate:"omitempty,gte=0"`
	SellEntry *float64 `json:"sell_entry" validate:"omitempty,gte=0"`
	SellExit  *float64 `json:"sell_exit" validate:"omitempty,gte=0"`

	BorrowAnnualRatePct *float64 `json:"borrow_annual_rate_pct" validate:"omitempty,gte=0"`
	DurationDays        *int     `json:"duration_days" validate:"omitempty,gte=0"`
	BrokerageTotal      *float64 `json:"brokerage_total" validate:"omitempty,gte=0"`
	FeesTotal           *float64 `json:"fees_total" validate:"omitempty,gte=0"`
}
