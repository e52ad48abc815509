package models

import "time"

// Analysis status markers. None of these are errors: callers render what they have.
const (
	StatusOK                  = "ok"
	StatusDataUnavailable     = "data_unavailable"
	StatusNoCommonData        = "no_common_data"
	StatusInsufficientHistory = "insufficient_history"
)

// RatioAnalysis is the output of the ratio/z-score engine for one aligned pair.
type RatioAnalysis struct {
	Ratio       []Number `json:"ratio"`
	ZScore      []Number `json:"zscore"`
	LatestRatio Number   `json:"latest_ratio"`
	LatestZ     Number   `json:"latest_z"`
	Mean        Number   `json:"mean"`
	StdDev      Number   `json:"std_dev"`
	UpperZ      float64  `json:"upper_z"`
	Signal      Signal   `json:"signal"`
}

// LowerZ is the mirrored lower threshold.
func (r RatioAnalysis) LowerZ() float64 { return -r.UpperZ }

// ExportRow is one timestamp of the tabular export.
type ExportRow struct {
	Time      time.Time `json:"time"`
	First     float64   `json:"first"`
	Second    float64   `json:"second"`
	Reference Number    `json:"reference"`
	Ratio     Number    `json:"ratio"`
	ZScore    Number    `json:"zscore"`
}

// PairAnalysis is the consolidated view served to the presentation layer.
type PairAnalysis struct {
	First     string            `json:"first"`
	Second    string            `json:"second"`
	Reference string            `json:"reference,omitempty"`
	Period    string            `json:"period"`
	Interval  string            `json:"interval"`
	Timestamp time.Time         `json:"timestamp"`
	Loaded    bool              `json:"loaded"`
	Status    string            `json:"status"`
	Label     string            `json:"label"`
	Analysis  RatioAnalysis     `json:"analysis"`
	Times     []time.Time       `json:"times"`
	Rows      []ExportRow       `json:"-"`
	Quotes    map[string]Quote  `json:"quotes,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// SimulationReport is a SimulationResult with the legs and pair views attached.
type SimulationReport struct {
	First      string            `json:"first"`
	Second     string            `json:"second"`
	Signal     Signal            `json:"signal"`
	Label      string            `json:"label"`
	BuySymbol  string            `json:"buy_symbol"`
	SellSymbol string            `json:"sell_symbol"`
	RefSymbol  string            `json:"ref_symbol"`
	LotSize    int64             `json:"lot_size"`
	Costs      CostParams        `json:"costs"`
	Result     SimulationResult  `json:"result"`
	AtEntry    PairQuoteView     `json:"at_entry"`
	AtExit     PairQuoteView     `json:"at_exit"`
	Warnings   map[string]string `json:"warnings,omitempty"`
}
