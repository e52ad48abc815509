package models

import "time"

// PricePoint is one closing price observed at Time.
type PricePoint struct {
	Time  time.Time `json:"t"`
	Close float64   `json:"c"`
}

// PriceSeries holds one symbol's closes for a query period, ascending by time.
type PriceSeries struct {
	Symbol   string       `json:"symbol"`
	Period   string       `json:"period,omitempty"`
	Interval string       `json:"interval,omitempty"`
	Points   []PricePoint `json:"points"`
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.Points) }

// Empty reports whether the series has no points.
func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol string    `json:"symbol"`
	Price  Number    `json:"price"`
	Time   time.Time `json:"time"`
	Source string    `json:"source,omitempty"`
}

// Available reports whether the quote carries a usable price.
func (q Quote) Available() bool { return q.Price.Defined() && q.Price > 0 }

// AlignedColumn is one input series restricted to the common timestamps.
type AlignedColumn struct {
	Symbol string
	Closes []float64
}

// AlignedSeriesSet is the intersection of several price series.
// Every column has len(Times) values in the same order as Times.
type AlignedSeriesSet struct {
	Times   []time.Time
	Columns []AlignedColumn
}

// Len returns the number of common timestamps.
func (a AlignedSeriesSet) Len() int { return len(a.Times) }

// Empty reports the "no common data" state.
func (a AlignedSeriesSet) Empty() bool { return len(a.Times) == 0 }

// Column returns the restricted closes for symbol.
func (a AlignedSeriesSet) Column(symbol string) ([]float64, bool) {
	for _, c := range a.Columns {
		if c.Symbol == symbol {
			return c.Closes, true
		}
	}
	return nil, false
}
