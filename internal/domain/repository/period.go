package repository

import "time"

// Period is a history lookback range.
type Period string

const (
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
)

// Interval is the bar resolution of a history.
type Interval string

const (
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

// IsValidPeriod returns true if p is a supported period.
func IsValidPeriod(p Period) bool {
	switch p {
	case Period1mo, Period3mo, Period6mo, Period1y, Period2y, Period5y:
		return true
	default:
		return false
	}
}

// DefaultPeriod returns the default period.
func DefaultPeriod() Period { return Period1y }

// NormalizePeriod converts raw string to a valid period (or default).
func NormalizePeriod(s string) Period {
	p := Period(s)
	if IsValidPeriod(p) {
		return p
	}
	return DefaultPeriod()
}

// IsValidInterval returns true if iv is a supported interval.
func IsValidInterval(iv Interval) bool {
	switch iv {
	case Interval1d, Interval1wk, Interval1mo:
		return true
	default:
		return false
	}
}

// NormalizeInterval converts raw string to a valid interval (or 1d).
func NormalizeInterval(s string) Interval {
	iv := Interval(s)
	if IsValidInterval(iv) {
		return iv
	}
	return Interval1d
}

// Start returns the first instant covered by p when looking back from now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case Period1mo:
		return now.AddDate(0, -1, 0)
	case Period3mo:
		return now.AddDate(0, -3, 0)
	case Period6mo:
		return now.AddDate(0, -6, 0)
	case Period2y:
		return now.AddDate(-2, 0, 0)
	case Period5y:
		return now.AddDate(-5, 0, 0)
	default:
		return now.AddDate(-1, 0, 0)
	}
}
