package models

import (
	"fmt"
	"time"
)

// Signal is the trading decision for an ordered pair (first, second).
type Signal int

const (
	SignalUndefined Signal = iota
	SignalNeutral
	// SignalSellFirstBuySecond: the ratio is stretched above its mean, first leg is expensive.
	SignalSellFirstBuySecond
	// SignalBuyFirstSellSecond: the ratio is stretched below its mean, first leg is cheap.
	SignalBuyFirstSellSecond
)

var signalNames = map[Signal]string{
	SignalUndefined:          "undefined",
	SignalNeutral:            "neutral",
	SignalSellFirstBuySecond: "sell_first_buy_second",
	SignalBuyFirstSellSecond: "buy_first_sell_second",
}

func (s Signal) String() string {
	if n, ok := signalNames[s]; ok {
		return n
	}
	return fmt.Sprintf("signal(%d)", int(s))
}

// ParseSignal parses the wire name of a signal.
func ParseSignal(v string) (Signal, error) {
	for s, n := range signalNames {
		if n == v {
			return s, nil
		}
	}
	return SignalUndefined, fmt.Errorf("unknown signal %q", v)
}

func (s Signal) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signal) UnmarshalText(b []byte) error {
	v, err := ParseSignal(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Actionable reports whether the signal names a buy leg and a sell leg.
func (s Signal) Actionable() bool {
	return s == SignalSellFirstBuySecond || s == SignalBuyFirstSellSecond
}

// Legs resolves which symbol to buy and which to sell (borrow).
func (s Signal) Legs(first, second string) (buy, sell string, ok bool) {
	switch s {
	case SignalSellFirstBuySecond:
		return second, first, true
	case SignalBuyFirstSellSecond:
		return first, second, true
	default:
		return "", "", false
	}
}

// Label is the display text for the signal on the given pair.
func (s Signal) Label(first, second string) string {
	switch s {
	case SignalSellFirstBuySecond:
		return fmt.Sprintf("Sell %s / Buy %s", first, second)
	case SignalBuyFirstSellSecond:
		return fmt.Sprintf("Buy %s / Sell %s", first, second)
	case SignalNeutral:
		return "Neutral"
	default:
		return "N/A"
	}
}

// SignalEvent is emitted when a watched pair changes signal.
type SignalEvent struct {
	ID          string    `json:"id"`
	First       string    `json:"first"`
	Second      string    `json:"second"`
	Signal      Signal    `json:"signal"`
	Previous    Signal    `json:"previous"`
	Label       string    `json:"label"`
	LatestZ     Number    `json:"latest_z"`
	LatestRatio Number    `json:"latest_ratio"`
	UpperZ      float64   `json:"upper_z"`
	Timestamp   time.Time `json:"timestamp"`
}

// PairKey identifies an ordered pair.
func (e SignalEvent) PairKey() string { return e.First + "/" + e.Second }
