package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is a float64 that may be undefined (NaN or ±Inf).
// Undefined values encode as JSON null and render as "N/A".
type Number float64

// NA returns the undefined Number.
func NA() Number { return Number(math.NaN()) }

// Defined reports whether n holds a finite value.
func (n Number) Defined() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float64 returns the raw value (NaN when undefined).
func (n Number) Float64() float64 { return float64(n) }

// Format renders n with prec decimals, or "N/A".
func (n Number) Format(prec int) string {
	if !n.Defined() {
		return "N/A"
	}
	return strconv.FormatFloat(float64(n), 'f', prec, 64)
}

func (n Number) String() string { return n.Format(4) }

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(n))
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*n = NA()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Numbers converts raw floats, keeping NaN as undefined.
func Numbers(xs []float64) []Number {
	out := make([]Number, len(xs))
	for i, x := range xs {
		out[i] = Number(x)
	}
	return out
}
