package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: 1.25, B: NA()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.25,"b":null}`, string(b))

	var out struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, Number(1.25), out.A)
	assert.False(t, out.B.Defined())
}

func TestNumberFormat(t *testing.T) {
	assert.Equal(t, "N/A", NA().String())
	assert.Equal(t, "N/A", Number(math.Inf(1)).Format(2))
	assert.Equal(t, "7.01", Number(7.014).Format(2))
}

func TestSignalLegs(t *testing.T) {
	buy, sell, ok := SignalSellFirstBuySecond.Legs("PETR4.SA", "PRIO3.SA")
	require.True(t, ok)
	assert.Equal(t, "PRIO3.SA", buy)
	assert.Equal(t, "PETR4.SA", sell)

	buy, sell, ok = SignalBuyFirstSellSecond.Legs("PETR4.SA", "PRIO3.SA")
	require.True(t, ok)
	assert.Equal(t, "PETR4.SA", buy)
	assert.Equal(t, "PRIO3.SA", sell)

	_, _, ok = SignalNeutral.Legs("A", "B")
	assert.False(t, ok)
	_, _, ok = SignalUndefined.Legs("A", "B")
	assert.False(t, ok)
}

func TestSignalLabelAndText(t *testing.T) {
	assert.Equal(t, "Sell PETR4.SA / Buy PRIO3.SA", SignalSellFirstBuySecond.Label("PETR4.SA", "PRIO3.SA"))
	assert.Equal(t, "N/A", SignalUndefined.Label("A", "B"))

	b, err := json.Marshal(SignalBuyFirstSellSecond)
	require.NoError(t, err)
	assert.Equal(t, `"buy_first_sell_second"`, string(b))

	var s Signal
	require.NoError(t, json.Unmarshal([]byte(`"neutral"`), &s))
	assert.Equal(t, SignalNeutral, s)
	assert.Error(t, json.Unmarshal([]byte(`"hold"`), &s))
}

func TestAlignedSeriesSetColumn(t *testing.T) {
	a := AlignedSeriesSet{Columns: []AlignedColumn{{Symbol: "X", Closes: []float64{1}}}}
	c, ok := a.Column("X")
	assert.True(t, ok)
	assert.Equal(t, []float64{1}, c)
	_, ok = a.Column("Y")
	assert.False(t, ok)
	assert.True(t, a.Empty())
}
