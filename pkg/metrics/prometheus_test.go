package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordFetch("yahoo", "PETR4.SA")
	r.RecordFetch("yahoo", "PETR4.SA")
	r.RecordError("provider")
	r.RecordLastPrice("PETR4.SA", 37.5)
	r.RecordZScore("PETR4.SA/PRIO3.SA", -2.3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fetches.WithLabelValues("yahoo", "PETR4.SA")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("provider")))
	assert.Equal(t, 37.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("PETR4.SA")))
	assert.Equal(t, -2.3, testutil.ToFloat64(r.zscore.WithLabelValues("PETR4.SA/PRIO3.SA")))
}
