package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "PairDesk/internal/domain/repository"
	xhttp "PairDesk/pkg/http"
)

// 2024-01-02 13:00 UTC and 2024-01-03 13:00 UTC, plus a bar with a null close.
const chartBody = `{"chart":{"result":[{"meta":{"symbol":"PETR4.SA","currency":"BRL","gmtoffset":-10800,
"regularMarketPrice":37.42,"regularMarketTime":1704301200},
"timestamp":[1704200400,1704286800,1704373200],
"indicators":{"quote":[{"close":[36.5,null,37.1]}]}}],"error":null}}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithAttempts(2), WithHTTPClient(xhttp.NewClient(xhttp.WithBackoff(time.Millisecond))))
}

func TestGetHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/PETR4.SA", r.URL.Path)
		assert.Equal(t, "6mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		_, _ = w.Write([]byte(chartBody))
	})

	s, err := c.GetHistory(context.Background(), "PETR4.SA", drepo.Period6mo, drepo.Interval1d)
	require.NoError(t, err)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.Points[0].Time)
	assert.Equal(t, 36.5, s.Points[0].Close)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), s.Points[1].Time)
	assert.Equal(t, "6mo", s.Period)
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})
	q, err := c.GetQuote(context.Background(), "PETR4.SA")
	require.NoError(t, err)
	assert.Equal(t, 37.42, q.Price.Float64())
	assert.Equal(t, "yahoo", q.Source)
	assert.True(t, q.Available())
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	_, err := c.GetHistory(context.Background(), "NOPE3.SA", drepo.Period1y, drepo.Interval1d)
	assert.ErrorIs(t, err, drepo.ErrNotFound)

	q, err := c.GetQuote(context.Background(), "NOPE3.SA")
	assert.ErrorIs(t, err, drepo.ErrNotFound)
	assert.False(t, q.Price.Defined())
}

func TestChartErrorPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid range"}}}`))
	})
	_, err := c.GetHistory(context.Background(), "PETR4.SA", drepo.Period1y, drepo.Interval1d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid range")
}
