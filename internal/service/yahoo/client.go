// Package yahoo fetches daily closes and latest prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	xhttp "PairDesk/pkg/http"
	"PairDesk/pkg/util"
)

const source = "yahoo"

// Client implements PriceProvider on top of the chart endpoint.
type Client struct {
	baseURL  string
	attempts int
	client   *xhttp.Client
}

// Option configures Client.
type Option func(*Client)

// WithAttempts sets the number of tries per request.
func WithAttempts(n int) Option {
	return func(c *Client) { c.attempts = n }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New builds a chart API client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: 3,
		client:   xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		Currency           string   `json:"currency"`
		GMTOffset          int      `json:"gmtoffset"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		RegularMarketTime  int64    `json:"regularMarketTime"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *Client) chart(ctx context.Context, symbol, rng, interval string) (*chartResult, error) {
	var resp chartResponse
	err := c.client.SendAndParseWithRetry(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"range":    {rng},
			"interval": {interval},
		},
	}, &resp, c.attempts)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("chart %s: %w", symbol, drepo.ErrNotFound)
		}
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("chart %s: %w", symbol, drepo.ErrNotFound)
		}
		return nil, fmt.Errorf("chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, drepo.ErrNotFound)
	}
	return &resp.Chart.Result[0], nil
}

// GetHistory returns the closes of symbol over period, oldest first. Bars whose close
// is missing or not positive are skipped. Daily and coarser bars are stamped with
// their exchange-local date at UTC midnight so series from different exchanges align.
func (c *Client) GetHistory(ctx context.Context, symbol string, period drepo.Period, interval drepo.Interval) (models.PriceSeries, error) {
	res, err := c.chart(ctx, symbol, string(period), string(interval))
	if err != nil {
		return models.PriceSeries{}, err
	}

	out := models.PriceSeries{Symbol: symbol, Period: string(period), Interval: string(interval)}
	var closes []*float64
	if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		t := util.SessionDate(ts, res.Meta.GMTOffset)
		if n := len(out.Points); n > 0 && !out.Points[n-1].Time.Before(t) {
			// same session reported twice; keep the later bar
			if out.Points[n-1].Time.Equal(t) {
				out.Points[n-1].Close = *closes[i]
			}
			continue
		}
		out.Points = append(out.Points, models.PricePoint{Time: t, Close: *closes[i]})
	}
	return out, nil
}

// GetQuote returns the regular market price reported in the chart metadata.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	res, err := c.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return models.Quote{Symbol: symbol, Price: models.NA()}, err
	}
	q := models.Quote{Symbol: symbol, Price: models.NA(), Source: source}
	if p := res.Meta.RegularMarketPrice; p != nil {
		q.Price = models.Number(*p)
	}
	if res.Meta.RegularMarketTime > 0 {
		q.Time = time.Unix(res.Meta.RegularMarketTime, 0).UTC()
	}
	if !q.Available() {
		return q, fmt.Errorf("quote %s: %w", symbol, drepo.ErrNotFound)
	}
	return q, nil
}

var _ drepo.PriceProvider = (*Client)(nil)
