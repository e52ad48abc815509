package repository

import (
	"context"
	"errors"

	"PairDesk/internal/domain/models"
)

// ErrNotFound is returned by providers that have no data for a symbol.
var ErrNotFound = errors.New("no data for symbol")

// PriceProvider fetches closing history and latest quotes for a symbol.
type PriceProvider interface {
	GetHistory(ctx context.Context, symbol string, period Period, interval Interval) (models.PriceSeries, error)
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// QuoteStream is a live source of last-trade prices.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols ...string) error
	LastPrice(symbol string) (models.Quote, bool)
	IsConnected() bool
	Close() error
}

// PriceStore archives fetched closes and serves them back when the upstream is down.
type PriceStore interface {
	Init(ctx context.Context) error
	StoreSeries(ctx context.Context, s models.PriceSeries) error
	LoadSeries(ctx context.Context, symbol string, period Period, interval Interval) (models.PriceSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher emits signal change events.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// SignalBatchPublisher is implemented by publishers that can write a backlog in one call.
type SignalBatchPublisher interface {
	PublishSignals(ctx context.Context, evs []*models.SignalEvent) error
}

type Metrics interface {
	RecordFetch(source, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordZScore(pair string, z float64)
}
