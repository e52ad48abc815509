package repository

import (
	"context"
	"fmt"
	"time"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	"PairDesk/internal/service/cache"
	applogger "PairDesk/pkg/logger"
)

// CachedProvider chains the price sources: live stream (quotes only), cache, upstream
// provider, and finally the archive when the upstream fails. Successful upstream
// histories are written through to the archive.
type CachedProvider struct {
	upstream drepo.PriceProvider
	cache    cache.BytesCache
	stream   drepo.QuoteStream
	store    drepo.PriceStore
	metrics  drepo.Metrics
	l        *applogger.Logger

	historyTTL  time.Duration
	quoteTTL    time.Duration
	maxQuoteAge time.Duration
	now         func() time.Time
}

// CachedProviderOption configures CachedProvider.
type CachedProviderOption func(*CachedProvider)

// WithQuoteStream serves quotes from a live stream while they are fresher than maxAge.
func WithQuoteStream(s drepo.QuoteStream, maxAge time.Duration) CachedProviderOption {
	return func(p *CachedProvider) {
		p.stream = s
		p.maxQuoteAge = maxAge
	}
}

// WithPriceStore enables write-through archiving and read fallback.
func WithPriceStore(s drepo.PriceStore) CachedProviderOption {
	return func(p *CachedProvider) { p.store = s }
}

// WithTTLs sets cache lifetimes for histories and quotes.
func WithTTLs(history, quote time.Duration) CachedProviderOption {
	return func(p *CachedProvider) {
		p.historyTTL = history
		p.quoteTTL = quote
	}
}

// WithProviderMetrics records fetches per source.
func WithProviderMetrics(m drepo.Metrics) CachedProviderOption {
	return func(p *CachedProvider) { p.metrics = m }
}

// WithProviderLogger sets the logger.
func WithProviderLogger(l *applogger.Logger) CachedProviderOption {
	return func(p *CachedProvider) { p.l = l }
}

func NewCachedProvider(upstream drepo.PriceProvider, c cache.BytesCache, opts ...CachedProviderOption) *CachedProvider {
	p := &CachedProvider{
		upstream:   upstream,
		cache:      c,
		l:          applogger.Nop(),
		historyTTL: time.Hour,
		quoteTTL:   15 * time.Second,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func historyKey(symbol string, period drepo.Period, interval drepo.Interval) string {
	return fmt.Sprintf("hist:%s:%s:%s", symbol, period, interval)
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func (p *CachedProvider) GetHistory(ctx context.Context, symbol string, period drepo.Period, interval drepo.Interval) (models.PriceSeries, error) {
	start := p.now()
	key := historyKey(symbol, period, interval)

	var cached models.PriceSeries
	if p.cache != nil {
		ok, err := cache.GetJSON(ctx, p.cache, key, &cached)
		if err != nil {
			p.l.Warn("history cache read failed", applogger.String("key", key), applogger.Error(err))
		} else if ok {
			p.recordFetch("cache", symbol)
			return cached, nil
		}
	}

	s, err := p.upstream.GetHistory(ctx, symbol, period, interval)
	if err != nil {
		p.recordError("provider_history")
		if fallback, ok := p.archived(ctx, symbol, period, interval); ok {
			p.l.Warn("serving archived history",
				applogger.String("symbol", symbol),
				applogger.Int("points", fallback.Len()),
				applogger.Error(err),
			)
			return fallback, nil
		}
		return models.PriceSeries{Symbol: symbol}, err
	}
	p.recordFetch("upstream", symbol)
	p.recordLatency("provider_history", start)

	if p.cache != nil && !s.Empty() {
		if err := cache.SetJSON(ctx, p.cache, key, s, p.historyTTL); err != nil {
			p.l.Warn("history cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	if p.store != nil && !s.Empty() {
		if err := p.store.StoreSeries(ctx, s); err != nil {
			p.recordError("archive_write")
			p.l.Warn("archive write failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return s, nil
}

func (p *CachedProvider) archived(ctx context.Context, symbol string, period drepo.Period, interval drepo.Interval) (models.PriceSeries, bool) {
	if p.store == nil {
		return models.PriceSeries{}, false
	}
	s, err := p.store.LoadSeries(ctx, symbol, period, interval)
	if err != nil {
		p.recordError("archive_read")
		p.l.Warn("archive read failed", applogger.String("symbol", symbol), applogger.Error(err))
		return models.PriceSeries{}, false
	}
	if s.Empty() {
		return s, false
	}
	p.recordFetch("archive", symbol)
	return s, true
}

func (p *CachedProvider) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if p.stream != nil {
		if q, ok := p.stream.LastPrice(symbol); ok && q.Available() && p.now().Sub(q.Time) <= p.maxQuoteAge {
			p.recordFetch("stream", symbol)
			p.recordPrice(q)
			return q, nil
		}
	}

	key := quoteKey(symbol)
	var cached models.Quote
	if p.cache != nil {
		if ok, err := cache.GetJSON(ctx, p.cache, key, &cached); err == nil && ok && cached.Available() {
			p.recordFetch("cache", symbol)
			return cached, nil
		}
	}

	q, err := p.upstream.GetQuote(ctx, symbol)
	if err != nil {
		p.recordError("provider_quote")
		return models.Quote{Symbol: symbol, Price: models.NA()}, err
	}
	p.recordFetch("upstream", symbol)
	p.recordPrice(q)
	if p.cache != nil {
		if err := cache.SetJSON(ctx, p.cache, key, q, p.quoteTTL); err != nil {
			p.l.Warn("quote cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	return q, nil
}

func (p *CachedProvider) recordFetch(source, symbol string) {
	if p.metrics != nil {
		p.metrics.RecordFetch(source, symbol)
	}
}

func (p *CachedProvider) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

func (p *CachedProvider) recordPrice(q models.Quote) {
	if p.metrics != nil && q.Available() {
		p.metrics.RecordLastPrice(q.Symbol, q.Price.Float64())
	}
}

func (p *CachedProvider) recordLatency(op string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordLatency(op, p.now().Sub(start).Seconds())
	}
}

var _ drepo.PriceProvider = (*CachedProvider)(nil)
