package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"PairDesk/internal/domain/models"
	applogger "PairDesk/pkg/logger"
)

// SignalSink accepts signal change events.
type SignalSink interface {
	Publish(ctx context.Context, ev *models.SignalEvent) error
}

// WatchedPair is one ordered pair recomputed by the watcher.
type WatchedPair struct {
	First  string
	Second string
}

// SignalWatcher periodically recomputes the configured pairs and emits an event
// whenever a pair's signal changes.
type SignalWatcher struct {
	analyzer Analyzer
	sink     SignalSink
	pairs    []WatchedPair
	interval time.Duration
	upperZ   float64
	l        *applogger.Logger

	mu   sync.Mutex
	last map[string]models.Signal

	newID func() string
	now   func() time.Time
}

func NewSignalWatcher(analyzer Analyzer, sink SignalSink, pairs []WatchedPair, interval time.Duration, upperZ float64, l *applogger.Logger) *SignalWatcher {
	if l == nil {
		l = applogger.Nop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SignalWatcher{
		analyzer: analyzer,
		sink:     sink,
		pairs:    pairs,
		interval: interval,
		upperZ:   upperZ,
		l:        l,
		last:     make(map[string]models.Signal),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Run ticks immediately and then on every interval until ctx is done.
func (w *SignalWatcher) Run(ctx context.Context) {
	w.l.Info("signal watcher started",
		applogger.Int("pairs", len(w.pairs)),
		applogger.Duration("interval", w.interval),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.l.Info("signal watcher stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick recomputes every pair once and returns the number of events emitted.
func (w *SignalWatcher) Tick(ctx context.Context) int {
	emitted := 0
	for _, p := range w.pairs {
		if ctx.Err() != nil {
			return emitted
		}
		res, err := w.analyzer.Analyze(ctx, models.AnalysisRequest{
			First:       p.First,
			Second:      p.Second,
			UpperZ:      w.upperZ,
			NoReference: true,
		})
		if err != nil {
			w.l.Error("watch analyze failed",
				applogger.String("pair", p.First+"/"+p.Second),
				applogger.Error(err),
			)
			continue
		}

		key := p.First + "/" + p.Second
		if res.Status == models.StatusDataUnavailable {
			// a provider outage is not a signal change; keep the last state
			w.l.Warn("watch data unavailable", applogger.String("pair", key))
			continue
		}
		w.mu.Lock()
		prev, seen := w.last[key]
		if !seen {
			prev = models.SignalUndefined
		}
		changed := res.Analysis.Signal != prev
		w.last[key] = res.Analysis.Signal
		w.mu.Unlock()
		if !changed {
			continue
		}

		ev := &models.SignalEvent{
			ID:          w.newID(),
			First:       p.First,
			Second:      p.Second,
			Signal:      res.Analysis.Signal,
			Previous:    prev,
			Label:       res.Label,
			LatestZ:     res.Analysis.LatestZ,
			LatestRatio: res.Analysis.LatestRatio,
			UpperZ:      res.Analysis.UpperZ,
			Timestamp:   w.now().UTC(),
		}
		if err := w.sink.Publish(ctx, ev); err != nil {
			w.l.Warn("signal event not delivered",
				applogger.String("pair", key),
				applogger.String("signal", ev.Signal.String()),
				applogger.Error(err),
			)
			continue
		}
		emitted++
		w.l.Info("signal changed",
			applogger.String("pair", key),
			applogger.String("from", prev.String()),
			applogger.String("to", ev.Signal.String()),
		)
	}
	return emitted
}

// Current returns the last observed signal of a pair.
func (w *SignalWatcher) Current(first, second string) (models.Signal, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.last[first+"/"+second]
	return s, ok
}
