package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PairDesk/internal/domain/models"
	domrepo "PairDesk/internal/domain/repository"
)

// SignalPipeline sits between the signal watcher and the event publisher.
// It validates, throttles per pair, and buffers events when downstream is unavailable.
type SignalPipeline struct {
	pub      domrepo.SignalPublisher
	metrics  domrepo.Metrics
	minGap   time.Duration
	bufSize  int
	bufCh    chan *models.SignalEvent
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSent map[string]sentMark // per-pair last accepted event
	backoff  time.Duration
	now      func() time.Time
}

const maxFlushBatch = 64

type sentMark struct {
	at     time.Time
	signal models.Signal
}

type PipelineOption func(*SignalPipeline)

// WithMinInterval sets the minimum gap between two events of the same pair and signal.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d >= 0 {
			p.minGap = d
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryBackoff sets the initial retry delay for buffered events.
func WithRetryBackoff(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d > 0 {
			p.backoff = d
		}
	}
}

// NewSignalPipeline creates a new pipeline.
func NewSignalPipeline(pub domrepo.SignalPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *SignalPipeline {
	p := &SignalPipeline{
		pub:      pub,
		metrics:  metrics,
		minGap:   time.Minute,
		bufSize:  256,
		stopCh:   make(chan struct{}),
		lastSent: make(map[string]sentMark),
		backoff:  50 * time.Millisecond,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.SignalEvent, p.bufSize)
	return p
}

// Start launches background flushing of buffered events. A stopped pipeline can be started again.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.flushLoop(ctx, stop)
}

func (p *SignalPipeline) flushLoop(ctx context.Context, stop <-chan struct{}) {
	backoff := p.backoff
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case ev := <-p.bufCh:
			batch := p.drain(ev)
			if len(batch) == 0 {
				continue
			}
			unsent, err := p.flush(ctx, batch)
			if err == nil {
				backoff = p.backoff
				continue
			}
			// exponential backoff with cap
			if backoff < 2*time.Second {
				backoff *= 2
			}
			p.recordError("pipeline_flush")
			select {
			case <-time.After(backoff):
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
			// requeue if space; drop otherwise
			for _, ev := range unsent {
				select {
				case p.bufCh <- ev:
				default:
					p.recordError("pipeline_buffer_drop")
				}
			}
		}
	}
}

// drain collects first plus whatever else is already buffered, up to maxFlushBatch.
func (p *SignalPipeline) drain(first *models.SignalEvent) []*models.SignalEvent {
	batch := make([]*models.SignalEvent, 0, 1)
	if first != nil {
		batch = append(batch, first)
	}
	for len(batch) < maxFlushBatch {
		select {
		case ev := <-p.bufCh:
			if ev != nil {
				batch = append(batch, ev)
			}
		default:
			return batch
		}
	}
	return batch
}

// flush replays a backlog and returns the events that were not delivered.
func (p *SignalPipeline) flush(ctx context.Context, batch []*models.SignalEvent) ([]*models.SignalEvent, error) {
	if bp, ok := p.pub.(domrepo.SignalBatchPublisher); ok && len(batch) > 1 {
		if err := bp.PublishSignals(ctx, batch); err != nil {
			return batch, err
		}
		return nil, nil
	}
	for i, ev := range batch {
		if err := p.pub.PublishSignal(ctx, ev); err != nil {
			return batch[i:], err
		}
	}
	return nil, nil
}

// Stop stops the background flushing.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Buffered returns the number of events waiting for retry.
func (p *SignalPipeline) Buffered() int { return len(p.bufCh) }

// Publish validates, throttles, and forwards an event, buffering it on downstream errors.
func (p *SignalPipeline) Publish(ctx context.Context, ev *models.SignalEvent) error {
	start := p.now()
	if err := validateEvent(ev); err != nil {
		p.recordError("pipeline_validate")
		return err
	}
	if !p.allow(ev, start) {
		// throttled; record and drop silently
		p.recordError("pipeline_throttle")
		return nil
	}

	if err := p.pub.PublishSignal(ctx, ev); err != nil {
		p.recordError("pipeline_publish")
		// buffer non-blocking
		select {
		case p.bufCh <- ev:
		default:
			p.recordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
	}
	return nil
}

func validateEvent(ev *models.SignalEvent) error {
	if ev == nil {
		return fmt.Errorf("event nil")
	}
	if ev.ID == "" {
		return fmt.Errorf("event id empty")
	}
	if ev.First == "" || ev.Second == "" {
		return fmt.Errorf("pair incomplete")
	}
	if ev.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	return nil
}

// allow lets a changed signal through immediately and repeats of the same
// signal at most once per minGap.
func (p *SignalPipeline) allow(ev *models.SignalEvent, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := ev.PairKey()
	last, ok := p.lastSent[key]
	if ok && last.signal == ev.Signal && now.Sub(last.at) < p.minGap {
		return false
	}
	p.lastSent[key] = sentMark{at: now, signal: ev.Signal}
	return true
}

func (p *SignalPipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
