package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PairDesk/internal/domain/models"
)

type flakyPublisher struct {
	mu       sync.Mutex
	failures int
	got      []*models.SignalEvent
}

func (f *flakyPublisher) PublishSignal(_ context.Context, ev *models.SignalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker down")
	}
	f.got = append(f.got, ev)
	return nil
}

func (f *flakyPublisher) Close() error { return nil }

func (f *flakyPublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func event(id string, s models.Signal) *models.SignalEvent {
	return &models.SignalEvent{
		ID:        id,
		First:     "PETR4.SA",
		Second:    "PRIO3.SA",
		Signal:    s,
		Timestamp: time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
	}
}

func TestPipelineValidates(t *testing.T) {
	p := NewSignalPipeline(&flakyPublisher{}, nil)
	assert.Error(t, p.Publish(context.Background(), nil))
	assert.Error(t, p.Publish(context.Background(), &models.SignalEvent{ID: "x"}))
}

func TestPipelineThrottlesRepeats(t *testing.T) {
	now := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	pub := &flakyPublisher{}
	p := NewSignalPipeline(pub, nil, WithMinInterval(time.Minute))
	p.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, event("1", models.SignalSellFirstBuySecond)))
	require.NoError(t, p.Publish(ctx, event("2", models.SignalSellFirstBuySecond)))
	assert.Equal(t, 1, pub.count(), "repeat within the gap is dropped")

	require.NoError(t, p.Publish(ctx, event("3", models.SignalNeutral)))
	assert.Equal(t, 2, pub.count(), "a changed signal passes immediately")

	now = now.Add(2 * time.Minute)
	require.NoError(t, p.Publish(ctx, event("4", models.SignalNeutral)))
	assert.Equal(t, 3, pub.count())
}

func TestPipelineBuffersAndRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	p := NewSignalPipeline(pub, nil, WithRetryBackoff(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	err := p.Publish(ctx, event("1", models.SignalBuyFirstSellSecond))
	assert.Error(t, err)

	assert.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, p.Buffered())
}

type batchPublisher struct {
	mu      sync.Mutex
	batches [][]*models.SignalEvent
}

func (b *batchPublisher) PublishSignal(context.Context, *models.SignalEvent) error {
	return errors.New("broker down")
}

func (b *batchPublisher) PublishSignals(_ context.Context, evs []*models.SignalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, evs)
	return nil
}

func (b *batchPublisher) Close() error { return nil }

func (b *batchPublisher) sizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, 0, len(b.batches))
	for _, evs := range b.batches {
		out = append(out, len(evs))
	}
	return out
}

func TestPipelineReplaysBacklogAsBatch(t *testing.T) {
	pub := &batchPublisher{}
	p := NewSignalPipeline(pub, nil, WithRetryBackoff(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, p.Publish(ctx, event("1", models.SignalBuyFirstSellSecond)))
	assert.Error(t, p.Publish(ctx, event("2", models.SignalNeutral)))
	require.Equal(t, 2, p.Buffered())

	p.Start(ctx)
	defer p.Stop()

	assert.Eventually(t, func() bool { return len(pub.sizes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{2}, pub.sizes())
	assert.Equal(t, 0, p.Buffered())
}

func TestPipelineRestartsAfterStop(t *testing.T) {
	pub := &flakyPublisher{failures: 1}
	p := NewSignalPipeline(pub, nil, WithRetryBackoff(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	p.Stop()
	p.Stop()

	assert.Error(t, p.Publish(ctx, event("1", models.SignalBuyFirstSellSecond)))
	p.Start(ctx)
	defer p.Stop()

	assert.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}
