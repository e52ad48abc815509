package repository

import (
	"context"
	"fmt"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	"PairDesk/pkg/kafka"
)

// keyedPublisher is the subset of the Kafka producer used here.
type keyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []kafka.Message) error
	Close() error
}

// KafkaSignalPublisher writes signal events keyed by pair so one pair stays ordered.
type KafkaSignalPublisher struct {
	producer keyedPublisher
	topic    string
}

func NewKafkaSignalPublisher(producer keyedPublisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, ev *models.SignalEvent) error {
	if ev == nil {
		return fmt.Errorf("nil signal event")
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.PairKey()), ev); err != nil {
		return fmt.Errorf("publish signal %s: %w", ev.PairKey(), err)
	}
	return nil
}

// PublishSignals writes a backlog of events in a single producer call.
func (p *KafkaSignalPublisher) PublishSignals(ctx context.Context, evs []*models.SignalEvent) error {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.PairKey()), Value: ev})
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish %d signals: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ drepo.SignalPublisher      = (*KafkaSignalPublisher)(nil)
	_ drepo.SignalBatchPublisher = (*KafkaSignalPublisher)(nil)
)
