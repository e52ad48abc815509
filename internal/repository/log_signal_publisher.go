package repository

import (
	"context"
	"fmt"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	applogger "PairDesk/pkg/logger"
)

// LogSignalPublisher writes signal events to the application log. Used when Kafka is disabled.
type LogSignalPublisher struct {
	l *applogger.Logger
}

func NewLogSignalPublisher(l *applogger.Logger) *LogSignalPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogSignalPublisher{l: l}
}

func (p *LogSignalPublisher) PublishSignal(_ context.Context, ev *models.SignalEvent) error {
	if ev == nil {
		return fmt.Errorf("nil signal event")
	}
	p.l.Info("signal event",
		applogger.String("id", ev.ID),
		applogger.String("pair", ev.PairKey()),
		applogger.String("signal", ev.Signal.String()),
		applogger.String("previous", ev.Previous.String()),
		applogger.String("label", ev.Label),
		applogger.Float64("latest_z", ev.LatestZ.Float64()),
	)
	return nil
}

func (p *LogSignalPublisher) Close() error { return nil }

var _ drepo.SignalPublisher = (*LogSignalPublisher)(nil)
