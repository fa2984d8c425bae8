package events

import (
	"context"

	"github.com/trezcool/engagement/core"
)

// LogPublisher writes audit events to the application logger. Used when no NATS server is configured.
type LogPublisher struct {
	logger core.Logger
}

var _ core.EventPublisher = (*LogPublisher)(nil) // interface compliance check

func NewLogPublisher(logger core.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, topic string, event interface{}) error {
	p.logger.Info(topic, map[string]interface{}{"event": event})
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// NewPublisher returns a NATS publisher when conf names a NATS server, a LogPublisher otherwise.
func NewPublisher(conf *core.Config, logger core.Logger) (core.EventPublisher, error) {
	if conf.NATSURL == "" {
		return NewLogPublisher(logger), nil
	}
	return NewNATSPublisher(conf.NATSURL)
}
