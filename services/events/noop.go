package events

import (
	"context"

	"github.com/trezcool/engagement/core"
)

// NoopPublisher drops every event.
type NoopPublisher struct{}

var _ core.EventPublisher = (*NoopPublisher)(nil) // interface compliance check

func (*NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (*NoopPublisher) Close() error                                       { return nil }
