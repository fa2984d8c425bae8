package events

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/engagement/core"
)

type Record struct {
	Topic string
	Event interface{}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

var _ core.EventPublisher = (*Recorder)(nil) // interface compliance check

func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes the following publishes fail with err. A nil err restores publishing.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, topic string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return errors.Wrapf(r.err, "publishing %s", topic)
	}
	r.records = append(r.records, Record{Topic: topic, Event: event})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Records returns a copy of the published events, optionally limited to topic.
func (r *Recorder) Records(topic ...string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if len(topic) == 0 || rec.Topic == topic[0] {
			records = append(records, rec)
		}
	}
	return records
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
