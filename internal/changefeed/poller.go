package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cursor is a position in a topic: the change time, with the row ID breaking
// ties between rows changed at the same instant.
type Cursor struct {
	At    time.Time
	RowID string
}

// Before reports whether the change sits after the cursor.
func (c Cursor) Before(change Change) bool {
	if change.At.Equal(c.At) {
		return change.RowID > c.RowID
	}
	return change.At.After(c.At)
}

// Probe reads the changes on a topic strictly after the cursor, ordered by
// time then row ID.
type Probe interface {
	ChangesSince(ctx context.Context, topic string, after Cursor, limit int) ([]Change, error)
}

const pollBatch = 200

// Poller is the polling backend: it asks a Probe for changes after a per-topic
// cursor and reads full batches until the topic is drained.
type Poller struct {
	probe  Probe
	topics []string
	batch  int

	mu      sync.Mutex
	cursors map[string]Cursor
}

// NewPoller creates a poller that reports changes from start onwards.
func NewPoller(probe Probe, topics []string, start time.Time) *Poller {
	cursors := make(map[string]Cursor, len(topics))
	for _, t := range topics {
		cursors[t] = Cursor{At: start}
	}
	return &Poller{probe: probe, topics: topics, batch: pollBatch, cursors: cursors}
}

// Poll returns the changes since the last poll on every topic.
func (p *Poller) Poll(ctx context.Context) ([]Change, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var all []Change
	for _, topic := range p.topics {
		for {
			changes, err := p.probe.ChangesSince(ctx, topic, p.cursors[topic], p.batch)
			if err != nil {
				return all, fmt.Errorf("poll %s: %w", topic, err)
			}
			for _, c := range changes {
				if p.cursors[topic].Before(c) {
					p.cursors[topic] = Cursor{At: c.At, RowID: c.RowID}
				}
			}
			all = append(all, changes...)
			if len(changes) < p.batch {
				break
			}
		}
	}
	return all, nil
}
