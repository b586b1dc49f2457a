package changefeed

import (
	"context"
	"sync"
)

const brokerBuffer = 256

// Broker is an in-process Publisher and Source for single-instance
// deployments and tests.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]*brokerSub
	nextID int
	closed bool
}

type brokerSub struct {
	topics map[string]bool
	ch     chan Change
	done   chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*brokerSub)}
}

// Publish fans changes out to matching subscribers. A subscriber whose
// buffer is full misses the change.
func (b *Broker) Publish(ctx context.Context, changes ...Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range changes {
		for _, sub := range b.subs {
			if !sub.topics[c.Topic] {
				continue
			}
			select {
			case sub.ch <- c:
			default:
			}
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, topics []string, handle func(Change), onStatus func(Status)) error {
	sub := &brokerSub{
		topics: topicSet(topics),
		ch:     make(chan Change, brokerBuffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		onStatus(StatusClosed)
		return errBrokerClosed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	onStatus(StatusSubscribed)
	for {
		select {
		case <-ctx.Done():
			onStatus(StatusClosed)
			return ctx.Err()
		case <-sub.done:
			onStatus(StatusChannelError)
			return errBrokerClosed
		case c := <-sub.ch:
			handle(c)
		}
	}
}

// Close ends every subscription with a channel error and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.done)
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
