package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultSeenCapacity = 1024
)

type WatcherOptions struct {
	PollInterval time.Duration
	// InitialBackoff is the first delay before resubscribing.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between resubscription attempts.
	MaxBackoff time.Duration
	// SeenCapacity bounds how many change IDs are remembered for dedupe.
	SeenCapacity int
}

// Watcher is the single change notifier callers consume. It runs the push
// source and polls while push is not subscribed. Every change ID reaches the
// handler at most once while it is remembered.
type Watcher struct {
	source Source
	poller *Poller
	topics []string
	opts   WatcherOptions
	logger *zap.Logger

	mu     sync.RWMutex
	status Status
	seen   *seenSet
}

func NewWatcher(source Source, poller *Poller, topics []string, opts WatcherOptions, logger *zap.Logger) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = time.Minute
	}
	if opts.SeenCapacity <= 0 {
		opts.SeenCapacity = defaultSeenCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		source: source,
		poller: poller,
		topics: topics,
		opts:   opts,
		logger: logger,
		status: StatusConnecting,
		seen:   newSeenSet(opts.SeenCapacity),
	}
}

// Status is the current push status.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Run delivers changes to handle until ctx is cancelled. handle is always
// called from the Run goroutine.
func (w *Watcher) Run(ctx context.Context, handle func(Change)) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pushed := make(chan Change, brokerBuffer)
	statuses := make(chan Status, 16)

	if w.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.subscribeLoop(ctx, pushed, statuses)
		}()
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-pushed:
			w.deliver(c, handle)
		case s := <-statuses:
			was := w.setStatus(s)
			if s == StatusSubscribed && was != StatusSubscribed {
				// catch up on anything missed while push was down
				w.poll(ctx, handle)
			}
		case <-ticker.C:
			if w.Status() != StatusSubscribed {
				w.poll(ctx, handle)
			}
		}
	}
}

func (w *Watcher) subscribeLoop(ctx context.Context, pushed chan<- Change, statuses chan<- Status) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.InitialBackoff
	b.MaxInterval = w.opts.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	send := func(s Status) {
		if s == StatusSubscribed {
			b.Reset()
		}
		select {
		case statuses <- s:
		case <-ctx.Done():
		}
	}
	handle := func(c Change) {
		select {
		case pushed <- c:
		case <-ctx.Done():
		}
	}

	for {
		err := w.source.Subscribe(ctx, w.topics, handle, send)
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			wait = b.MaxInterval
		}
		w.logger.Warn("change feed push unavailable, polling until resubscribed",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)
		send(StatusChannelError)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (w *Watcher) poll(ctx context.Context, handle func(Change)) {
	if w.poller == nil {
		return
	}
	changes, err := w.poller.Poll(ctx)
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("change feed poll failed", zap.Error(err))
	}
	for _, c := range changes {
		w.deliver(c, handle)
	}
}

func (w *Watcher) deliver(c Change, handle func(Change)) {
	if !w.seen.add(c.ID) {
		return
	}
	handle(c)
}

func (w *Watcher) setStatus(s Status) Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	was := w.status
	w.status = s
	return was
}

// seenSet remembers the most recent change IDs, evicting the oldest.
type seenSet struct {
	ids   map[string]struct{}
	order []string
	next  int
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		ids:   make(map[string]struct{}, capacity),
		order: make([]string, capacity),
	}
}

// add records id and reports whether it was new.
func (s *seenSet) add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	if old := s.order[s.next]; old != "" {
		delete(s.ids, old)
	}
	s.order[s.next] = id
	s.next = (s.next + 1) % len(s.order)
	s.ids[id] = struct{}{}
	return true
}
