// Package broker is the event-scoped subscription registry: a map from
// event ID to a set of subscriber callbacks, with a single writer path
// pushing every durable commit through it. It replaces any hidden SDK
// listener state with an injectable, testable component.
package broker

import (
	"context"
	"log/slog"
	"sync"

	"weddingmemories/internal/domain"
)

// Broker implements domain.FeedBroker. All state is in-process; snapshots
// come from the injected loader, and an optional bus receives every change
// for cross-process consumers.
type Broker struct {
	loader domain.SnapshotLoader
	bus    domain.ChangeBus
	logger *slog.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

// feed holds one event's subscribers. Its mutex serializes Commit and
// Subscribe for the event, which is what makes a new subscriber's snapshot
// gap-free and duplicate-free with respect to concurrent commits.
type feed struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// subscriber wraps one callback. Its mutex makes delivery and unsubscribe
// mutually exclusive: once Unsubscribe returns, fn never runs again.
type subscriber struct {
	mu     sync.Mutex
	fn     func(domain.ChangeEvent)
	closed bool
}

func (s *subscriber) deliver(change domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.fn(change)
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// New returns a Broker. bus may be nil.
func New(loader domain.SnapshotLoader, bus domain.ChangeBus, logger *slog.Logger) *Broker {
	return &Broker{
		loader: loader,
		bus:    bus,
		logger: logger,
		feeds:  make(map[string]*feed),
	}
}

func (b *Broker) feedFor(eventID string) *feed {
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.feeds[eventID]
	if !ok {
		f = &feed{subs: make(map[*subscriber]struct{})}
		b.feeds[eventID] = f
	}
	return f
}

// Subscribe registers fn and returns the initial snapshot plus an
// idempotent unsubscribe. The snapshot is loaded while holding the event's
// feed lock, so every change is either in the snapshot or delivered to fn,
// never both and never neither. fn must not call the returned unsubscribe
// from within itself.
func (b *Broker) Subscribe(ctx context.Context, eventID string, fn func(domain.ChangeEvent)) (*domain.Snapshot, func(), error) {
	f := b.feedFor(eventID)
	f.mu.Lock()
	snap, err := b.loader.Snapshot(ctx, eventID)
	if err != nil {
		f.mu.Unlock()
		return nil, nil, err
	}
	sub := &subscriber{fn: fn}
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			sub.close()
			f.mu.Lock()
			delete(f.subs, sub)
			f.mu.Unlock()
		})
	}
	return snap, unsubscribe, nil
}

// Commit runs the durable write under the event's feed lock and then
// delivers the returned changes to every subscriber in order. Holding the
// lock across write and fan-out is what keeps delivery order equal to
// commit order for the event; commits for different events stay concurrent.
func (b *Broker) Commit(eventID string, write func() ([]domain.ChangeEvent, error)) error {
	f := b.feedFor(eventID)
	f.mu.Lock()
	defer f.mu.Unlock()

	changes, err := write()
	if err != nil {
		return err
	}
	for _, change := range changes {
		for sub := range f.subs {
			sub.deliver(change)
		}
		if b.bus != nil {
			if err := b.bus.Publish(change); err != nil {
				b.logger.Warn("change bus publish failed",
					"event_id", change.EventID, "kind", change.Kind, "err", err)
			}
		}
	}
	return nil
}

// DropEvent detaches all subscribers of a deleted event. Their callbacks
// will not run again after this returns.
func (b *Broker) DropEvent(eventID string) {
	b.mu.Lock()
	f, ok := b.feeds[eventID]
	if ok {
		delete(b.feeds, eventID)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		sub.close()
		delete(f.subs, sub)
	}
}
