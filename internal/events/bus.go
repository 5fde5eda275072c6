package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus is the interface components publish to and subscribe on.
type Bus interface {
	// Publish delivers event to every matching subscriber. It never blocks
	// on a slow subscriber; a full subscriber buffer drops the event for
	// that subscriber only.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers handler for one event type and returns a
	// function that removes the subscription.
	Subscribe(eventType EventType, handler EventHandler) (unsubscribe func())

	// SubscribeAll registers handler for every event type.
	SubscribeAll(handler EventHandler) (unsubscribe func())

	// Close shuts the bus down; subsequent Publish calls fail with
	// ErrBusClosed.
	Close() error
}

// subscription is one registered handler with its delivery queue.
type subscription struct {
	id        uint64
	eventType EventType // empty means all types
	handler   EventHandler
	events    chan Event
	done      chan struct{}
	removed   atomic.Bool
}

// EventBus is the default Bus implementation: each subscriber gets a
// buffered channel drained by its own goroutine, so one stalled handler
// cannot hold up publishers or other subscribers.
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*subscription
	nextID        atomic.Uint64
	closed        atomic.Bool
	logger        *slog.Logger

	bufferSize int
	dropped    atomic.Int64
}

// BusOption configures an EventBus.
type BusOption func(*EventBus)

// WithBufferSize sets the per-subscriber delivery buffer.
func WithBufferSize(size int) BusOption {
	return func(b *EventBus) {
		if size > 0 {
			b.bufferSize = size
		}
	}
}

// WithLogger sets the bus logger.
func WithLogger(logger *slog.Logger) BusOption {
	return func(b *EventBus) {
		b.logger = logger
	}
}

// NewBus creates an EventBus.
func NewBus(opts ...BusOption) *EventBus {
	b := &EventBus{
		subscriptions: make(map[uint64]*subscription),
		bufferSize:    64,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers event to matching subscribers.
func (b *EventBus) Publish(ctx context.Context, event Event) error {
	if b.closed.Load() {
		return ErrBusClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if sub.eventType != "" && sub.eventType != event.Type {
			continue
		}
		select {
		case sub.events <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			b.dropped.Add(1)
			b.logger.Warn("event subscriber buffer full, dropping event",
				"event_type", event.Type,
				"subscriber_id", sub.id,
			)
		}
	}
	return nil
}

// Subscribe registers handler for eventType.
func (b *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	return b.subscribe(eventType, handler)
}

// SubscribeAll registers handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) func() {
	return b.subscribe("", handler)
}

func (b *EventBus) subscribe(eventType EventType, handler EventHandler) func() {
	if b.closed.Load() {
		return func() {}
	}

	id := b.nextID.Add(1)
	sub := &subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
		events:    make(chan Event, b.bufferSize),
		done:      make(chan struct{}),
	}

	b.mu.Lock()
	b.subscriptions[id] = sub
	b.mu.Unlock()

	go b.deliver(sub)

	return func() { b.unsubscribe(id) }
}

// deliver drains one subscription's queue until it is removed.
func (b *EventBus) deliver(sub *subscription) {
	for {
		select {
		case event, ok := <-sub.events:
			if !ok {
				return
			}
			b.safeCall(sub, event)
		case <-sub.done:
			// Drain what is already queued, then exit.
			for {
				select {
				case event, ok := <-sub.events:
					if !ok {
						return
					}
					b.safeCall(sub, event)
				default:
					return
				}
			}
		}
	}
}

// safeCall invokes the handler, containing any panic to this subscriber.
func (b *EventBus) safeCall(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"subscriber_id", sub.id,
				"event_type", event.Type,
				"panic", r,
			)
		}
	}()

	sub.handler(event)
}

func (b *EventBus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subscriptions[id]
	if ok {
		delete(b.subscriptions, id)
	}
	b.mu.Unlock()

	if ok && sub.removed.CompareAndSwap(false, true) {
		close(sub.done)
		close(sub.events)
	}
}

// Close shuts the bus down and releases every subscription.
func (b *EventBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.subscriptions = make(map[uint64]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		if sub.removed.CompareAndSwap(false, true) {
			close(sub.done)
			close(sub.events)
		}
	}

	return nil
}

// Stats reports the bus's current shape.
func (b *EventBus) Stats() BusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BusStats{
		SubscriberCount: len(b.subscriptions),
		IsClosed:        b.closed.Load(),
		Dropped:         b.dropped.Load(),
	}
}

// BusStats is a point-in-time snapshot of bus state.
type BusStats struct {
	SubscriberCount int
	IsClosed        bool
	Dropped         int64
}
