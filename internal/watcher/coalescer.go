package watcher

import (
	"sync"
	"time"
)

// CoalescedEventType classifies a raw filesystem change before it is
// translated into a FileEvent.
type CoalescedEventType int

const (
	EventCreate CoalescedEventType = iota
	EventModify
	EventDelete
)

// CoalescedEvent is one debounced filesystem change for a single path.
type CoalescedEvent struct {
	Path      string
	Type      CoalescedEventType
	Timestamp time.Time
}

// Coalescer folds bursts of raw events into one event per path: each path
// holds a pending event whose timer restarts on every new arrival, and
// overlapping event types collapse per the transition table below. Deletes
// wait out a longer grace period so delete+recreate (the common
// editor-save pattern) surfaces as a single modify.
type Coalescer struct {
	debounceWindow    time.Duration
	deleteGracePeriod time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	events  chan CoalescedEvent
	stopCh  chan struct{}
	stopped bool
}

// pendingEvent is one path's unemitted event and its flush timer.
type pendingEvent struct {
	event CoalescedEvent
	timer *time.Timer
}

// transition maps (pending, incoming) pairs onto the event type that
// should remain pending. Absent pairs keep the incoming type.
var transition = map[[2]CoalescedEventType]CoalescedEventType{
	{EventCreate, EventModify}: EventCreate, // still a brand-new file
	{EventModify, EventDelete}: EventDelete,
	{EventDelete, EventCreate}: EventModify, // replaced in place
	{EventModify, EventModify}: EventModify,
}

// NewCoalescer creates a Coalescer with the given debounce windows.
func NewCoalescer(debounceWindow, deleteGracePeriod time.Duration) *Coalescer {
	return &Coalescer{
		debounceWindow:    debounceWindow,
		deleteGracePeriod: deleteGracePeriod,
		pending:           make(map[string]*pendingEvent),
		events:            make(chan CoalescedEvent, 1000),
		stopCh:            make(chan struct{}),
	}
}

// Add folds event into the pending state for its path and (re)starts the
// flush timer.
func (c *Coalescer) Add(event CoalescedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	path := event.Path

	if pe, exists := c.pending[path]; exists {
		// Late timer fires are harmless: emit() rechecks the map.
		pe.timer.Stop()

		if pe.event.Type == EventCreate && event.Type == EventDelete {
			// Created and deleted inside the window: nothing happened.
			delete(c.pending, path)
			return
		}

		merged := event.Type
		if t, ok := transition[[2]CoalescedEventType{pe.event.Type, event.Type}]; ok {
			merged = t
		}
		pe.event = CoalescedEvent{Path: path, Type: merged, Timestamp: event.Timestamp}
		pe.timer = time.AfterFunc(c.delayFor(merged), func() { c.emit(path) })
		return
	}

	pe := &pendingEvent{event: event}
	pe.timer = time.AfterFunc(c.delayFor(event.Type), func() { c.emit(path) })
	c.pending[path] = pe
}

// Events returns the channel of coalesced events.
func (c *Coalescer) Events() <-chan CoalescedEvent {
	return c.events
}

// Stop cancels pending timers and closes the event channel.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true

	for path, pe := range c.pending {
		pe.timer.Stop()
		delete(c.pending, path)
	}
	c.mu.Unlock()

	close(c.stopCh)
	close(c.events)
}

// emit flushes path's pending event, if it still exists.
func (c *Coalescer) emit(path string) {
	c.mu.Lock()
	pe, exists := c.pending[path]
	if !exists {
		c.mu.Unlock()
		return
	}

	event := pe.event
	delete(c.pending, path)
	c.mu.Unlock()

	select {
	case c.events <- event:
	case <-c.stopCh:
	}
}

// delayFor returns the flush delay for an event type.
func (c *Coalescer) delayFor(eventType CoalescedEventType) time.Duration {
	if eventType == EventDelete {
		return c.deleteGracePeriod
	}
	return c.debounceWindow
}

// PendingCount returns the number of paths with unemitted events.
func (c *Coalescer) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
