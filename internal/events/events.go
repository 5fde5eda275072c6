// Package events provides the in-process publish/subscribe bus that loosely
// couples the daemon's long-lived components: config reloads, folder
// indexing milestones, and optimizer runs are announced here so interested
// subscribers (logging, TUI, metrics) can react without direct wiring.
package events

import "time"

// EventType identifies a category of event on the bus.
type EventType string

const (
	// ConfigReloaded is published after a successful config hot reload.
	ConfigReloaded EventType = "config.reloaded"

	// ConfigReloadFailed is published when a config reload attempt fails
	// and the previous configuration is retained.
	ConfigReloadFailed EventType = "config.reload_failed"

	// IndexStarted is published when folder processing begins.
	IndexStarted EventType = "index.started"

	// IndexCompleted is published when folder processing finishes,
	// successfully or not.
	IndexCompleted EventType = "index.completed"

	// OptimizeCompleted is published after an optimizer pass.
	OptimizeCompleted EventType = "optimize.completed"

	// TreeSaved is published after the tree is persisted to disk.
	TreeSaved EventType = "tree.saved"
)

// Event is the unit delivered to subscribers.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// EventHandler processes a single event. Handlers run on the subscriber's
// own goroutine and must not block indefinitely.
type EventHandler func(Event)

// NewEvent wraps payload in an Event stamped with the current time.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
