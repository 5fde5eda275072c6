package watcher

import (
	"testing"
	"time"
)

func addEvent(c *Coalescer, path string, typ CoalescedEventType) {
	c.Add(CoalescedEvent{Path: path, Type: typ, Timestamp: time.Now()})
}

func expectEvent(t *testing.T, c *Coalescer, wantType CoalescedEventType, wantPath string) {
	t.Helper()
	select {
	case event := <-c.Events():
		if event.Path != wantPath {
			t.Errorf("path = %s, want %s", event.Path, wantPath)
		}
		if event.Type != wantType {
			t.Errorf("type = %v, want %v", event.Type, wantType)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func expectNoEvent(t *testing.T, c *Coalescer, within time.Duration) {
	t.Helper()
	select {
	case event := <-c.Events():
		t.Fatalf("unexpected event: %+v", event)
	case <-time.After(within):
	}
}

// Transition semantics: the pending event type after a sequence of raw
// events for the same path within one debounce window.
func TestCoalescer_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		sequence []CoalescedEventType
		want     CoalescedEventType
	}{
		{"modify alone", []CoalescedEventType{EventModify}, EventModify},
		{"repeated modifies collapse", []CoalescedEventType{EventModify, EventModify, EventModify}, EventModify},
		{"create then modify stays create", []CoalescedEventType{EventCreate, EventModify}, EventCreate},
		{"modify then delete becomes delete", []CoalescedEventType{EventModify, EventDelete}, EventDelete},
		{"delete then create becomes modify", []CoalescedEventType{EventDelete, EventCreate}, EventModify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoalescer(40*time.Millisecond, 80*time.Millisecond)
			defer c.Stop()

			for _, typ := range tt.sequence {
				addEvent(c, "/watched/file.md", typ)
				time.Sleep(5 * time.Millisecond)
			}

			expectEvent(t, c, tt.want, "/watched/file.md")
			expectNoEvent(t, c, 120*time.Millisecond)
		})
	}
}

func TestCoalescer_CreateThenDelete_EmitsNothing(t *testing.T) {
	c := NewCoalescer(40*time.Millisecond, 80*time.Millisecond)
	defer c.Stop()

	addEvent(c, "/watched/transient.tmp", EventCreate)
	addEvent(c, "/watched/transient.tmp", EventDelete)

	// A file created and removed inside the window never surfaces.
	expectNoEvent(t, c, 200*time.Millisecond)
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", c.PendingCount())
	}
}

func TestCoalescer_DeleteWaitsOutGracePeriod(t *testing.T) {
	debounce := 30 * time.Millisecond
	grace := 150 * time.Millisecond
	c := NewCoalescer(debounce, grace)
	defer c.Stop()

	start := time.Now()
	addEvent(c, "/watched/file.md", EventDelete)

	select {
	case <-c.Events():
		if elapsed := time.Since(start); elapsed < grace-10*time.Millisecond {
			t.Errorf("delete emitted after %v, want at least %v", elapsed, grace)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for delete event")
	}
}

func TestCoalescer_PathsAreIndependent(t *testing.T) {
	c := NewCoalescer(40*time.Millisecond, 80*time.Millisecond)
	defer c.Stop()

	addEvent(c, "/watched/a.md", EventModify)
	addEvent(c, "/watched/b.md", EventModify)

	if got := c.PendingCount(); got != 2 {
		t.Errorf("PendingCount = %d, want 2", got)
	}

	received := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case event := <-c.Events():
			received[event.Path] = true
		case <-time.After(500 * time.Millisecond):
			t.Fatal("timeout waiting for events")
		}
	}

	if !received["/watched/a.md"] || !received["/watched/b.md"] {
		t.Errorf("received = %v, want both paths", received)
	}
}

func TestCoalescer_StopIsSafe(t *testing.T) {
	c := NewCoalescer(40*time.Millisecond, 80*time.Millisecond)

	addEvent(c, "/watched/a.md", EventModify)
	c.Stop()

	// Add after Stop is a no-op, and Stop is idempotent.
	addEvent(c, "/watched/b.md", EventModify)
	c.Stop()

	// The events channel is closed; draining it must not block.
	for range c.Events() {
	}
}
