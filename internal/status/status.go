// Copyright 2025 James Ross
// Package status implements the C2 status broadcaster: a persistent
// per-import status log plus fan-out to subscribers (§4.2).
package status

import (
	"context"
	"sync"
	"time"
)

// Phase is the closed-ish set of statuses an event can carry (§4.2).
type Phase string

const (
	Processing      Phase = "PROCESSING"
	Completed       Phase = "COMPLETED"
	Failed          Phase = "FAILED"
	AwaitingParsing Phase = "AWAITING_PARSING"
)

// Event is one structured status update for an import/note (§4.2).
type Event struct {
	ImportID    string
	NoteID      string
	Status      Phase
	Message     string
	Context     string
	IndentLevel int
	Metadata    map[string]any
	Timestamp   time.Time
}

// Broadcaster persists status events and fans them out to subscribers.
// AddStatusEventAndBroadcast may fail; callers (BaseAction in
// particular) decide whether that failure is fatal per §4.3/§7.
type Broadcaster interface {
	AddStatusEventAndBroadcast(ctx context.Context, ev Event) (Event, error)
	Subscribe(importID string) (<-chan Event, func())
}

// InMemoryBroadcaster is the default, transport-free broadcaster: it
// keeps a per-import append-only log and fans events out over Go
// channels to live subscribers. It never itself returns an error, but
// satisfies the interface's fallible signature for parity with
// transport-backed implementations (e.g. NATSBroadcaster).
type InMemoryBroadcaster struct {
	mu          sync.Mutex
	log         map[string][]Event
	subscribers map[string][]chan Event
}

func NewInMemoryBroadcaster() *InMemoryBroadcaster {
	return &InMemoryBroadcaster{
		log:         make(map[string][]Event),
		subscribers: make(map[string][]chan Event),
	}
}

func (b *InMemoryBroadcaster) AddStatusEventAndBroadcast(_ context.Context, ev Event) (Event, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	b.log[ev.ImportID] = append(b.log[ev.ImportID], ev)
	subs := append([]chan Event(nil), b.subscribers[ev.ImportID]...)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// A slow subscriber never blocks the pipeline; status
			// broadcasting is fire-and-forget from the worker's view.
		}
	}
	return ev, nil
}

func (b *InMemoryBroadcaster) Subscribe(importID string) (<-chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[importID] = append(b.subscribers[importID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[importID]
		for i, c := range subs {
			if c == ch {
				b.subscribers[importID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel
}

// History returns the persisted log for an import, oldest first.
func (b *InMemoryBroadcaster) History(importID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.log[importID]))
	copy(out, b.log[importID])
	return out
}
