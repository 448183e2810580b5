// Copyright 2025 James Ross
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSBroadcaster wraps an InMemoryBroadcaster (for local history and
// in-process subscribers) and additionally publishes every event onto a
// NATS subject, so out-of-process observers can follow an import's
// progress (§4.2's "concrete transport is out of scope" — this is the
// transport SPEC_FULL.md gives that gap).
type NATSBroadcaster struct {
	inner   *InMemoryBroadcaster
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

// NewNATSBroadcaster connects to natsURL and wraps local delivery.
func NewNATSBroadcaster(natsURL, subject string, log *zap.Logger) (*NATSBroadcaster, error) {
	if subject == "" {
		subject = "pipeline.status"
	}
	conn, err := nats.Connect(natsURL, nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSBroadcaster{
		inner:   NewInMemoryBroadcaster(),
		conn:    conn,
		subject: subject,
		log:     log,
	}, nil
}

func (b *NATSBroadcaster) AddStatusEventAndBroadcast(ctx context.Context, ev Event) (Event, error) {
	persisted, _ := b.inner.AddStatusEventAndBroadcast(ctx, ev)

	payload, err := json.Marshal(persisted)
	if err != nil {
		return persisted, fmt.Errorf("marshal status event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", b.subject, persisted.ImportID)
	if err := b.conn.Publish(subject, payload); err != nil {
		b.log.Warn("nats publish failed", zap.Error(err), zap.String("importId", persisted.ImportID))
		return persisted, fmt.Errorf("publish status event: %w", err)
	}
	return persisted, nil
}

func (b *NATSBroadcaster) Subscribe(importID string) (<-chan Event, func()) {
	return b.inner.Subscribe(importID)
}

func (b *NATSBroadcaster) Close() {
	b.conn.Close()
}
