// Package event defines domain events emitted by the core workflows.
// The UI layer subscribes to these to invalidate its caches; delivery is
// transactional-outbox based (see infrastructure/storage/postgres).
package event

import (
	"context"

	"gestock/internal/core/id"
)

// Event types emitted by the core.
const (
	TypeStockAdjusted           = "StockAdjusted"
	TypePrecommandeStatutChange = "PrecommandeStatutChanged"
	TypeFactureCreated          = "FactureCreated"
	TypeVersementRecorded       = "VersementRecorded"
)

// Event represents a domain event to be published.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes domain events for asynchronous delivery.
// The postgres implementation requires a transaction context.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
