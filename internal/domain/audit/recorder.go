// Package audit defines the operation audit trail contract.
// Entries are append-only; the postgres implementation compresses large
// change payloads with zstd.
package audit

import (
	"context"

	"gestock/internal/core/id"
)

// Entry describes one audited operation.
type Entry struct {
	// Operation names the workflow step, e.g. "reconcile_delivery".
	Operation string

	// EntityType and EntityID identify the affected aggregate.
	EntityType string
	EntityID   id.ID

	// Changes is a JSON-serializable description of what changed.
	Changes any

	// UserID is the operator who triggered the change, if known.
	UserID string
}

// Recorder appends audit entries.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
}

// NopRecorder discards entries. Used in tests.
type NopRecorder struct{}

func (NopRecorder) Append(ctx context.Context, entry Entry) error { return nil }
