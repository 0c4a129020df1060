// Package livraison defines the canonical delivery status shared by
// precommande lines, precommande documents and sale invoices.
package livraison

import (
	"strings"

	"gestock/internal/core/types"
)

// Status is the canonical delivery state.
type Status string

const (
	StatusEnAttente           Status = "en_attente"
	StatusPartiellementLivree Status = "partiellement_livree"
	StatusLivree              Status = "livree"
)

// Valid reports whether s is one of the canonical states.
func (s Status) Valid() bool {
	switch s {
	case StatusEnAttente, StatusPartiellementLivree, StatusLivree:
		return true
	}
	return false
}

// DefaultLookupID returns the identifier used for this status in the
// livraison_statut lookup table when the database is unreachable.
// Must match the seed migration.
func (s Status) DefaultLookupID() int64 {
	switch s {
	case StatusPartiellementLivree:
		return 2
	case StatusLivree:
		return 3
	default:
		return 1
	}
}

// MapIntent normalizes a free-form delivery intent coming from a client
// (the UI historically sent several spellings) to a canonical status.
// Unknown or empty intents map to en_attente.
func MapIntent(intent string) Status {
	switch strings.ToLower(strings.TrimSpace(intent)) {
	case "livree", "livre", "complete":
		return StatusLivree
	case "partiellement_livree", "partielle":
		return StatusPartiellementLivree
	default:
		return StatusEnAttente
	}
}

// StatusForProgress derives the delivery status from cumulative delivered
// quantity against the ordered quantity.
func StatusForProgress(delivered, ordered types.Quantity) Status {
	switch {
	case delivered <= 0:
		return StatusEnAttente
	case ordered > 0 && delivered >= ordered:
		return StatusLivree
	default:
		return StatusPartiellementLivree
	}
}
