// Package cache provides in-process lookup caches.
package cache

import (
	"context"
	"sync"

	"gestock/internal/core/apperror"
	"gestock/internal/domain/facture"
	"gestock/internal/domain/livraison"
	"gestock/internal/infrastructure/storage/postgres"
	"gestock/pkg/logger"
)

// StatusRow is one livraison_statut lookup row.
type StatusRow struct {
	ID  int64  `db:"id"`
	Nom string `db:"nom"`
}

// StatusLoader fetches the lookup table contents.
type StatusLoader interface {
	LoadStatuses(ctx context.Context) ([]StatusRow, error)
}

var _ facture.StatusLookup = (*StatusCache)(nil)

// StatusCache caches the livraison_statut lookup table. The table is
// read once per process on first use; Refresh reloads it explicitly.
// When the load fails the cache falls back to the seeded identifiers so
// invoice creation keeps working without the lookup table.
type StatusCache struct {
	loader StatusLoader

	mu     sync.RWMutex
	byName map[string]int64
	byID   map[int64]string
	loaded bool
}

// NewStatusCache creates a status cache over the given loader.
func NewStatusCache(loader StatusLoader) *StatusCache {
	return &StatusCache{
		loader: loader,
		byName: make(map[string]int64),
		byID:   make(map[int64]string),
	}
}

// ResolveIntent normalizes a free-form delivery intent and returns the
// lookup id to persist along with the canonical name.
func (c *StatusCache) ResolveIntent(ctx context.Context, intent string) (int64, string) {
	status := livraison.MapIntent(intent)
	name := string(status)

	c.ensureLoaded(ctx)

	c.mu.RLock()
	statusID, ok := c.byName[name]
	c.mu.RUnlock()
	if !ok {
		statusID = status.DefaultLookupID()
	}
	return statusID, name
}

// NameByID returns the lookup name for a stored id.
func (c *StatusCache) NameByID(ctx context.Context, statusID int64) (string, error) {
	c.ensureLoaded(ctx)

	c.mu.RLock()
	name, ok := c.byID[statusID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	for _, s := range []livraison.Status{
		livraison.StatusEnAttente, livraison.StatusPartiellementLivree, livraison.StatusLivree,
	} {
		if s.DefaultLookupID() == statusID {
			return string(s), nil
		}
	}
	return "", apperror.NewNotFound("livraison_statut", statusID)
}

// Refresh reloads the lookup table.
func (c *StatusCache) Refresh(ctx context.Context) error {
	rows, err := c.loader.LoadStatuses(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]int64, len(rows))
	byID := make(map[int64]string, len(rows))
	for _, r := range rows {
		byName[r.Nom] = r.ID
		byID[r.ID] = r.Nom
	}

	c.mu.Lock()
	c.byName = byName
	c.byID = byID
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// ensureLoaded performs the lazy first load. A failed load is logged and
// leaves the cache on fallback identifiers; the next call retries.
func (c *StatusCache) ensureLoaded(ctx context.Context) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	if err := c.Refresh(ctx); err != nil {
		logger.Warn(ctx, "livraison_statut load failed, using fallback identifiers", "error", err)
	}
}

// PostgresStatusLoader reads livraison_statut from the database.
type PostgresStatusLoader struct {
	txManager *postgres.TxManager
}

// NewPostgresStatusLoader creates a loader over the given tx manager.
func NewPostgresStatusLoader(txManager *postgres.TxManager) *PostgresStatusLoader {
	return &PostgresStatusLoader{txManager: txManager}
}

// LoadStatuses fetches all lookup rows.
func (l *PostgresStatusLoader) LoadStatuses(ctx context.Context) ([]StatusRow, error) {
	rows, err := l.txManager.GetQuerier(ctx).Query(ctx,
		"SELECT id, nom FROM livraison_statut ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []StatusRow
	for rows.Next() {
		var r StatusRow
		if err := rows.Scan(&r.ID, &r.Nom); err != nil {
			return nil, err
		}
		statuses = append(statuses, r)
	}
	return statuses, rows.Err()
}
