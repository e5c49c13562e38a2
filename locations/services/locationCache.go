package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/internal/kvstore"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LocationCacheKey is the durable-store key the hierarchy snapshot lives
// under. No expiry: the snapshot stays valid until a location write
// invalidates it.
const LocationCacheKey = "locations:hierarchy_cache"

// SuburbEntry is a leaf of the location hierarchy
type SuburbEntry struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	PostalCode    string `json:"postal_code"`
	StreetAddress string `json:"street_address"`
}

type TownEntry struct {
	Name    string        `json:"name"`
	Suburbs []SuburbEntry `json:"suburbs"`
}

type ProvinceEntry struct {
	Name  string      `json:"name"`
	Towns []TownEntry `json:"towns"`
}

// locationSnapshot is what gets persisted: the nested tree for cascading
// dropdowns plus a flat id map for O(1) lookups.
type locationSnapshot struct {
	Hierarchy []ProvinceEntry          `json:"hierarchy"`
	Map       map[uint]models.Location `json:"map"`
}

// LocationCache presents all location rows as a province -> town -> suburb
// tree and a flat id map. It is a process-local first-level cache backed by
// the shared durable store; rebuilds are serialized by the mutex and are
// idempotent, so a concurrent rebuild race resolves to the same content.
type LocationCache struct {
	db    *gorm.DB
	store kvstore.Store

	mu   sync.RWMutex
	snap *locationSnapshot
}

func NewLocationCache(db *gorm.DB, store kvstore.Store) *LocationCache {
	return &LocationCache{db: db, store: store}
}

// Hierarchy returns the nested tree. useCache=false forces a rebuild before
// returning, which is what location writes use to keep form dropdowns fresh.
func (c *LocationCache) Hierarchy(ctx context.Context, useCache bool) ([]ProvinceEntry, error) {
	if !useCache {
		snap, err := c.Rebuild(ctx)
		if err != nil {
			return nil, err
		}
		return snap.Hierarchy, nil
	}

	snap, err := c.ensure(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Hierarchy, nil
}

// ByID looks one location up from the flat map
func (c *LocationCache) ByID(ctx context.Context, id uint) (*models.Location, bool) {
	if id == 0 {
		return nil, false
	}
	locations := c.ByIDs(ctx, []uint{id})
	loc, ok := locations[id]
	if !ok {
		return nil, false
	}
	return &loc, true
}

// ByIDs resolves a set of ids against the flat map. Any miss triggers a
// single full rebuild and a retry; ids still missing after that are omitted
// (best effort, never a second rebuild).
func (c *LocationCache) ByIDs(ctx context.Context, ids []uint) map[uint]models.Location {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return map[uint]models.Location{}
	}

	snap, err := c.ensure(ctx)
	if err != nil {
		config.Logger.Error("Location cache unavailable", zap.Error(err))
		return map[uint]models.Location{}
	}

	found := make(map[uint]models.Location, len(ids))
	var missing []uint
	for _, id := range ids {
		if loc, ok := snap.Map[id]; ok {
			found[id] = loc
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		// Misses mean someone inserted a location this process has not seen
		// yet; a single rebuild repairs that.
		snap, err = c.Rebuild(ctx)
		if err != nil {
			config.Logger.Error("Location cache rebuild failed", zap.Error(err))
			return found
		}
		for _, id := range missing {
			if loc, ok := snap.Map[id]; ok {
				found[id] = loc
			}
		}
	}

	return found
}

// Available reports whether any locations exist to hydrate sites with
func (c *LocationCache) Available(ctx context.Context) bool {
	snap, err := c.ensure(ctx)
	if err != nil {
		return false
	}
	return len(snap.Map) > 0 || len(snap.Hierarchy) > 0
}

// Rebuild scans the locations table and replaces both cache levels
func (c *LocationCache) Rebuild(ctx context.Context) (*locationSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

// Invalidate clears the in-process copy and the durable store. The next
// access rebuilds from scratch.
func (c *LocationCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = nil
	if err := c.store.Delete(ctx, LocationCacheKey); err != nil {
		config.Logger.Warn("Failed to delete location cache from store", zap.Error(err))
	}
}

func (c *LocationCache) ensure(ctx context.Context) (*locationSnapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil {
		return c.snap, nil
	}

	// Second level first: another process may have persisted a snapshot
	raw, ok, err := c.store.Get(ctx, LocationCacheKey)
	if err != nil {
		config.Logger.Warn("Failed to load location cache from store", zap.Error(err))
	}
	if ok {
		var loaded locationSnapshot
		if err := json.Unmarshal(raw, &loaded); err == nil && loaded.Map != nil {
			c.snap = &loaded
			return c.snap, nil
		}
		config.Logger.Warn("Discarding malformed location cache snapshot")
	}

	return c.rebuildLocked(ctx)
}

func (c *LocationCache) rebuildLocked(ctx context.Context) (*locationSnapshot, error) {
	var rows []models.Location
	err := c.db.WithContext(ctx).
		Order("province, town, suburb, location_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to scan locations: %w", err)
	}

	snap := &locationSnapshot{
		Hierarchy: []ProvinceEntry{},
		Map:       make(map[uint]models.Location, len(rows)),
	}

	provinceIndex := make(map[string]int)
	townIndex := make(map[string]map[string]int)

	for _, row := range rows {
		if row.LocationID == 0 {
			continue
		}

		snap.Map[row.LocationID] = row

		// Rows missing any level of the path stay lookup-only
		if row.Province == "" || row.Town == "" || row.Suburb == "" {
			continue
		}

		pi, ok := provinceIndex[row.Province]
		if !ok {
			pi = len(snap.Hierarchy)
			provinceIndex[row.Province] = pi
			townIndex[row.Province] = make(map[string]int)
			snap.Hierarchy = append(snap.Hierarchy, ProvinceEntry{Name: row.Province})
		}

		ti, ok := townIndex[row.Province][row.Town]
		if !ok {
			ti = len(snap.Hierarchy[pi].Towns)
			townIndex[row.Province][row.Town] = ti
			snap.Hierarchy[pi].Towns = append(snap.Hierarchy[pi].Towns, TownEntry{Name: row.Town})
		}

		snap.Hierarchy[pi].Towns[ti].Suburbs = append(snap.Hierarchy[pi].Towns[ti].Suburbs, SuburbEntry{
			ID:            row.LocationID,
			Name:          row.Suburb,
			PostalCode:    row.PostalCode,
			StreetAddress: row.StreetAddress,
		})
	}

	c.snap = snap
	c.persist(ctx, snap)

	return snap, nil
}

func (c *LocationCache) persist(ctx context.Context, snap *locationSnapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		config.Logger.Error("Failed to encode location cache", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, LocationCacheKey, raw, 0); err != nil {
		config.Logger.Warn("Failed to persist location cache", zap.Error(err))
	}
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
