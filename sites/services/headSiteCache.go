package services

import (
	"context"
	"encoding/json"
	"sync"

	"training-crm-backend/config"
	"training-crm-backend/db/models"
	"training-crm-backend/internal/kvstore"
	location_services "training-crm-backend/locations/services"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HeadSiteCacheKey is the durable-store key for the client -> head-site map.
// Stored with no expiry and refreshed explicitly after site writes.
const HeadSiteCacheKey = "sites:head_site_cache"

// HeadSiteCache maps client ids to their primary site record so client
// tables render without one site query per row. Priming is batched: a
// render pass costs at most one query no matter how many rows missed.
//
// A nil map entry is a negative marker: the client was looked up before and
// confirmed to have no head site, so it is not queried again.
type HeadSiteCache struct {
	db        *gorm.DB
	store     kvstore.Store
	locations *location_services.LocationCache

	mu  sync.Mutex
	m   map[uint]*models.Site
	hot bool
}

func NewHeadSiteCache(db *gorm.DB, store kvstore.Store, locations *location_services.LocationCache) *HeadSiteCache {
	return &HeadSiteCache{
		db:        db,
		store:     store,
		locations: locations,
		m:         make(map[uint]*models.Site),
	}
}

// GetMany returns a map of client id -> head site for every requested id
// that has one. Ids with no head site are simply absent from the result.
func (c *HeadSiteCache) GetMany(ctx context.Context, clientIDs []uint) map[uint]models.Site {
	ids := dedupeClientIDs(clientIDs)
	if len(ids) == 0 {
		return map[uint]models.Site{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.primeLocked(ctx, ids)

	out := make(map[uint]models.Site, len(ids))
	for _, id := range ids {
		if site, ok := c.m[id]; ok && site != nil {
			out[id] = *site
		}
	}
	return out
}

// Get returns a single client's head site, if it has one
func (c *HeadSiteCache) Get(ctx context.Context, clientID uint) (*models.Site, bool) {
	if clientID == 0 {
		return nil, false
	}
	sites := c.GetMany(ctx, []uint{clientID})
	site, ok := sites[clientID]
	if !ok {
		return nil, false
	}
	return &site, true
}

// Refresh forces a re-fetch for the given client ids, replacing whatever the
// cache held for them. Refresh(nil) drops the whole in-process level so the
// next access reloads from the durable store or the database.
func (c *HeadSiteCache) Refresh(ctx context.Context, clientIDs []uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if clientIDs == nil {
		c.m = make(map[uint]*models.Site)
		c.hot = false
		return
	}

	ids := dedupeClientIDs(clientIDs)
	if len(ids) == 0 {
		return
	}

	c.ensureLocked(ctx)

	fetched := c.fetchHeadSites(ctx, ids)
	for _, id := range ids {
		if site, ok := fetched[id]; ok {
			c.m[id] = site
		} else {
			c.m[id] = nil
		}
	}
	c.persistLocked(ctx)
}

// Clear removes the given client ids from both cache levels; Clear(nil)
// wipes the cache entirely.
func (c *HeadSiteCache) Clear(ctx context.Context, clientIDs []uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if clientIDs == nil {
		c.m = make(map[uint]*models.Site)
		c.hot = true
		if err := c.store.Delete(ctx, HeadSiteCacheKey); err != nil {
			config.Logger.Warn("Failed to delete head-site cache from store", zap.Error(err))
		}
		return
	}

	ids := dedupeClientIDs(clientIDs)
	if len(ids) == 0 {
		return
	}

	c.ensureLocked(ctx)
	for _, id := range ids {
		delete(c.m, id)
	}
	c.persistLocked(ctx)
}

// primeLocked fills cache misses for the requested ids with one batched
// query, recording negative markers for ids confirmed to have no head site.
func (c *HeadSiteCache) primeLocked(ctx context.Context, ids []uint) {
	c.ensureLocked(ctx)

	var missing []uint
	for _, id := range ids {
		if _, ok := c.m[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return
	}

	fetched := c.fetchHeadSites(ctx, missing)
	for _, id := range missing {
		if site, ok := fetched[id]; ok {
			c.m[id] = site
		} else {
			c.m[id] = nil
		}
	}
	c.persistLocked(ctx)
}

// fetchHeadSites issues the single batched query: head rows for the id set,
// first per client by site id. No uniqueness constraint backs "one head site
// per client": first row wins, everywhere, by convention.
func (c *HeadSiteCache) fetchHeadSites(ctx context.Context, clientIDs []uint) map[uint]*models.Site {
	var rows []models.Site
	err := c.db.WithContext(ctx).
		Where("parent_site_id IS NULL AND client_id IN ?", clientIDs).
		Order("client_id, site_id").
		Find(&rows).Error
	if err != nil {
		config.Logger.Error("Failed to fetch head sites", zap.Error(err))
		return map[uint]*models.Site{}
	}

	out := make(map[uint]*models.Site, len(rows))
	for i := range rows {
		row := rows[i]
		if row.ClientID == 0 {
			continue
		}
		if _, exists := out[row.ClientID]; exists {
			continue
		}
		out[row.ClientID] = &row
	}

	c.hydrateLocations(ctx, out)
	return out
}

// hydrateLocations attaches the referenced Location to each fetched site
// from the location cache's flat map
func (c *HeadSiteCache) hydrateLocations(ctx context.Context, sites map[uint]*models.Site) {
	if c.locations == nil {
		return
	}

	var placeIDs []uint
	for _, site := range sites {
		if site != nil && site.PlaceID != nil && *site.PlaceID > 0 {
			placeIDs = append(placeIDs, *site.PlaceID)
		}
	}
	if len(placeIDs) == 0 {
		return
	}

	locations := c.locations.ByIDs(ctx, placeIDs)
	for _, site := range sites {
		if site == nil || site.PlaceID == nil {
			continue
		}
		if loc, ok := locations[*site.PlaceID]; ok {
			l := loc
			site.Location = &l
		}
	}
}

func (c *HeadSiteCache) ensureLocked(ctx context.Context) {
	if c.hot {
		return
	}
	c.hot = true

	raw, ok, err := c.store.Get(ctx, HeadSiteCacheKey)
	if err != nil {
		config.Logger.Warn("Failed to load head-site cache from store", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var loaded map[uint]*models.Site
	if err := json.Unmarshal(raw, &loaded); err != nil {
		config.Logger.Warn("Discarding malformed head-site cache snapshot", zap.Error(err))
		return
	}
	c.m = loaded
	if c.m == nil {
		c.m = make(map[uint]*models.Site)
	}
}

func (c *HeadSiteCache) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(c.m)
	if err != nil {
		config.Logger.Error("Failed to encode head-site cache", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, HeadSiteCacheKey, raw, 0); err != nil {
		config.Logger.Warn("Failed to persist head-site cache", zap.Error(err))
	}
}

func dedupeClientIDs(ids []uint) []uint {
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
