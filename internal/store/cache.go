package store

import (
	"sort"
	"sync"
	"time"

	"github.com/cardvault/backend/internal/models"
)

// itemKey uniquely addresses one collection item within a user's collection.
type itemKey struct {
	Group  string
	Type   models.CollectionType
	CardID string
}

// readCache holds one user's collection keyed group -> type -> card, with a
// single coarse freshness timestamp. Mutations update items in place for
// responsiveness but invalidate the timestamp, so the next FetchAll reloads
// from the backend.
type readCache struct {
	ttl time.Duration

	mu          sync.RWMutex
	groups      map[string]*models.Group
	items       map[itemKey]*models.CollectionItem
	snapshot    *models.GroupedCollections
	lastFetched time.Time
	reloadGen   uint64
}

func newReadCache(ttl time.Duration) *readCache {
	return &readCache{
		ttl:    ttl,
		groups: make(map[string]*models.Group),
		items:  make(map[itemKey]*models.CollectionItem),
	}
}

// isValid reports whether the cache was populated within the TTL window.
// Callers must hold mu.
func (c *readCache) isValid() bool {
	return !c.lastFetched.IsZero() && time.Since(c.lastFetched) < c.ttl
}

// invalidate marks the cache stale and drops the assembled snapshot. The
// item and group maps are kept so optimistic reads keep working until the
// next reload. Bumping the generation makes any in-flight reload discard
// its result rather than overwrite the mutation. Callers must hold mu.
func (c *readCache) invalidate() {
	c.lastFetched = time.Time{}
	c.snapshot = nil
	c.reloadGen++
}

// populate replaces the cache contents after a backend reload. Callers must
// hold mu.
func (c *readCache) populate(groups map[string]*models.Group, items map[itemKey]*models.CollectionItem) {
	c.groups = groups
	c.items = items
	c.snapshot = assembleSnapshot(groups, items)
	c.lastFetched = time.Now()
}

// populateIfCurrent installs a reload result only when no newer reload or
// mutation superseded it since gen was taken. Reports whether it populated.
func (c *readCache) populateIfCurrent(gen uint64, groups map[string]*models.Group, items map[itemKey]*models.CollectionItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reloadGen != gen {
		return false
	}
	c.populate(groups, items)
	return true
}

// assembleSnapshot builds the API-facing grouped view, ordered by group name
// with Default first and items ordered by card id for determinism.
func assembleSnapshot(groups map[string]*models.Group, items map[itemKey]*models.CollectionItem) *models.GroupedCollections {
	names := make([]string, 0, len(groups))
	for name := range groups {
		if name == models.DefaultGroupName {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := groups[models.DefaultGroupName]; ok {
		names = append([]string{models.DefaultGroupName}, names...)
	}

	out := &models.GroupedCollections{Groups: make([]models.GroupCollections, 0, len(names))}
	for _, name := range names {
		gc := models.GroupCollections{
			Group: *groups[name],
			Have:  []models.CollectionItem{},
			Want:  []models.CollectionItem{},
		}
		for key, item := range items {
			if key.Group != name {
				continue
			}
			switch key.Type {
			case models.CollectionHave:
				gc.Have = append(gc.Have, *item)
			case models.CollectionWant:
				gc.Want = append(gc.Want, *item)
			}
		}
		sortItems(gc.Have)
		sortItems(gc.Want)
		out.Groups = append(out.Groups, gc)
	}
	return out
}

func sortItems(items []models.CollectionItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].CardID < items[j].CardID
	})
}
