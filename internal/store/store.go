package store

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

const (
	// DefaultCacheTTL is how long a FetchAll result is served from memory
	// before the next call reloads from the backend.
	DefaultCacheTTL = 5 * time.Minute

	maxQuantity = 9999
)

// Store owns per-user named groups, each holding a "have" and a "want"
// collection of card quantities. All mutations go through the backend with
// an optimistic in-memory update first; reads are served from a TTL cache.
type Store struct {
	db       *gorm.DB
	resolver *PriceResolver
	ttl      time.Duration

	sessMu   sync.Mutex
	sessions map[string]*session
}

// session is the cache + lock state for one authenticated user.
type session struct {
	userID string
	cache  *readCache
	locks  *keyLock
}

// New creates a collection store backed by db. The resolver supplies market
// prices for group value aggregation.
func New(db *gorm.DB, resolver *PriceResolver) *Store {
	return NewWithTTL(db, resolver, DefaultCacheTTL)
}

// NewWithTTL creates a store with a custom cache TTL (used by tests).
func NewWithTTL(db *gorm.DB, resolver *PriceResolver, ttl time.Duration) *Store {
	return &Store{
		db:       db,
		resolver: resolver,
		ttl:      ttl,
		sessions: make(map[string]*session),
	}
}

func (s *Store) session(userID string) *session {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{
			userID: userID,
			cache:  newReadCache(s.ttl),
			locks:  newKeyLock(),
		}
		s.sessions[userID] = sess
	}
	return sess
}

// FetchAll returns the user's full collection grouped by group and type.
// Within the TTL window the same cached value is returned without touching
// the backend. Unauthenticated callers receive a single empty Default group.
func (s *Store) FetchAll(ctx context.Context, userID string) (*models.GroupedCollections, error) {
	if userID == "" {
		return emptyDefaultCollections(), nil
	}

	sess := s.session(userID)

	sess.cache.mu.RLock()
	if sess.cache.isValid() && sess.cache.snapshot != nil {
		snap := sess.cache.snapshot
		sess.cache.mu.RUnlock()
		metrics.CacheHitsTotal.Inc()
		return snap, nil
	}
	sess.cache.mu.RUnlock()

	metrics.CacheMissesTotal.Inc()
	if err := s.reload(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	sess.cache.mu.RLock()
	defer sess.cache.mu.RUnlock()
	if sess.cache.snapshot == nil {
		// A concurrent mutation invalidated the snapshot between reload and
		// here; rebuild from the maps we have.
		return assembleSnapshot(sess.cache.groups, sess.cache.items), nil
	}
	return sess.cache.snapshot, nil
}

// reload performs a full backend read scoped to the user and repopulates the
// cache. A reload that was superseded by a newer one discards its result
// instead of overwriting fresher state.
func (s *Store) reload(ctx context.Context, sess *session) error {
	sess.cache.mu.Lock()
	sess.cache.reloadGen++
	gen := sess.cache.reloadGen
	sess.cache.mu.Unlock()

	var groupRows []models.Group
	if err := s.db.WithContext(ctx).Where("user_id = ?", sess.userID).Find(&groupRows).Error; err != nil {
		return err
	}

	// The Default group always exists; create it on first load.
	hasDefault := false
	for i := range groupRows {
		if groupRows[i].Name == models.DefaultGroupName {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		def := models.Group{UserID: sess.userID, Name: models.DefaultGroupName}
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND name = ?", sess.userID, models.DefaultGroupName).
			FirstOrCreate(&def).Error; err != nil {
			return err
		}
		groupRows = append(groupRows, def)
	}

	var itemRows []models.CollectionItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", sess.userID).Find(&itemRows).Error; err != nil {
		return err
	}

	groups := make(map[string]*models.Group, len(groupRows))
	for i := range groupRows {
		g := groupRows[i]
		groups[g.Name] = &g
	}
	items := make(map[itemKey]*models.CollectionItem, len(itemRows))
	for i := range itemRows {
		it := itemRows[i]
		items[itemKey{Group: it.GroupName, Type: it.Type, CardID: it.CardID}] = &it
	}

	if !sess.cache.populateIfCurrent(gen, groups, items) {
		// A newer reload or a mutation superseded ours; let it win.
		metrics.CacheReloadsDiscarded.Inc()
		return nil
	}
	metrics.CacheReloadsTotal.Inc()
	return nil
}

// ensureFresh reloads the cache if it is stale. Mutations call this so the
// optimistic update has a current base to work from.
func (s *Store) ensureFresh(ctx context.Context, sess *session) error {
	sess.cache.mu.RLock()
	valid := sess.cache.isValid()
	sess.cache.mu.RUnlock()
	if valid {
		return nil
	}
	return s.reload(ctx, sess)
}

// AddItem inserts a card into a group's collection or increments its
// quantity. group defaults to Default when empty; qty defaults to 1.
func (s *Store) AddItem(ctx context.Context, userID, group string, typ models.CollectionType, card models.CardRef, qty int) models.AddResult {
	if userID == "" {
		return models.AddResult{Status: models.StatusError, Message: "authentication required"}
	}
	if !typ.Valid() {
		return models.AddResult{Status: models.StatusError, Message: "invalid collection type"}
	}
	if card.ID == "" {
		return models.AddResult{Status: models.StatusError, Message: "card id is required"}
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return models.AddResult{Status: models.StatusError, Message: "quantity must be positive"}
	}
	if group == "" {
		group = models.DefaultGroupName
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.AddResult{Status: models.StatusError, Message: "backend unavailable"}
	}

	sess.cache.mu.RLock()
	_, groupExists := sess.cache.groups[group]
	sess.cache.mu.RUnlock()
	if !groupExists {
		return models.AddResult{Status: models.StatusError, Message: fmt.Sprintf("group %q not found", group)}
	}

	key := itemKey{Group: group, Type: typ, CardID: card.ID}
	unlock := sess.locks.lock(key)
	defer unlock()

	if err := sess.locks.pace(ctx, key); err != nil {
		return models.AddResult{Status: models.StatusError, Message: "canceled"}
	}

	now := time.Now()

	sess.cache.mu.Lock()
	item, exists := sess.cache.items[key]
	var prevQty int
	if exists {
		prevQty = item.Quantity
		if item.Quantity+qty > maxQuantity {
			sess.cache.mu.Unlock()
			return models.AddResult{Status: models.StatusError, Message: "quantity exceeds maximum allowed (9999)"}
		}
		// Optimistic update before backend confirmation.
		item.Quantity += qty
		item.LastModifiedAt = now
	} else {
		if qty > maxQuantity {
			sess.cache.mu.Unlock()
			return models.AddResult{Status: models.StatusError, Message: "quantity exceeds maximum allowed (9999)"}
		}
		item = &models.CollectionItem{
			UserID:         userID,
			GroupName:      group,
			Type:           typ,
			CardID:         card.ID,
			CardName:       card.Name,
			CardImageURL:   card.ImageURL,
			Quantity:       qty,
			LastModifiedAt: now,
		}
		sess.cache.items[key] = item
	}
	newQty := item.Quantity
	sess.cache.invalidate()
	sess.cache.mu.Unlock()

	// Write through as a relative increment. The unique index on (user,
	// group, type, card) makes this an upsert; adding the delta on conflict
	// keeps concurrent writers additive.
	row := *item
	row.ID = 0
	row.Quantity = qty
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "group_name"}, {Name: "type"}, {Name: "card_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":         gorm.Expr("quantity + ?", qty),
			"card_name":        card.Name,
			"card_image_url":   card.ImageURL,
			"last_modified_at": now,
			"updated_at":       now,
		}),
	}).Create(&row).Error
	if err != nil {
		log.Printf("Store: add %s/%s/%s failed, rolling back optimistic update: %v", group, typ, card.ID, err)
		s.rollbackAdd(sess, key, exists, prevQty)
		return models.AddResult{Status: models.StatusError, Message: "failed to save item"}
	}

	status := models.StatusAdded
	if exists {
		status = models.StatusUpdated
	}
	metrics.StoreMutationsTotal.WithLabelValues("add", status).Inc()
	return models.AddResult{Status: status, NewQuantity: newQty}
}

func (s *Store) rollbackAdd(sess *session, key itemKey, existed bool, prevQty int) {
	sess.cache.mu.Lock()
	defer sess.cache.mu.Unlock()
	if item, ok := sess.cache.items[key]; ok {
		if existed {
			item.Quantity = prevQty
		} else {
			delete(sess.cache.items, key)
		}
	}
	sess.cache.invalidate()
}

// RemoveItem decrements an item's quantity or deletes it. With decrementOnly
// and quantity > 1 the quantity drops by one; otherwise the item is removed
// entirely. decrementOnly=false forces full removal regardless of quantity
// (bulk move/transfer path).
func (s *Store) RemoveItem(ctx context.Context, userID, group string, typ models.CollectionType, cardID string, decrementOnly bool) models.RemoveResult {
	if userID == "" {
		return models.RemoveResult{Status: models.StatusError, Message: "authentication required"}
	}
	if group == "" {
		group = models.DefaultGroupName
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.RemoveResult{Status: models.StatusError, Message: "backend unavailable"}
	}

	key := itemKey{Group: group, Type: typ, CardID: cardID}
	unlock := sess.locks.lock(key)
	defer unlock()

	if err := sess.locks.pace(ctx, key); err != nil {
		return models.RemoveResult{Status: models.StatusError, Message: "canceled"}
	}

	sess.cache.mu.Lock()
	item, exists := sess.cache.items[key]
	if !exists {
		sess.cache.mu.Unlock()
		return models.RemoveResult{Status: models.StatusNotFound, NewQuantity: 0}
	}

	prevQty := item.Quantity
	if decrementOnly && item.Quantity > 1 {
		item.Quantity--
		item.LastModifiedAt = time.Now()
		newQty := item.Quantity
		sess.cache.invalidate()
		sess.cache.mu.Unlock()

		err := s.db.WithContext(ctx).Model(&models.CollectionItem{}).
			Where("user_id = ? AND group_name = ? AND type = ? AND card_id = ?", userID, group, typ, cardID).
			Updates(map[string]interface{}{"quantity": gorm.Expr("quantity - 1"), "last_modified_at": item.LastModifiedAt}).Error
		if err != nil {
			log.Printf("Store: decrement %s/%s/%s failed, rolling back: %v", group, typ, cardID, err)
			sess.cache.mu.Lock()
			item.Quantity = prevQty
			sess.cache.invalidate()
			sess.cache.mu.Unlock()
			return models.RemoveResult{Status: models.StatusError, NewQuantity: prevQty, Message: "failed to save item"}
		}

		metrics.StoreMutationsTotal.WithLabelValues("remove", models.StatusDecremented).Inc()
		return models.RemoveResult{Status: models.StatusDecremented, NewQuantity: newQty}
	}

	// Quantity 1 (or forced removal): the item leaves the collection. A
	// quantity-0 row must never persist.
	delete(sess.cache.items, key)
	sess.cache.invalidate()
	sess.cache.mu.Unlock()

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_name = ? AND type = ? AND card_id = ?", userID, group, typ, cardID).
		Delete(&models.CollectionItem{}).Error
	if err != nil {
		log.Printf("Store: remove %s/%s/%s failed, rolling back: %v", group, typ, cardID, err)
		sess.cache.mu.Lock()
		sess.cache.items[key] = item
		sess.cache.invalidate()
		sess.cache.mu.Unlock()
		return models.RemoveResult{Status: models.StatusError, NewQuantity: prevQty, Message: "failed to delete item"}
	}

	metrics.StoreMutationsTotal.WithLabelValues("remove", models.StatusRemoved).Inc()
	return models.RemoveResult{Status: models.StatusRemoved, NewQuantity: 0}
}

// GetQuantity returns the quantity of a card in a group's collection, or 0
// if absent. Served from the cache when fresh; falls back to a scoped
// backend query only when the cache is stale and cannot be refreshed.
func (s *Store) GetQuantity(ctx context.Context, userID, group string, typ models.CollectionType, cardID string) int {
	if userID == "" {
		return 0
	}
	if group == "" {
		group = models.DefaultGroupName
	}

	sess := s.session(userID)
	key := itemKey{Group: group, Type: typ, CardID: cardID}

	sess.cache.mu.RLock()
	if sess.cache.isValid() {
		defer sess.cache.mu.RUnlock()
		if item, ok := sess.cache.items[key]; ok {
			return item.Quantity
		}
		return 0
	}
	sess.cache.mu.RUnlock()

	if err := s.reload(ctx, sess); err == nil {
		sess.cache.mu.RLock()
		defer sess.cache.mu.RUnlock()
		if item, ok := sess.cache.items[key]; ok {
			return item.Quantity
		}
		return 0
	}

	// Cache miss and no synchronous refresh; fall back to a scoped query.
	var item models.CollectionItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_name = ? AND type = ? AND card_id = ?", userID, group, typ, cardID).
		First(&item).Error
	if err != nil {
		return 0
	}
	return item.Quantity
}

// IsInCollection reports whether the card is present in the given group and
// type.
func (s *Store) IsInCollection(ctx context.Context, userID, group string, typ models.CollectionType, cardID string) bool {
	return s.GetQuantity(ctx, userID, group, typ, cardID) > 0
}

// GroupExists reports whether the named group exists for the user.
func (s *Store) GroupExists(ctx context.Context, userID, name string) bool {
	if userID == "" {
		return false
	}
	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		var g models.Group
		return s.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).First(&g).Error == nil
	}
	sess.cache.mu.RLock()
	defer sess.cache.mu.RUnlock()
	_, ok := sess.cache.groups[name]
	return ok
}

// GroupItems returns copies of the items in one group, optionally filtered
// to a single collection type.
func (s *Store) GroupItems(ctx context.Context, userID, group string, typ *models.CollectionType) ([]models.CollectionItem, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}
	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	sess.cache.mu.RLock()
	defer sess.cache.mu.RUnlock()
	if _, ok := sess.cache.groups[group]; !ok {
		return nil, fmt.Errorf("%w: group %q", models.ErrNotFound, group)
	}

	var out []models.CollectionItem
	for key, item := range sess.cache.items {
		if key.Group != group {
			continue
		}
		if typ != nil && key.Type != *typ {
			continue
		}
		out = append(out, *item)
	}
	sortItems(out)
	return out, nil
}

func emptyDefaultCollections() *models.GroupedCollections {
	return &models.GroupedCollections{
		Groups: []models.GroupCollections{{
			Group: models.Group{Name: models.DefaultGroupName},
			Have:  []models.CollectionItem{},
			Want:  []models.CollectionItem{},
		}},
	}
}
