package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

// CreateGroup creates a new empty named group.
func (s *Store) CreateGroup(ctx context.Context, userID, name, description string) models.OpResult {
	if userID == "" {
		return models.OpResult{Status: models.StatusError, Message: "authentication required"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.OpResult{Status: models.StatusError, Message: "group name cannot be blank"}
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.OpResult{Status: models.StatusError, Message: "backend unavailable"}
	}

	sess.cache.mu.Lock()
	if _, exists := sess.cache.groups[name]; exists {
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: fmt.Sprintf("group %q already exists", name)}
	}
	group := &models.Group{UserID: userID, Name: name, Description: description}
	sess.cache.groups[name] = group
	sess.cache.invalidate()
	sess.cache.mu.Unlock()

	row := *group
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("Store: create group %q failed, rolling back: %v", name, err)
		sess.cache.mu.Lock()
		delete(sess.cache.groups, name)
		sess.cache.invalidate()
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: "failed to create group"}
	}

	metrics.GroupOperationsTotal.WithLabelValues("create", models.StatusOK).Inc()
	return models.OpResult{Status: models.StatusOK}
}

// RenameGroup renames a group and re-keys all of its items. The Default
// group cannot be renamed.
func (s *Store) RenameGroup(ctx context.Context, userID, oldName, newName, description string) models.OpResult {
	if userID == "" {
		return models.OpResult{Status: models.StatusError, Message: "authentication required"}
	}
	if oldName == models.DefaultGroupName {
		return models.OpResult{Status: models.StatusError, Message: "the Default group cannot be renamed"}
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return models.OpResult{Status: models.StatusError, Message: "group name cannot be blank"}
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.OpResult{Status: models.StatusError, Message: "backend unavailable"}
	}

	sess.cache.mu.Lock()
	group, ok := sess.cache.groups[oldName]
	if !ok {
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: fmt.Sprintf("group %q not found", oldName)}
	}
	if oldName != newName {
		if _, exists := sess.cache.groups[newName]; exists {
			sess.cache.mu.Unlock()
			return models.OpResult{Status: models.StatusError, Message: fmt.Sprintf("group %q already exists", newName)}
		}
	}

	// Re-key in the cache optimistically.
	delete(sess.cache.groups, oldName)
	group.Name = newName
	group.Description = description
	sess.cache.groups[newName] = group
	rekeyed := make(map[itemKey]*models.CollectionItem)
	for key, item := range sess.cache.items {
		if key.Group == oldName {
			item.GroupName = newName
			key.Group = newName
		}
		rekeyed[key] = item
	}
	sess.cache.items = rekeyed
	sess.cache.invalidate()
	sess.cache.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Group{}).
			Where("user_id = ? AND name = ?", userID, oldName).
			Updates(map[string]interface{}{"name": newName, "description": description}).Error; err != nil {
			return err
		}
		return tx.Model(&models.CollectionItem{}).
			Where("user_id = ? AND group_name = ?", userID, oldName).
			Update("group_name", newName).Error
	})
	if err != nil {
		log.Printf("Store: rename group %q -> %q failed: %v", oldName, newName, err)
		// The cache was re-keyed optimistically; force a reload so the next
		// read reflects the backend's authoritative state.
		sess.cache.mu.Lock()
		sess.cache.invalidate()
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: "failed to rename group"}
	}

	metrics.GroupOperationsTotal.WithLabelValues("rename", models.StatusOK).Inc()
	return models.OpResult{Status: models.StatusOK}
}

// DeleteGroup deletes a group and all items in it. The Default group cannot
// be deleted.
func (s *Store) DeleteGroup(ctx context.Context, userID, name string) models.OpResult {
	if userID == "" {
		return models.OpResult{Status: models.StatusError, Message: "authentication required"}
	}
	if name == models.DefaultGroupName {
		return models.OpResult{Status: models.StatusError, Message: "the Default group cannot be deleted"}
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.OpResult{Status: models.StatusError, Message: "backend unavailable"}
	}

	sess.cache.mu.Lock()
	if _, ok := sess.cache.groups[name]; !ok {
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: fmt.Sprintf("group %q not found", name)}
	}
	delete(sess.cache.groups, name)
	for key := range sess.cache.items {
		if key.Group == name {
			delete(sess.cache.items, key)
		}
	}
	sess.cache.invalidate()
	sess.cache.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND group_name = ?", userID, name).
			Delete(&models.CollectionItem{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ? AND name = ?", userID, name).
			Delete(&models.Group{}).Error
	})
	if err != nil {
		log.Printf("Store: delete group %q failed: %v", name, err)
		sess.cache.mu.Lock()
		sess.cache.invalidate()
		sess.cache.mu.Unlock()
		return models.OpResult{Status: models.StatusError, Message: "failed to delete group"}
	}

	metrics.GroupOperationsTotal.WithLabelValues("delete", models.StatusOK).Inc()
	return models.OpResult{Status: models.StatusOK}
}

// ComputeGroupValue sums quantity x market price for every item in the
// group, persists the aggregates onto the group record, and returns them.
// Prices come from the resolver's tiered caches; items with no resolvable
// price contribute zero.
func (s *Store) ComputeGroupValue(ctx context.Context, userID, name string) (models.GroupValue, error) {
	if userID == "" {
		return models.GroupValue{}, models.ErrAuthRequired
	}

	sess := s.session(userID)
	if err := s.ensureFresh(ctx, sess); err != nil {
		return models.GroupValue{}, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	sess.cache.mu.RLock()
	if _, ok := sess.cache.groups[name]; !ok {
		sess.cache.mu.RUnlock()
		return models.GroupValue{}, fmt.Errorf("%w: group %q", models.ErrNotFound, name)
	}
	type line struct {
		key      itemKey
		quantity int
		price    float64
	}
	lines := make([]line, 0)
	for key, item := range sess.cache.items {
		if key.Group != name {
			continue
		}
		lines = append(lines, line{key: key, quantity: item.Quantity})
	}
	sess.cache.mu.RUnlock()

	// One render pass per computation: each card's price is resolved once
	// even when it appears in both the have and want lists. Resolution runs
	// outside the cache lock since it may touch the backend. A card no tier
	// resolves keeps price zero; a stale stored price does not count.
	pass := s.resolver.NewPass()
	for i := range lines {
		if price := pass.Resolve(lines[i].key.CardID, nil); price != nil {
			lines[i].price = *price
		}
	}

	var value models.GroupValue
	sess.cache.mu.Lock()
	for _, l := range lines {
		if item, ok := sess.cache.items[l.key]; ok {
			item.MarketPrice = l.price
		}
		amount := float64(l.quantity) * l.price
		switch l.key.Type {
		case models.CollectionHave:
			value.HaveValue += amount
		case models.CollectionWant:
			value.WantValue += amount
		}
	}
	value.TotalValue = value.HaveValue + value.WantValue
	if group, ok := sess.cache.groups[name]; ok {
		group.HaveValue = value.HaveValue
		group.WantValue = value.WantValue
		group.TotalValue = value.TotalValue
		group.UpdatedAt = time.Now()
	}
	sess.cache.mu.Unlock()

	err := s.db.WithContext(ctx).Model(&models.Group{}).
		Where("user_id = ? AND name = ?", userID, name).
		Updates(map[string]interface{}{
			"have_value":  value.HaveValue,
			"want_value":  value.WantValue,
			"total_value": value.TotalValue,
		}).Error
	if err != nil {
		return value, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	metrics.GroupValueUSD.WithLabelValues(name, "have").Set(value.HaveValue)
	metrics.GroupValueUSD.WithLabelValues(name, "want").Set(value.WantValue)
	return value, nil
}
