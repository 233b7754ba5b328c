package database

import (
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := cleanupZeroQuantityItems(db); err != nil {
		return err
	}
	if err := seedDefaultGroups(db); err != nil {
		return err
	}
	if err := normalizePriceSources(db); err != nil {
		return err
	}
	return nil
}

// cleanupZeroQuantityItems removes rows that violate the quantity >= 1
// invariant. Older builds could leave quantity-0 rows behind when a removal
// was interrupted mid-write.
func cleanupZeroQuantityItems(db *gorm.DB) error {
	if !db.Migrator().HasTable("collection_items") {
		return nil
	}

	result := db.Exec(`DELETE FROM collection_items WHERE quantity <= 0`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d zero-quantity collection items", result.RowsAffected)
	}
	return nil
}

// seedDefaultGroups ensures every user that owns collection items also has a
// Default group row. Items referencing a group with no backing row are
// re-keyed to Default.
func seedDefaultGroups(db *gorm.DB) error {
	if !db.Migrator().HasTable("collection_items") || !db.Migrator().HasTable("collection_groups") {
		return nil
	}

	result := db.Exec(`
		INSERT INTO collection_groups (user_id, name, created_at, updated_at)
		SELECT DISTINCT ci.user_id, 'Default', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
		FROM collection_items ci
		WHERE NOT EXISTS (
			SELECT 1 FROM collection_groups cg
			WHERE cg.user_id = ci.user_id AND cg.name = 'Default'
		)
	`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Seeded Default group for %d users", result.RowsAffected)
	}

	// Re-key orphaned items to the Default group
	result = db.Exec(`
		UPDATE collection_items
		SET group_name = 'Default'
		WHERE NOT EXISTS (
			SELECT 1 FROM collection_groups cg
			WHERE cg.user_id = collection_items.user_id
			AND cg.name = collection_items.group_name
		)
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to re-key orphaned items: %v", result.Error)
	} else if result.RowsAffected > 0 {
		log.Printf("Re-keyed %d orphaned collection items to Default", result.RowsAffected)
	}

	return nil
}

// normalizePriceSources maps legacy source labels from the three pre-unified
// price caches onto the current source enum.
func normalizePriceSources(db *gorm.DB) error {
	if !db.Migrator().HasTable("price_records") {
		return nil
	}

	result := db.Exec(`
		UPDATE price_records
		SET source = CASE source
			WHEN 'api' THEN 'live'
			WHEN 'session' THEN 'robust'
			WHEN 'cached' THEN 'legacy'
			ELSE source
		END
		WHERE source IN ('api', 'session', 'cached')
	`)
	if result.Error != nil {
		log.Printf("Warning: failed to normalize price sources: %v", result.Error)
		return nil
	}
	if result.RowsAffected > 0 {
		log.Printf("Normalized %d legacy price source labels", result.RowsAffected)
	}
	return nil
}
