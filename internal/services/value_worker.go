package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

// ValueWorker records daily group value snapshots for history charting.
type ValueWorker struct {
	db    *gorm.DB
	store *store.Store

	mu            sync.Mutex
	snapshotHour  int // Hour of day to take snapshots (0-23)
	checkInterval time.Duration
}

func NewValueWorker(db *gorm.DB, st *store.Store) *ValueWorker {
	return &ValueWorker{
		db:            db,
		store:         st,
		snapshotHour:  23, // Default: 11 PM
		checkInterval: 15 * time.Minute,
	}
}

// Start begins the background snapshot loop.
func (w *ValueWorker) Start(ctx context.Context) {
	log.Println("Value worker started: will record daily group values")

	w.checkAndSnapshot(ctx)

	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Value worker stopping...")
			return
		case <-ticker.C:
			w.checkAndSnapshot(ctx)
		}
	}
}

func (w *ValueWorker) checkAndSnapshot(ctx context.Context) {
	now := time.Now()
	if now.Hour() < w.snapshotHour {
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if w.hasSnapshotsForDate(today) {
		return
	}

	if err := w.TakeSnapshots(ctx); err != nil {
		log.Printf("Value worker: failed to take snapshots: %v", err)
	}
}

func (w *ValueWorker) hasSnapshotsForDate(date time.Time) bool {
	endOfDay := date.Add(24 * time.Hour)

	var count int64
	w.db.Model(&models.GroupValueSnapshot{}).
		Where("snapshot_date >= ? AND snapshot_date < ?", date, endOfDay).
		Count(&count)
	return count > 0
}

// TakeSnapshots recomputes and records today's value for every group of
// every user that owns one.
func (w *ValueWorker) TakeSnapshots(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var groups []models.Group
	if err := w.db.Find(&groups).Error; err != nil {
		return err
	}

	now := time.Now()
	snapshotDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	taken := 0
	for _, g := range groups {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		value, err := w.store.ComputeGroupValue(ctx, g.UserID, g.Name)
		if err != nil {
			log.Printf("Value worker: compute for %s/%s failed: %v", g.UserID, g.Name, err)
			continue
		}

		var totalCards int
		w.db.Model(&models.CollectionItem{}).
			Where("user_id = ? AND group_name = ?", g.UserID, g.Name).
			Select("COALESCE(SUM(quantity), 0)").
			Scan(&totalCards)

		snapshot := models.GroupValueSnapshot{
			UserID:       g.UserID,
			GroupName:    g.Name,
			SnapshotDate: snapshotDate,
			HaveValue:    value.HaveValue,
			WantValue:    value.WantValue,
			TotalValue:   value.TotalValue,
			TotalCards:   totalCards,
			CreatedAt:    now,
		}

		// Upsert on (user, group, date) so a re-run updates today's row.
		result := w.db.
			Where("user_id = ? AND group_name = ? AND DATE(snapshot_date) = DATE(?)", g.UserID, g.Name, snapshotDate).
			Assign(models.GroupValueSnapshot{
				HaveValue:  snapshot.HaveValue,
				WantValue:  snapshot.WantValue,
				TotalValue: snapshot.TotalValue,
				TotalCards: snapshot.TotalCards,
			}).
			FirstOrCreate(&snapshot)
		if result.Error != nil {
			log.Printf("Value worker: snapshot for %s/%s failed: %v", g.UserID, g.Name, result.Error)
			continue
		}
		taken++
	}

	log.Printf("Value worker: recorded %d group value snapshots", taken)
	return nil
}

// GetHistory returns snapshots for a user's group over the given period
// ("week", "month", "year", or "all").
func (w *ValueWorker) GetHistory(userID, groupName, period string) ([]models.GroupValueSnapshot, error) {
	query := w.db.Where("user_id = ? AND group_name = ?", userID, groupName).
		Order("snapshot_date ASC")

	now := time.Now()
	switch period {
	case "week":
		query = query.Where("snapshot_date >= ?", now.AddDate(0, 0, -7))
	case "month":
		query = query.Where("snapshot_date >= ?", now.AddDate(0, -1, 0))
	case "year":
		query = query.Where("snapshot_date >= ?", now.AddDate(-1, 0, 0))
	case "all", "":
		// No date filter
	default:
		query = query.Where("snapshot_date >= ?", now.AddDate(0, -1, 0))
	}

	var snapshots []models.GroupValueSnapshot
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
