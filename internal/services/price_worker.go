package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

const (
	// defaultRefreshBatchSize is the number of cards refreshed per tick.
	defaultRefreshBatchSize = 20

	// priceMaxAge is how old a persisted price can be before the worker
	// refreshes it.
	priceMaxAge = 24 * time.Hour
)

// PriceWorker keeps the price tiers warm for cards currently in collections.
// User-requested refreshes jump the queue.
type PriceWorker struct {
	db             *gorm.DB
	feed           *FeedClient
	resolver       *store.PriceResolver
	updateInterval time.Duration

	batchSize int

	// Priority queue for user-requested refreshes
	urgentQueue []string
	urgentMu    sync.Mutex

	mu             sync.RWMutex
	cardsUpdated   int
	lastUpdateTime time.Time
}

// PriceStatus reports worker and feed quota state.
type PriceStatus struct {
	LastUpdateTime time.Time `json:"last_update_time"`
	NextUpdateTime time.Time `json:"next_update_time"`
	CardsUpdated   int       `json:"cards_updated"`
	BatchSize      int       `json:"batch_size"`
	QueueSize      int       `json:"queue_size"`

	DailyLimit int       `json:"daily_limit"`
	Remaining  int       `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at,omitempty"`
}

func NewPriceWorker(db *gorm.DB, feed *FeedClient, resolver *store.PriceResolver) *PriceWorker {
	return &PriceWorker{
		db:             db,
		feed:           feed,
		resolver:       resolver,
		batchSize:      defaultRefreshBatchSize,
		updateInterval: 15 * time.Minute,
	}
}

// QueueRefresh adds a card to the high-priority refresh queue and returns
// its 1-indexed position.
func (w *PriceWorker) QueueRefresh(cardID string) int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()

	for i, id := range w.urgentQueue {
		if id == cardID {
			return i + 1
		}
	}
	w.urgentQueue = append(w.urgentQueue, cardID)
	metrics.PriceQueueSize.Set(float64(len(w.urgentQueue)))
	log.Printf("Price worker: queued refresh for card %s (queue size: %d)", cardID, len(w.urgentQueue))
	return len(w.urgentQueue)
}

// Start runs the worker loop until the context is canceled.
func (w *PriceWorker) Start(ctx context.Context) {
	log.Printf("Price worker started: interval %s, batch size %d", w.updateInterval, w.batchSize)

	// Run one batch shortly after startup so a fresh deployment has prices.
	select {
	case <-ctx.Done():
		return
	case <-time.After(10 * time.Second):
		w.runBatch(ctx)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price worker stopping...")
			return
		case <-ticker.C:
			w.runBatch(ctx)
		}
	}
}

// Status returns current worker and quota state.
func (w *PriceWorker) Status() PriceStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	w.urgentMu.Lock()
	queueSize := len(w.urgentQueue)
	w.urgentMu.Unlock()

	return PriceStatus{
		LastUpdateTime: w.lastUpdateTime,
		NextUpdateTime: w.lastUpdateTime.Add(w.updateInterval),
		CardsUpdated:   w.cardsUpdated,
		BatchSize:      w.batchSize,
		QueueSize:      queueSize,
		DailyLimit:     w.feed.DailyLimit(),
		Remaining:      w.feed.RequestsRemaining(),
		ResetsAt:       w.feed.ResetTime(),
	}
}

func (w *PriceWorker) runBatch(ctx context.Context) {
	start := time.Now()

	cardIDs := w.drainUrgent()
	if len(cardIDs) < w.batchSize {
		cardIDs = append(cardIDs, w.staleCollectionCards(w.batchSize-len(cardIDs), cardIDs)...)
	}
	if len(cardIDs) == 0 {
		return
	}

	updated := 0
	for _, cardID := range cardIDs {
		if ctx.Err() != nil {
			return
		}
		if w.feed.RequestsRemaining() == 0 {
			log.Println("Price worker: feed quota exhausted, stopping batch")
			break
		}

		live, err := w.feed.GetMarketPrice(ctx, cardID)
		if err != nil {
			log.Printf("Price worker: fetch for %s failed: %v", cardID, err)
			continue
		}
		if live == nil {
			continue
		}
		w.resolver.Warm(cardID, *live)
		updated++
	}

	w.mu.Lock()
	w.cardsUpdated += updated
	w.lastUpdateTime = time.Now()
	w.mu.Unlock()

	metrics.PriceUpdatesTotal.Add(float64(updated))
	metrics.PriceBatchDuration.Observe(time.Since(start).Seconds())
	if updated > 0 {
		log.Printf("Price worker: refreshed %d/%d cards in %s", updated, len(cardIDs), time.Since(start).Round(time.Millisecond))
	}
}

func (w *PriceWorker) drainUrgent() []string {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()

	n := len(w.urgentQueue)
	if n > w.batchSize {
		n = w.batchSize
	}
	drained := make([]string, n)
	copy(drained, w.urgentQueue[:n])
	w.urgentQueue = w.urgentQueue[n:]
	metrics.PriceQueueSize.Set(float64(len(w.urgentQueue)))
	return drained
}

// staleCollectionCards returns distinct collection card ids whose persisted
// price is missing or older than priceMaxAge, excluding ids already chosen.
func (w *PriceWorker) staleCollectionCards(limit int, exclude []string) []string {
	if limit <= 0 {
		return nil
	}

	var ids []string
	err := w.db.Model(&models.CollectionItem{}).
		Distinct("card_id").
		Order("card_id").
		Pluck("card_id", &ids).Error
	if err != nil {
		log.Printf("Price worker: failed to list collection cards: %v", err)
		return nil
	}

	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var stale []string
	for _, id := range ids {
		if excluded[id] {
			continue
		}
		if w.resolver.NeedsRefresh(id, priceMaxAge) {
			stale = append(stale, id)
			if len(stale) == limit {
				break
			}
		}
	}
	return stale
}
