package store

import (
	"errors"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
)

// robustCacheSize bounds the in-process price tier. 4096 cards comfortably
// covers a large personal collection.
const robustCacheSize = 4096

// PriceResolver resolves a single authoritative market price per card from
// three tiers, highest precedence first:
//
//  1. a non-zero price in the live payload supplied by the caller
//  2. the in-process "robust" tier (session-lifetime LRU)
//  3. the persisted legacy tier (price_records table)
//
// Every successful resolution writes its value back into all lower tiers so
// call sites without live data (grid thumbnails) still find a price. A card
// with no price in any tier resolves to nil, which is a displayable "No
// Price" state, not an error.
type PriceResolver struct {
	db     *gorm.DB
	robust *lru.Cache[string, models.PriceRecord]
}

// NewPriceResolver creates a resolver backed by db for the persisted tier.
func NewPriceResolver(db *gorm.DB) (*PriceResolver, error) {
	robust, err := lru.New[string, models.PriceRecord](robustCacheSize)
	if err != nil {
		return nil, err
	}
	return &PriceResolver{db: db, robust: robust}, nil
}

// Pass memoizes resolutions for one render pass (a grid of 32+ cards
// resolves each card once). A Pass is not safe for concurrent use; create
// one per pass.
type Pass struct {
	r    *PriceResolver
	memo map[string]*float64
}

// NewPass starts a new memoized render pass.
func (r *PriceResolver) NewPass() *Pass {
	return &Pass{r: r, memo: make(map[string]*float64)}
}

// Resolve returns the authoritative market price for a card, or nil when no
// tier yields a positive value. live carries pricing data accompanying the
// current card fetch, if any.
func (p *Pass) Resolve(cardID string, live *models.LivePrice) *float64 {
	if cached, ok := p.memo[cardID]; ok {
		return cached
	}
	price := p.r.resolve(cardID, live)
	p.memo[cardID] = price
	return price
}

// Resolve is the unmemoized resolution path, for one-off lookups.
func (r *PriceResolver) Resolve(cardID string, live *models.LivePrice) *float64 {
	return r.resolve(cardID, live)
}

func (r *PriceResolver) resolve(cardID string, live *models.LivePrice) *float64 {
	// Tier 1: live payload accompanying the current fetch.
	if live != nil && live.Market > 0 {
		observed := live.ObservedAt
		if observed.IsZero() {
			observed = time.Now()
		}
		r.writeBack(cardID, live.Market, models.PriceSourceLive, observed, true)
		metrics.PriceResolutionsTotal.WithLabelValues(string(models.PriceSourceLive)).Inc()
		price := live.Market
		return &price
	}

	// Tier 2: session-lifetime robust cache.
	if rec, ok := r.robust.Get(cardID); ok && rec.Price > 0 {
		r.writeBack(cardID, rec.Price, rec.Source, rec.ObservedAt, false)
		metrics.PriceResolutionsTotal.WithLabelValues(string(models.PriceSourceRobust)).Inc()
		price := rec.Price
		return &price
	}

	// Tier 3: persisted legacy cache.
	var rec models.PriceRecord
	err := r.db.Where("card_id = ?", cardID).First(&rec).Error
	if err == nil && rec.Price > 0 {
		metrics.PriceResolutionsTotal.WithLabelValues(string(models.PriceSourceLegacy)).Inc()
		price := rec.Price
		return &price
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Price resolver: legacy tier lookup for %s failed: %v", cardID, err)
	}

	metrics.PriceResolutionsTotal.WithLabelValues("none").Inc()
	return nil
}

// writeBack warms the tiers below the one that produced the value. A live
// resolution warms both the robust and legacy tiers; a robust hit warms the
// legacy tier only.
func (r *PriceResolver) writeBack(cardID string, price float64, source models.PriceSource, observedAt time.Time, warmRobust bool) {
	if warmRobust {
		r.robust.Add(cardID, models.PriceRecord{
			CardID:     cardID,
			Price:      price,
			Source:     source,
			ObservedAt: observedAt,
		})
	}

	rec := models.PriceRecord{
		CardID:     cardID,
		Price:      price,
		Source:     source,
		ObservedAt: observedAt,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "card_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "source", "observed_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		log.Printf("Price resolver: failed to persist price for %s: %v", cardID, err)
		return
	}
	metrics.PriceWritebacksTotal.Inc()
}

// Warm records a freshly fetched market price into all tiers. The price
// warm worker uses this after a feed fetch.
func (r *PriceResolver) Warm(cardID string, live models.LivePrice) {
	if live.Market <= 0 {
		return
	}
	observed := live.ObservedAt
	if observed.IsZero() {
		observed = time.Now()
	}
	r.writeBack(cardID, live.Market, models.PriceSourceLive, observed, true)
}

// NeedsRefresh reports whether the persisted tier has no price, or a price
// older than maxAge, for the card.
func (r *PriceResolver) NeedsRefresh(cardID string, maxAge time.Duration) bool {
	if _, ok := r.robust.Get(cardID); ok {
		return false
	}
	var rec models.PriceRecord
	if err := r.db.Where("card_id = ?", cardID).First(&rec).Error; err != nil {
		return true
	}
	return time.Since(rec.ObservedAt) > maxAge
}
