package models

import (
	"time"
)

// PriceSource identifies which tier produced a price record.
type PriceSource string

const (
	PriceSourceLive   PriceSource = "live"
	PriceSourceRobust PriceSource = "robust"
	PriceSourceLegacy PriceSource = "legacy"
)

// AllPriceSources returns all valid price sources
func AllPriceSources() []PriceSource {
	return []PriceSource{PriceSourceLive, PriceSourceRobust, PriceSourceLegacy}
}

// PriceRecord is the persisted price tier. One row per card; overwritten on
// every successful resolution so the tier stays warm across restarts.
type PriceRecord struct {
	CardID     string      `json:"card_id" gorm:"primaryKey"`
	Price      float64     `json:"price"`
	Source     PriceSource `json:"source"`
	ObservedAt time.Time   `json:"observed_at"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (PriceRecord) TableName() string {
	return "price_records"
}

// LivePrice is market price data accompanying a card fetch, e.g. the pricing
// payload a detail view already holds. A zero Market value is treated as "no
// usable live price".
type LivePrice struct {
	Market     float64   `json:"market"`
	ObservedAt time.Time `json:"observed_at"`
}
