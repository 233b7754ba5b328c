package models

import (
	"time"
)

// CollectionType distinguishes owned cards from wishlist cards.
type CollectionType string

const (
	CollectionHave CollectionType = "have"
	CollectionWant CollectionType = "want"
)

// AllCollectionTypes returns all valid collection types
func AllCollectionTypes() []CollectionType {
	return []CollectionType{CollectionHave, CollectionWant}
}

// Valid reports whether t is a known collection type.
func (t CollectionType) Valid() bool {
	return t == CollectionHave || t == CollectionWant
}

// CollectionItem is one card entry in a group's have or want list, uniquely
// keyed by (user, group, type, card). An item with quantity 0 is absent and
// never persisted.
type CollectionItem struct {
	ID             uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID         string         `json:"-" gorm:"not null;uniqueIndex:idx_user_group_type_card"`
	GroupName      string         `json:"group_name" gorm:"not null;uniqueIndex:idx_user_group_type_card"`
	Type           CollectionType `json:"type" gorm:"not null;uniqueIndex:idx_user_group_type_card"`
	CardID         string         `json:"card_id" gorm:"not null;uniqueIndex:idx_user_group_type_card"`
	CardName       string         `json:"card_name"`
	CardImageURL   string         `json:"card_image_small"`
	Quantity       int            `json:"quantity" gorm:"not null;default:1"`
	MarketPrice    float64        `json:"market_price"`
	LastModifiedAt time.Time      `json:"last_modified_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Ref returns the catalog reference carried by this item.
func (i *CollectionItem) Ref() CardRef {
	return CardRef{ID: i.CardID, Name: i.CardName, ImageURL: i.CardImageURL}
}

// GroupCollections is one group with its two typed item lists.
type GroupCollections struct {
	Group Group            `json:"group"`
	Have  []CollectionItem `json:"have"`
	Want  []CollectionItem `json:"want"`
}

// GroupedCollections is the full collection of one user, keyed group -> type.
type GroupedCollections struct {
	Groups []GroupCollections `json:"groups"`
}

// Operation statuses returned by the store. The store never raises; every
// mutation reports one of these plus an optional message.
const (
	StatusAdded       = "added"
	StatusUpdated     = "updated"
	StatusDecremented = "decremented"
	StatusRemoved     = "removed"
	StatusNotFound    = "not_found"
	StatusOK          = "ok"
	StatusError       = "error"
)

// AddResult reports the outcome of an AddItem call.
type AddResult struct {
	Status      string `json:"status"`
	NewQuantity int    `json:"new_quantity,omitempty"`
	Message     string `json:"message,omitempty"`
}

// RemoveResult reports the outcome of a RemoveItem call.
type RemoveResult struct {
	Status      string `json:"status"`
	NewQuantity int    `json:"new_quantity"`
	Message     string `json:"message,omitempty"`
}

// OpResult reports the outcome of a group lifecycle operation.
type OpResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
