package models

import (
	"time"
)

// ExportDocument is the portable, versioned snapshot of one group+type
// collection. Field names are part of the interchange contract; documents
// produced by older builds remain importable.
type ExportDocument struct {
	CollectionType CollectionType `json:"collection_type"`
	GroupName      string         `json:"group_name"`
	CollectionName string         `json:"collection_name,omitempty"`
	ExportedAt     time.Time      `json:"exported_at"`
	Items          []ExportItem   `json:"items"`
}

// ExportItem is one card entry in an export document.
type ExportItem struct {
	CardID         string  `json:"card_id"`
	CardName       string  `json:"card_name"`
	CardImageSmall string  `json:"card_image_small"`
	Quantity       int     `json:"quantity"`
	MarketPrice    float64 `json:"market_price"`
}

// ImportFailure describes one item that could not be imported.
type ImportFailure struct {
	CardID string `json:"card_id"`
	Reason string `json:"reason"`
}

// ImportReport summarizes an import: failed items are reported, succeeded
// items commit regardless.
type ImportReport struct {
	GroupName    string          `json:"group_name"`
	Type         CollectionType  `json:"type"`
	Imported     int             `json:"imported"`
	Failed       []ImportFailure `json:"failed,omitempty"`
	GroupCreated bool            `json:"group_created,omitempty"`
}
