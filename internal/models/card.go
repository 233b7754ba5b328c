package models

import (
	"time"
)

// Card is an immutable catalog record supplied by the card catalog.
type Card struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"not null;index"`
	Supertype     string    `json:"supertype"`
	SetName       string    `json:"set_name"`
	SetCode       string    `json:"set_code"`
	CardNumber    string    `json:"card_number"`
	Rarity        string    `json:"rarity"`
	ImageURLSmall string    `json:"image_url_small"`
	ImageURLLarge string    `json:"image_url_large"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CardSearchResult struct {
	Cards      []Card `json:"cards"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
}

// CardRef is the subset of catalog data a collection item carries with it so
// list views render without a catalog round trip.
type CardRef struct {
	ID       string `json:"card_id"`
	Name     string `json:"card_name"`
	ImageURL string `json:"card_image_small"`
}
