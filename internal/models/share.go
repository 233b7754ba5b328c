package models

import (
	"time"
)

// ShareScope selects which part of a group a snapshot copies.
type ShareScope string

const (
	ShareScopeHave  ShareScope = "have"
	ShareScopeWant  ShareScope = "want"
	ShareScopeGroup ShareScope = "group"
)

// Valid reports whether s is a known share scope.
func (s ShareScope) Valid() bool {
	return s == ShareScopeHave || s == ShareScopeWant || s == ShareScopeGroup
}

// SharePermission controls what a snapshot viewer may do.
type SharePermission string

const (
	SharePermissionRead  SharePermission = "read"
	SharePermissionWrite SharePermission = "write"
)

// ShareSnapshot is an immutable, time-boxed copy of collection data exposed
// via an opaque share link. Expiry is checked lazily on access; expired
// snapshots are inert but never purged.
type ShareSnapshot struct {
	ShareID       string          `json:"share_id" gorm:"primaryKey"`
	UserID        string          `json:"-" gorm:"not null;index"`
	GroupName     string          `json:"group_name" gorm:"not null;index"`
	Scope         ShareScope      `json:"scope" gorm:"not null"`
	ItemsJSON     string          `json:"-" gorm:"type:text"`
	Permission    SharePermission `json:"permission" gorm:"not null;default:'read'"`
	PasswordHash  string          `json:"-"`
	Collaborative bool            `json:"collaborative"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at" gorm:"not null"`
}

func (ShareSnapshot) TableName() string {
	return "share_snapshots"
}

// Expired reports whether the snapshot is past its expiry at the given time.
func (s *ShareSnapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PasswordProtected reports whether access requires a password.
func (s *ShareSnapshot) PasswordProtected() bool {
	return s.PasswordHash != ""
}

// ShareItem is one frozen collection entry inside a snapshot payload.
type ShareItem struct {
	Type         CollectionType `json:"type"`
	CardID       string         `json:"card_id"`
	CardName     string         `json:"card_name"`
	CardImageURL string         `json:"card_image_small"`
	Quantity     int            `json:"quantity"`
	MarketPrice  float64        `json:"market_price"`
}

// SharePayload is what a viewer of a share link receives.
type SharePayload struct {
	ShareID       string          `json:"share_id"`
	GroupName     string          `json:"group_name"`
	Scope         ShareScope      `json:"scope"`
	Permission    SharePermission `json:"permission"`
	Collaborative bool            `json:"collaborative"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Items         []ShareItem     `json:"items"`
}
