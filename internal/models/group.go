package models

import (
	"time"
)

// DefaultGroupName is the group every user always has. It is created on first
// load, cannot be renamed or deleted, and receives items that are added
// without an explicit group.
const DefaultGroupName = "Default"

// Group is a named partition of a user's collection ("Default", "Trade
// Binder", ...). Aggregated value columns are recomputed by ComputeGroupValue
// and the value worker.
type Group struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      string    `json:"-" gorm:"not null;uniqueIndex:idx_user_group_name"`
	Name        string    `json:"name" gorm:"not null;uniqueIndex:idx_user_group_name"`
	Description string    `json:"description"`
	HaveValue   float64   `json:"have_value"`
	WantValue   float64   `json:"want_value"`
	TotalValue  float64   `json:"total_value"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Group) TableName() string {
	return "collection_groups"
}

// GroupValue is the aggregate value of one group, split by collection type.
type GroupValue struct {
	HaveValue  float64 `json:"have_value"`
	WantValue  float64 `json:"want_value"`
	TotalValue float64 `json:"total_value"`
}

// GroupValueSnapshot records a group's value on a given day for history
// charting.
type GroupValueSnapshot struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string    `json:"-" gorm:"not null;index"`
	GroupName    string    `json:"group_name" gorm:"not null;index"`
	SnapshotDate time.Time `json:"snapshot_date" gorm:"not null;index"`
	HaveValue    float64   `json:"have_value"`
	WantValue    float64   `json:"want_value"`
	TotalValue   float64   `json:"total_value"`
	TotalCards   int       `json:"total_cards"`
	CreatedAt    time.Time `json:"created_at"`
}

type ValueHistoryResponse struct {
	Snapshots []GroupValueSnapshot `json:"snapshots"`
	Period    string               `json:"period"`
}
