// Package models contains database model definitions.
package models

import "time"

// Asset represents a physical inventory item (laptop, monitor, phone, ...)
// that can be checked out to a user for a bounded period.
//
// Status is partly derived: the stored value is only authoritative for the
// sticky states (pending, retired); for everything else the display status is
// recomputed from CheckoutDate/ExpectedCheckinDate on every read. See
// internal/status.
type Asset struct {
	// ID is the unique identifier for the asset.
	ID uint64 `gorm:"primaryKey"`
	// Tag is the unique inventory tag printed on the asset.
	Tag string `gorm:"unique;size:100;not null"`
	// Name is the display name of the asset.
	Name string `gorm:"size:255;not null"`
	// Serial is the manufacturer serial number.
	Serial string `gorm:"size:255"`
	// Model describes the hardware model.
	Model string `gorm:"size:255"`
	// Status is the stored lifecycle status (see internal/status for the
	// derivation rules and the list of sticky values).
	Status string `gorm:"size:50;not null;default:'available'"`
	// AssigneeID is the user this asset is currently checked out to, nil when
	// the asset is in stock.
	AssigneeID *uint64 `gorm:"column:assignee_id"`
	// Assignee is the associated user (loaded via foreign key).
	Assignee *User `gorm:"foreignKey:AssigneeID;references:ID"`
	// CheckoutDate is the start of the current checkout window.
	CheckoutDate *time.Time
	// ExpectedCheckinDate is the end of the current checkout window.
	ExpectedCheckinDate *time.Time
	// Notes holds free-form remarks.
	Notes string `gorm:"size:1024"`
	// CreatedAt is the timestamp when the asset was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the asset was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Asset model.
func (Asset) TableName() string {
	return "assets"
}
