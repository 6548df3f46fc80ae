package models

import "time"

// Permission represents one entry of the immutable permission catalog.
// The catalog is defined in code (internal/auth) and seeded at startup;
// entries are never edited through the UI. Permissions are assigned to
// roles, which are then assigned to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey"`
	// Name is the stable permission key in resource.action format
	// (e.g., "assets.checkout").
	Name string `gorm:"unique;size:100;not null"`
	// Resource is the resource this permission applies to (e.g., "assets", "vms").
	Resource string `gorm:"size:100;not null"`
	// Action is the action allowed on the resource (view, edit, add, delete,
	// or a resource-specific verb such as checkout).
	Action string `gorm:"size:50;not null"`
	// Category is the grouping label used when displaying the catalog.
	Category string `gorm:"size:100;not null"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
