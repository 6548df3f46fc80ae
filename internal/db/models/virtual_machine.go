package models

import "time"

// VirtualMachine represents a provisioned VM with a bounded lifetime.
//
// Status follows the same derive-or-sticky split as Asset: "Overdue -
// Notified" and "Decommissioned" are only ever written by an explicit user
// action and are never recomputed; everything else is derived from
// StartDate/EndDate on read.
type VirtualMachine struct {
	// ID is the unique identifier for the virtual machine.
	ID uint64 `gorm:"primaryKey"`
	// Name is the unique VM name.
	Name string `gorm:"unique;size:255;not null"`
	// Hostname is the network hostname of the VM.
	Hostname string `gorm:"size:255"`
	// OwnerID is the user responsible for the VM.
	OwnerID *uint64 `gorm:"column:owner_id"`
	// Owner is the associated user (loaded via foreign key).
	Owner *User `gorm:"foreignKey:OwnerID;references:ID"`
	// Status is the stored lifecycle status.
	Status string `gorm:"size:50;not null;default:'Active'"`
	// StartDate is the beginning of the approved lifetime.
	StartDate *time.Time
	// EndDate is the end of the approved lifetime.
	EndDate *time.Time
	// Notes holds free-form remarks.
	Notes string `gorm:"size:1024"`
	// CreatedAt is the timestamp when the VM record was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the VM record was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the VirtualMachine model.
func (VirtualMachine) TableName() string {
	return "virtual_machines"
}
