package models

import "time"

// IAMAccount represents a time-bounded access grant on an external system
// (cloud account, directory entry, service login).
//
// Suspended and Revoked are sticky statuses; Active/Expired are derived from
// the grant window on read.
type IAMAccount struct {
	// ID is the unique identifier for the IAM account record.
	ID uint64 `gorm:"primaryKey"`
	// AccountName is the login or principal name on the external system.
	AccountName string `gorm:"size:255;not null"`
	// System names the external system the grant applies to (e.g., "aws-prod").
	System string `gorm:"size:255;not null"`
	// GranteeID is the console user the grant belongs to.
	GranteeID *uint64 `gorm:"column:grantee_id"`
	// Grantee is the associated user (loaded via foreign key).
	Grantee *User `gorm:"foreignKey:GranteeID;references:ID"`
	// Status is the stored lifecycle status.
	Status string `gorm:"size:50;not null;default:'Active'"`
	// StartDate is the beginning of the grant window.
	StartDate *time.Time
	// EndDate is the end of the grant window.
	EndDate *time.Time
	// Notes holds free-form remarks.
	Notes string `gorm:"size:1024"`
	// CreatedAt is the timestamp when the grant was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the grant was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the IAMAccount model.
func (IAMAccount) TableName() string {
	return "iam_accounts"
}
