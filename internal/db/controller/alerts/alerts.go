// Package alerts stores the overdue alerting settings as a settings blob.
package alerts

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/setting"
)

const (
	// SettingKeyAlerts is the key used to store alert settings in the database.
	SettingKeyAlerts = "alerts"
)

type (
	// Settings controls how overdue resources are surfaced on the dashboard
	// and in notification mails.
	Settings struct {
		// WarnDaysBefore surfaces resources this many days before their
		// end date passes.
		WarnDaysBefore int `form:"warn_days_before" json:"warnDaysBefore" validate:"min=0,max=90"`
		// NotifyEmail receives overdue digests when set.
		NotifyEmail string `form:"notify_email" json:"notifyEmail" validate:"omitempty,email"`
		// IncludeAssets includes overdue asset checkouts in alerts.
		IncludeAssets bool `form:"include_assets" json:"includeAssets"`
		// IncludeVMs includes overdue virtual machines in alerts.
		IncludeVMs bool `form:"include_vms" json:"includeVMs"`
		// IncludeIAM includes expired IAM grants in alerts.
		IncludeIAM bool `form:"include_iam" json:"includeIAM"`
	}
)

// Defaults returns the alert settings used before an admin saves any.
func Defaults() Settings {
	return Settings{
		WarnDaysBefore: 3,
		IncludeAssets:  true,
		IncludeVMs:     true,
		IncludeIAM:     true,
	}
}

// Load loads the alert settings from the database.
func (a *Settings) Load(db *gorm.DB) error {
	// Retrieve the setting from the database
	s, err := setting.Get(db, SettingKeyAlerts)
	if err != nil {
		return err
	}

	// Unmarshal the JSON blob into the struct
	return json.Unmarshal(s.Value, a)
}

// Save saves the alert settings to the database.
func (a *Settings) Save(db *gorm.DB) error {
	// Marshal the struct to JSON
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	// Save or update the setting in the database
	_, err = setting.Set(db, SettingKeyAlerts, data)

	return err
}
