package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/role"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

// seed brings the database to a usable state: the permission catalog, the
// predefined roles and a first admin account when the user table is empty.
func seed(_ *config.Config, db *gorm.DB) {
	seedPermissions(db)
	seedRoles(db)
	seedAdmin(db)
}

// seedPermissions upserts the code-defined permission catalog. Rows are
// matched by name so re-running on upgrades adds new entries and refreshes
// display metadata without touching role assignments.
func seedPermissions(db *gorm.DB) {
	for _, e := range auth.Catalog() {
		perm := models.Permission{
			Name:        e.ID,
			Resource:    string(e.Resource),
			Action:      string(e.Action),
			Category:    e.Category,
			Description: e.Description,
		}

		err := db.Where("name = ?", e.ID).
			Assign(models.Permission{
				Resource:    perm.Resource,
				Action:      perm.Action,
				Category:    perm.Category,
				Description: perm.Description,
			}).
			FirstOrCreate(&perm).Error
		if err != nil {
			log.Error().Err(err).Str("permission", e.ID).Msg("failed to seed permission")
		}
	}
}

// seedRoles creates the predefined system roles. Existing roles are left
// untouched so admins can tune their grids.
func seedRoles(db *gorm.DB) {
	for _, r := range role.Builtin() {
		var existing models.Role
		if err := db.Where("name = ?", r.Name).First(&existing).Error; err == nil {
			continue // role already present, leave its grid alone
		}

		record := models.Role{
			Name:        r.Name,
			Description: r.Description,
			IsSystem:    true,
		}

		if err := db.Create(&record).Error; err != nil {
			log.Error().Err(err).Str("role", r.Name).Msg("failed to seed role")
			continue
		}

		for _, permName := range r.Permissions {
			var perm models.Permission
			if err := db.Where("name = ?", permName).First(&perm).Error; err != nil {
				log.Error().Err(err).Str("permission", permName).Msg("seed role references unknown permission")
				continue
			}

			if err := db.Create(&models.RolePermission{RoleID: record.ID, PermissionID: perm.ID}).Error; err != nil {
				log.Error().Err(err).Str("role", r.Name).Str("permission", permName).
					Msg("failed to seed role permission")
			}
		}
	}
}

// seedAdmin creates the first admin account when the user table is empty.
// The account carries the admin flag, not a role, and must change its
// password on first login.
func seedAdmin(db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)

	if count != 0 {
		return
	}

	admin := models.User{
		Username:           "admin",
		Email:              "admin@localhost",
		Password:           models.HashPassword("changeme"),
		Active:             true,
		IsAdmin:            true,
		MustChangePassword: true,
		AuthSource:         models.AuthSourceLocal,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin user")
		return
	}

	log.Info().Msg("seeded initial admin user 'admin' with password 'changeme'")
}
