// Package role provides CRUD operations for roles and their permission grids.
package role

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleIsSystem is returned when attempting to delete a predefined role.
	ErrRoleIsSystem = errors.New("predefined roles cannot be deleted")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// ValidationError reports a rejected role mutation. It is distinct from
// infrastructure errors so handlers can render it as user feedback.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid role %s: %s", e.Field, e.Message)
}

// Source tells where a role listing came from. When the database cannot be
// reached the caller still gets the builtin predefined roles, so screens can
// render a usable (if read-only) role picker.
type Source string

const (
	// SourceServer marks a listing read from the database.
	SourceServer Source = "server"
	// SourceBuiltin marks the compiled-in fallback listing.
	SourceBuiltin Source = "builtin"
)

// Role is the controller view of a role: the record plus its resolved
// permission ids.
type Role struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsSystem    bool     `json:"isSystem"`
	Permissions []string `json:"permissions"`
}

// List returns all roles with their permission ids. On a database error, or
// when the role table has not been seeded yet, the builtin predefined roles
// are returned instead, tagged SourceBuiltin.
func List(db *gorm.DB) ([]Role, Source, error) {
	if db == nil {
		return Builtin(), SourceBuiltin, nil
	}

	var records []models.Role
	if err := db.Order("id").Find(&records).Error; err != nil {
		return Builtin(), SourceBuiltin, nil
	}

	if len(records) == 0 {
		return Builtin(), SourceBuiltin, nil
	}

	out := make([]Role, 0, len(records))

	for _, r := range records {
		ids, err := permissionIDs(db, r.ID)
		if err != nil {
			return nil, SourceServer, err
		}

		out = append(out, Role{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			IsSystem:    r.IsSystem,
			Permissions: ids,
		})
	}

	return out, SourceServer, nil
}

// Get returns one role with its permission ids.
func Get(db *gorm.DB, id uint) (*Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var record models.Role
	if err := db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, err
	}

	ids, err := permissionIDs(db, record.ID)
	if err != nil {
		return nil, err
	}

	return &Role{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		IsSystem:    record.IsSystem,
		Permissions: ids,
	}, nil
}

// Create creates a role carrying the given permission ids. The name must be
// non-empty and every id must exist in the permission catalog.
func Create(db *gorm.DB, name, description string, ids []string) (*Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name cannot be empty"}
	}

	for _, id := range ids {
		if !auth.InCatalog(id) {
			return nil, &ValidationError{Field: "permissions", Message: fmt.Sprintf("unknown permission %q", id)}
		}
	}

	record := models.Role{Name: name, Description: description}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		return assignPermissions(tx, record.ID, ids)
	})
	if err != nil {
		return nil, err
	}

	return &Role{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		Permissions: ids,
	}, nil
}

// Update replaces a role's description and permission grid. System roles
// accept grid updates but keep their name.
func Update(db *gorm.DB, id uint, description string, ids []string) error {
	if db == nil {
		return ErrDBNil
	}

	for _, pid := range ids {
		if !auth.InCatalog(pid) {
			return &ValidationError{Field: "permissions", Message: fmt.Sprintf("unknown permission %q", pid)}
		}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Role{}).Where("id = ?", id).Update("description", description)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrRoleNotFound
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return assignPermissions(tx, id, ids)
	})
}

// Delete removes a role. Predefined roles and roles still assigned to users
// are refused.
func Delete(db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	var record models.Role
	if err := db.First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}

		return err
	}

	if record.IsSystem {
		return ErrRoleIsSystem
	}

	var assigned int64
	if err := db.Model(&models.User{}).Where("role_id = ?", id).Count(&assigned).Error; err != nil {
		return err
	}

	if assigned > 0 {
		return &ValidationError{Field: "role", Message: fmt.Sprintf("role is assigned to %d user(s)", assigned)}
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Role{}, id).Error
	})
}

// assignPermissions links the given catalog ids to the role.
func assignPermissions(tx *gorm.DB, roleID uint, ids []string) error {
	for _, id := range ids {
		var perm models.Permission
		if err := tx.Where("name = ?", id).First(&perm).Error; err != nil {
			return fmt.Errorf("permission %q not seeded: %w", id, err)
		}

		if err := tx.Create(&models.RolePermission{RoleID: roleID, PermissionID: perm.ID}).Error; err != nil {
			return err
		}
	}

	return nil
}

// permissionIDs resolves the catalog ids assigned to a role.
func permissionIDs(db *gorm.DB, roleID uint) ([]string, error) {
	var names []string

	err := db.Model(&models.RolePermission{}).
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id").
		Pluck("permissions.name", &names).Error
	if err != nil {
		return nil, err
	}

	return names, nil
}
