package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
)

// Service provides authorization data access: building Subject snapshots,
// reading MFA status, and mutating a subject's authority fields.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Snapshot loads the user and resolves their role's permissions into a
// Subject snapshot. The snapshot is what sessions store and what every
// evaluator and guard call reads.
func (s *Service) Snapshot(userID uint64) (*Subject, error) {
	var user models.User

	err := s.db.First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	grid := Grid{}

	if user.RoleID != nil {
		ids, errPerms := s.rolePermissionIDs(*user.RoleID)
		if errPerms != nil {
			return nil, errPerms
		}

		grid = ParseGrid(ids)
	}

	return &Subject{
		ID:                 user.ID,
		Username:           user.Username,
		IsAdmin:            user.IsAdmin,
		RoleID:             user.RoleID,
		Permissions:        grid,
		MFAEnabled:         user.MFAEnabled,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// rolePermissionIDs returns the permission ids assigned to a role.
func (s *Service) rolePermissionIDs(roleID uint) ([]string, error) {
	var ids []string

	err := s.db.Table("permissions").
		Select("permissions.name").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Pluck("permissions.name", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}

	return ids, nil
}

// MFAStatus reads the subject's current MFA enrollment state. Guards fetch
// this once per evaluation so a mid-session enrollment takes effect on the
// next request.
func (s *Service) MFAStatus(userID uint64) (*MFAStatus, error) {
	var user models.User

	err := s.db.Select("mfa_enabled").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load mfa status: %w", err)
	}

	return &MFAStatus{Enabled: user.MFAEnabled}, nil
}

// Authority is the tagged authority source written to a subject: admin flag,
// a role id, or neither. Exactly one arm is set; constructing a conflicting
// value is not possible through the constructors.
type Authority struct {
	admin  bool
	roleID *uint
}

// AdminAuthority marks the subject as admin (and clears any role).
func AdminAuthority() Authority {
	return Authority{admin: true}
}

// RoleAuthority assigns the given role (and clears the admin flag).
func RoleAuthority(roleID uint) Authority {
	return Authority{roleID: &roleID}
}

// NoAuthority clears both the admin flag and the role.
func NoAuthority() Authority {
	return Authority{}
}

// SetSubjectAuthority writes the subject's authority source. Both columns are
// always written in one statement so a subject can never be observed holding
// a stale admin flag next to a role, or vice versa. A failed write leaves
// the previous state fully intact.
func (s *Service) SetSubjectAuthority(userID uint64, a Authority) error {
	if a.admin && a.roleID != nil {
		return ErrAuthorityConflict
	}

	res := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_admin": a.admin,
			"role_id":  a.roleID,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update authority: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ToggleAdmin is the quick admin on/off toggle. Turning admin on clears the
// role per the single-authority invariant; turning it off leaves the subject
// with no authority until a role is assigned.
func (s *Service) ToggleAdmin(userID uint64, enabled bool) error {
	if enabled {
		return s.SetSubjectAuthority(userID, AdminAuthority())
	}

	return s.SetSubjectAuthority(userID, NoAuthority())
}

// EnableMFA stores the confirmed TOTP secret and marks enrollment complete.
func (s *Service) EnableMFA(userID uint64, secret string) error {
	res := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"mfa_enabled": true,
			"mfa_secret":  secret,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to enable mfa: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DisableMFA clears enrollment, forcing the subject back through setup on
// their next request.
func (s *Service) DisableMFA(userID uint64) error {
	res := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"mfa_enabled": false,
			"mfa_secret":  "",
		})
	if res.Error != nil {
		return fmt.Errorf("failed to disable mfa: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
