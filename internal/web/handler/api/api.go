// Package api provides the JSON endpoints consumed by the console frontend:
// current subject, MFA status, role listing and authority changes.
package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	rolectl "github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/role"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
)

const (
	// Path is the base path for the JSON API.
	Path = handler.RootPath + "api"
)

// authorityPatch is the payload for changing a user's authority.
type authorityPatch struct {
	Authority string `json:"authority"` // "admin", "role" or "none"
	RoleID    uint   `json:"roleId"`
}

// Service provides the JSON API handlers.
type Service struct {
	handler.Service
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService

	app.Get(Path+"/user",
		guard.Require(authService, auth.Requirement{}),
		s.CurrentUser,
	)
	app.Get(Path+"/mfa/status",
		guard.Require(authService, auth.Requirement{}),
		s.MFAStatus,
	)
	app.Get(Path+"/roles",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionView),
		s.Roles,
	)
	app.Patch(Path+"/users/:id",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.PatchUser,
	)
}

// CurrentUser returns the authenticated subject.
func (s *Service) CurrentUser(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)
	if subject == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	return c.JSON(fiber.Map{
		"id":                 subject.ID,
		"username":           subject.Username,
		"isAdmin":            subject.IsAdmin,
		"roleId":             subject.RoleID,
		"permissions":        subject.Permissions,
		"mfaEnabled":         subject.MFAEnabled,
		"mustChangePassword": subject.MustChangePassword,
	})
}

// MFAStatus returns the subject's current MFA enrollment state, read fresh
// from the backend rather than from the session snapshot.
func (s *Service) MFAStatus(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)
	if subject == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "not authenticated",
		})
	}

	mfa, err := s.authService.MFAStatus(subject.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to read MFA status")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read MFA status",
		})
	}

	return c.JSON(fiber.Map{
		"enabled": mfa.Enabled,
	})
}

// Roles returns all roles with their permission grids.
func (s *Service) Roles(c *fiber.Ctx) error {
	roles, source, err := rolectl.List(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
	}

	return c.JSON(fiber.Map{
		"roles":  roles,
		"source": source,
	})
}

// PatchUser changes a user's authority: admin override, a role, or none.
// The two sources stay mutually exclusive.
func (s *Service) PatchUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid user id",
		})
	}

	var in authorityPatch
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	var authority auth.Authority

	switch in.Authority {
	case "admin":
		authority = auth.AdminAuthority()
	case "role":
		if in.RoleID == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "roleId is required",
			})
		}

		authority = auth.RoleAuthority(in.RoleID)
	case "none":
		authority = auth.NoAuthority()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "authority must be admin, role or none",
		})
	}

	if err := s.authService.SetSubjectAuthority(id, authority); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "user not found",
			})
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("failed to set authority")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to set authority",
		})
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}
