// Package role provides handlers for managing roles and their permission
// grids in the admin area.
package role

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
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/dashboard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/navigation"
)

const (
	// Path is the base path for role management.
	Path = handler.RootPath + "admin/role"

	// TemplateList is the template for listing roles.
	TemplateList = "admin/role/list"
	// TemplateForm is the template for creating/updating a role.
	TemplateForm = "admin/role/form"
)

// roleForm is the payload for creating and updating roles. Permissions holds
// the selected catalog ids.
type roleForm struct {
	Name        string   `form:"name"`
	Description string   `form:"description"`
	Permissions []string `form:"permissions"`
}

// Service provides role management handlers.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
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

	app.Get(Path,
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionView),
		s.List,
	)
	app.Get(Path+"/new",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.New,
	)
	app.Post(Path,
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.Edit,
	)
	app.Post(Path+"/:id",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.Delete,
	)
}

// List shows all roles. When the database is unreachable the built-in role
// set is shown instead, tagged with its source.
func (s *Service) List(c *fiber.Ctx) error {
	nav := listNav()

	roles, source, err := rolectl.List(s.db)
	if err != nil {
		log.Error().Err(err).Msg("failed to list roles")
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": nav,
		"Roles":      roles,
		"Source":     source,
	}, handler.BaseLayout)
}

// New shows the creation form with the permission catalog grouped by
// category.
func (s *Service) New(c *fiber.Ctx) error {
	nav := navigation.NewContext("New Role", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, false).
		AddBreadcrumb("New", Path+"/new", true)

	categories, grouped := auth.CatalogByCategory()

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Role":       rolectl.Role{},
		"IsCreate":   true,
		"Categories": categories,
		"Catalog":    grouped,
	}, handler.BaseLayout)
}

// Create creates a new role with the selected permissions.
func (s *Service) Create(c *fiber.Ctx) error {
	var in roleForm
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if _, err := rolectl.Create(s.db, in.Name, in.Description, in.Permissions); err != nil {
		var verr *rolectl.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
				"Navigation": listNav(),
				"Error":      verr.Message,
			}, handler.BaseLayout)
		}

		log.Error().Err(err).Str("role", in.Name).Msg("failed to create role")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      "Failed to create role",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form for a role.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	role, err := rolectl.Get(s.db, uint(id))
	if err != nil {
		if errors.Is(err, rolectl.ErrRoleNotFound) {
			return c.Redirect(Path)
		}

		log.Error().Err(err).Uint64("role_id", id).Msg("failed to load role")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to load role",
		}, handler.BaseLayout)
	}

	nav := navigation.NewContext("Edit Role", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, false).
		AddBreadcrumb("Edit", Path+"/"+strconv.FormatUint(id, 10)+"/edit", true)

	categories, grouped := auth.CatalogByCategory()

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": nav,
		"Role":       role,
		"IsCreate":   false,
		"Categories": categories,
		"Catalog":    grouped,
	}, handler.BaseLayout)
}

// Update replaces a role's description and permission grid.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	var in roleForm
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := rolectl.Update(s.db, uint(id), in.Description, in.Permissions); err != nil {
		if errors.Is(err, rolectl.ErrRoleNotFound) {
			return c.Redirect(Path)
		}

		var verr *rolectl.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
				"Error": verr.Message,
			}, handler.BaseLayout)
		}

		log.Error().Err(err).Uint64("role_id", id).Msg("failed to update role")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Failed to update role",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a role. System roles and roles still assigned to users are
// refused.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := rolectl.Delete(s.db, uint(id)); err != nil {
		if errors.Is(err, rolectl.ErrRoleNotFound) {
			return c.Redirect(Path)
		}

		msg := "Failed to delete role"

		if errors.Is(err, rolectl.ErrRoleIsSystem) {
			msg = "System roles cannot be deleted."
		}

		var verr *rolectl.ValidationError
		if errors.As(err, &verr) {
			msg = verr.Message
		}

		return c.Status(fiber.StatusBadRequest).Render(TemplateList, fiber.Map{
			"Navigation": listNav(),
			"Error":      msg,
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

func listNav() *navigation.Context {
	return navigation.NewContext("Roles", "admin", "role").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Roles", Path, true)
}
