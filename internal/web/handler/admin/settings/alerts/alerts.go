// Package alerts provides the admin screen for the overdue alerting
// settings.
package alerts

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	alertsctl "github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/alerts"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/controller/setting"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/dashboard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/navigation"
)

const (
	// Path is the path of the alert settings page.
	Path = handler.RootPath + "admin/settings/alerts"

	// TemplateName is the alert settings template.
	TemplateName = "admin/settings/alerts"
)

// Service provides the alert settings handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
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
	s.validator = validator.New()

	app.Get(Path,
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionView),
		s.Get,
	)
	app.Post(Path,
		guard.RequirePermission(authService, auth.ResourceAdmin, auth.ActionEdit),
		s.Post,
	)
}

// Get shows the current alert settings, falling back to defaults when none
// have been saved yet.
func (s *Service) Get(c *fiber.Ctx) error {
	settings := alertsctl.Defaults()

	if err := settings.Load(s.db); err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		log.Error().Err(err).Msg("failed to load alert settings")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Navigation": nav(),
			"Error":      "Failed to load alert settings",
			"Settings":   alertsctl.Defaults(),
		}, handler.BaseLayout)
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav(),
		"Settings":   settings,
	}, handler.BaseLayout)
}

// Post saves new alert settings.
func (s *Service) Post(c *fiber.Ctx) error {
	var settings alertsctl.Settings

	if err := c.BodyParser(&settings); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"Navigation": nav(),
			"Error":      "Invalid form data",
			"Settings":   alertsctl.Defaults(),
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(settings); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"Navigation": nav(),
			"Error":      "Please correct the highlighted errors",
			"Settings":   settings,
		}, handler.BaseLayout)
	}

	if err := settings.Save(s.db); err != nil {
		log.Error().Err(err).Msg("failed to save alert settings")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateName, fiber.Map{
			"Navigation": nav(),
			"Error":      "Failed to save alert settings",
			"Settings":   settings,
		}, handler.BaseLayout)
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav(),
		"Success":    "Alert settings saved.",
		"Settings":   settings,
	}, handler.BaseLayout)
}

func nav() *navigation.Context {
	return navigation.NewContext("Alert Settings", "admin", "settings-alerts").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Admin", "#", false).
		AddBreadcrumb("Alert Settings", Path, true)
}
