// Package password provides the password change screen.
package password

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/dashboard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/middleware/guard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/session"
)

const (
	// Path is the path to the password change page.
	Path = "/password"

	// TemplateName is the password change template.
	TemplateName = "password"
)

// form is the password change payload.
type form struct {
	OldPassword     string `form:"old_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// Service is the password change handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	localAuth   *auth.LocalProvider
	validator   *validator.Validate
}

// Handler is the password change handler.
var Handler = Service{}

// Init initializes the password change handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.localAuth = auth.NewLocalProvider(db)
	s.validator = validator.New()

	// authentication only; no permission requirement
	app.Get(Path, guard.Require(authService, auth.Requirement{}), s.Get)
	app.Post(Path, guard.Require(authService, auth.Requirement{}), s.Post)
}

// Get renders the password change form.
func (s *Service) Get(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)

	return c.Render(TemplateName, fiber.Map{
		"forced": subject != nil && subject.MustChangePassword,
	})
}

// Post changes the password and refreshes the session snapshot so the
// forced-change flag clears immediately.
func (s *Service) Post(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)
	if subject == nil {
		return c.Redirect(auth.RedirectLogin)
	}

	var f form

	if err := c.BodyParser(&f); err != nil {
		return c.Render(TemplateName, fiber.Map{"error": "invalid form data"})
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Render(TemplateName, fiber.Map{"error": "passwords must match and be at least 8 characters"})
	}

	if err := s.localAuth.ChangePassword(subject.ID, f.OldPassword, f.NewPassword); err != nil {
		log.Debug().Err(err).Uint64("user_id", subject.ID).Msg("password change rejected")

		return c.Render(TemplateName, fiber.Map{"error": "current password is incorrect"})
	}

	fresh, err := s.authService.Snapshot(subject.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to refresh subject after password change")

		return c.Redirect(dashboard.Path)
	}

	sessData := &session.Data{Subject: *fresh, LoggedIn: true}
	if err := session.Establish(c, sessData, s.cfg.Webserver.Session.ExpiryTime, s.cfg.DevMode); err != nil {
		log.Error().Err(err).Msg("failed to refresh session")
	}

	return c.Redirect(dashboard.Path)
}
