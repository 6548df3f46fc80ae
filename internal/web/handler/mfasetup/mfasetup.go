// Package mfasetup provides the mandatory TOTP enrollment screen.
//
// Every authenticated user without completed enrollment is redirected here
// by the route guard, admins included. The screen generates a secret, shows
// the otpauth:// URL for authenticator apps and activates MFA once the user
// confirms a valid code.
package mfasetup

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
	// Path is the path to the MFA enrollment page. It must match the
	// guard's enrollment redirect target.
	Path = auth.RedirectMFASetup

	// TemplateName is the enrollment template.
	TemplateName = "mfa_setup"
)

// form is the enrollment confirmation payload.
type form struct {
	Code string `form:"code" validate:"required,len=6,numeric"`
}

// Service is the MFA enrollment handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	validator   *validator.Validate
}

// Handler is the MFA enrollment handler.
var Handler = Service{}

// Init initializes the MFA enrollment handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.validator = validator.New()

	app.Get(Path, guard.Require(authService, auth.Requirement{}), s.Get)
	app.Post(Path, guard.Require(authService, auth.Requirement{}), s.Post)
}

// Get generates a fresh secret, stashes it in the session and renders the
// enrollment screen. Reloading generates a new secret; only the confirmed
// one is activated.
func (s *Service) Get(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)
	sessData := guard.SessionData(c)

	if subject == nil || sessData == nil {
		return c.Redirect(auth.RedirectLogin)
	}

	// Already enrolled: nothing to set up.
	if status, err := s.authService.MFAStatus(subject.ID); err == nil && status.Enabled {
		return c.Redirect(dashboard.Path)
	}

	key, err := auth.GenerateMFAKey(s.cfg.Auth.MFA.Issuer, subject.Username)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to generate TOTP key")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to generate TOTP key")
	}

	sessData.PendingMFASecret = key.Secret()

	cookie := c.Cookies(session.CookieName)
	if err := sessData.Write(cookie, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to stash enrollment secret in session")

		return c.Status(fiber.StatusInternalServerError).SendString("failed to update session")
	}

	return c.Render(TemplateName, fiber.Map{
		"secret":      key.Secret(),
		"otpauth_url": key.String(),
	})
}

// Post verifies the submitted code against the stashed secret and activates
// MFA for the subject.
func (s *Service) Post(c *fiber.Ctx) error {
	subject := guard.CurrentSubject(c)
	sessData := guard.SessionData(c)

	if subject == nil || sessData == nil {
		return c.Redirect(auth.RedirectLogin)
	}

	if sessData.PendingMFASecret == "" {
		return c.Redirect(Path)
	}

	var f form

	if err := c.BodyParser(&f); err != nil {
		return s.renderError(c, sessData, "invalid form data")
	}

	if err := s.validator.Struct(f); err != nil {
		return s.renderError(c, sessData, "code must be 6 digits")
	}

	if !auth.ValidateMFACode(f.Code, sessData.PendingMFASecret) {
		return s.renderError(c, sessData, auth.ErrInvalidMFACode.Error())
	}

	if err := s.authService.EnableMFA(subject.ID, sessData.PendingMFASecret); err != nil {
		log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to enable MFA")

		return s.renderError(c, sessData, "failed to enable MFA")
	}

	// Clear the pending secret and refresh the snapshot.
	sessData.PendingMFASecret = ""

	if fresh, err := s.authService.Snapshot(subject.ID); err == nil {
		sessData.Subject = *fresh
	}

	cookie := c.Cookies(session.CookieName)
	if err := sessData.Write(cookie, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to update session after enrollment")
	}

	return c.Redirect(dashboard.Path)
}

// renderError re-renders the screen keeping the same pending secret so the
// user can retry without rescanning.
func (s *Service) renderError(c *fiber.Ctx, sessData *session.Data, msg string) error {
	return c.Render(TemplateName, fiber.Map{
		"secret": sessData.PendingMFASecret,
		"error":  msg,
	})
}
