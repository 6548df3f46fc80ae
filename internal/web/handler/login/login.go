package login

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/config"
	"github.com/GoAssetDesk/GoAssetDesk/internal/db/models"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/dashboard"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/handler/password"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// ChallengePath is the path to the TOTP challenge step.
	ChallengePath = Path + "/mfa"

	// TemplateName is the login page template.
	TemplateName = "login"
	// TemplateChallenge is the TOTP challenge template.
	TemplateChallenge = "login_mfa"

	authTypeLocal = "local"
	authTypeLDAP  = "ldap"
)

// form is the login form payload.
type form struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
	AuthType string `form:"auth_type"`
}

// challengeForm is the TOTP challenge payload.
type challengeForm struct {
	Code string `form:"code" validate:"required,len=6,numeric"`
}

// Service is the login handler service.
type Service struct {
	cfg         *config.Config
	db          *gorm.DB
	authService *auth.Service
	localAuth   *auth.LocalProvider
	ldapAuth    *auth.LDAPProvider
	validator   *validator.Validate
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.authService = authService
	s.validator = validator.New()

	if cfg.Auth.Local.Enabled {
		s.localAuth = auth.NewLocalProvider(db)
	}

	if cfg.Auth.LDAP.Enabled {
		ldapAuth, err := auth.NewLDAPProvider(ldapConfig(cfg), db)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize LDAP provider, ldap login disabled")
		} else {
			s.ldapAuth = ldapAuth
		}
	}

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})
	app.Get(ChallengePath, s.GetChallenge)
	app.Post(ChallengePath, s.PostChallenge)
}

// ldapConfig maps the toml auth section onto the provider config.
func ldapConfig(cfg *config.Config) *auth.LDAPConfig {
	out := &auth.LDAPConfig{
		Host:         cfg.Auth.LDAP.Host,
		Port:         cfg.Auth.LDAP.Port,
		UseTLS:       cfg.Auth.LDAP.UseTLS,
		SkipVerify:   cfg.Auth.LDAP.SkipVerify,
		BindDN:       cfg.Auth.LDAP.BindDN,
		BindPassword: cfg.Auth.LDAP.BindPassword,
		BaseDN:       cfg.Auth.LDAP.BaseDN,
		UserFilter:   cfg.Auth.LDAP.UserFilter,
	}

	if cfg.Auth.LDAP.DefaultRoleID != 0 {
		roleID := cfg.Auth.LDAP.DefaultRoleID
		out.DefaultRoleID = &roleID
	}

	return out
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return s.render(c, "")
}

func (s *Service) render(c *fiber.Ctx, errMsg string) error {
	data := fiber.Map{
		"local_db_enabled": s.cfg.Auth.Local.Enabled,
		"ldap_enabled":     s.cfg.Auth.LDAP.Enabled,
		"oidc_enabled":     s.cfg.Auth.OIDC.Enabled,
	}

	if errMsg != "" {
		data["error"] = errMsg
	}

	return c.Render(TemplateName, data)
}

// pickAuthType resolves the requested auth method against the configuration.
// An empty request picks the first enabled method.
func (s *Service) pickAuthType(requested string) (string, error) {
	switch requested {
	case "":
		switch {
		case s.cfg.Auth.Local.Enabled:
			return authTypeLocal, nil
		case s.cfg.Auth.LDAP.Enabled:
			return authTypeLDAP, nil
		default:
			return "", ErrNoAuthMethod
		}
	case authTypeLocal:
		if !s.cfg.Auth.Local.Enabled || s.localAuth == nil {
			return "", ErrLocalAuthDisabled
		}

		return authTypeLocal, nil
	case authTypeLDAP:
		if !s.cfg.Auth.LDAP.Enabled || s.ldapAuth == nil {
			return "", ErrLDAPAuthDisabled
		}

		return authTypeLDAP, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// authenticate runs the password step against the selected backend.
func (s *Service) authenticate(authType, username, password string) (*models.User, auth.LoginResult, error) {
	switch authType {
	case authTypeLocal:
		user, result, err := s.localAuth.Authenticate(username, password)
		if err != nil {
			return nil, auth.LoginResult{}, ErrInvalidCredentials
		}

		return user, result, nil
	case authTypeLDAP:
		user, result, err := s.ldapAuth.Authenticate(username, password)
		if err != nil {
			return nil, auth.LoginResult{}, ErrInvalidCredentials
		}

		return user, result, nil
	default:
		return nil, auth.LoginResult{}, ErrInvalidAuthMethod
	}
}

// Post handles the login form submission: the password step.
func (s *Service) Post(c *fiber.Ctx) error {
	var f form

	if err := c.BodyParser(&f); err != nil {
		return s.render(c, ErrInvalidFormData.Error())
	}

	if err := s.validator.Struct(f); err != nil {
		return s.render(c, ErrInvalidFormData.Error())
	}

	authType, err := s.pickAuthType(f.AuthType)
	if err != nil {
		return s.render(c, err.Error())
	}

	user, result, err := s.authenticate(authType, f.Username, f.Password)
	if err != nil {
		return s.render(c, err.Error())
	}

	// Enrolled users must pass the TOTP challenge before the session
	// becomes authenticated.
	if auth.RequiresMFAChallenge(result) {
		if err := s.writeSession(c, &session.Data{PendingMFAUser: user.ID}); err != nil {
			return s.render(c, ErrInternalServerError.Error())
		}

		return c.Redirect(ChallengePath)
	}

	return s.completeLogin(c, user.ID)
}

// GetChallenge renders the TOTP challenge form.
func (s *Service) GetChallenge(c *fiber.Ctx) error {
	return c.Render(TemplateChallenge, fiber.Map{})
}

// PostChallenge verifies the submitted TOTP code and completes the login.
func (s *Service) PostChallenge(c *fiber.Ctx) error {
	sessData, err := s.pendingSession(c)
	if err != nil {
		return c.Redirect(Path)
	}

	var f challengeForm

	if err := c.BodyParser(&f); err != nil {
		return c.Render(TemplateChallenge, fiber.Map{"error": ErrInvalidFormData.Error()})
	}

	if err := s.validator.Struct(f); err != nil {
		return c.Render(TemplateChallenge, fiber.Map{"error": ErrInvalidFormData.Error()})
	}

	if err := s.authService.VerifyMFALogin(sessData.PendingMFAUser, f.Code); err != nil {
		log.Debug().Uint64("user_id", sessData.PendingMFAUser).Msg("rejected TOTP code")

		return c.Render(TemplateChallenge, fiber.Map{"error": auth.ErrInvalidMFACode.Error()})
	}

	return s.completeLogin(c, sessData.PendingMFAUser)
}

// pendingSession loads the half-open session created by the password step.
func (s *Service) pendingSession(c *fiber.Ctx) (*session.Data, error) {
	cookie := c.Cookies(session.CookieName)
	if cookie == "" {
		return nil, ErrNoPendingChallenge
	}

	sessData := new(session.Data)
	if err := sessData.Read(cookie); err != nil {
		return nil, ErrNoPendingChallenge
	}

	if sessData.PendingMFAUser == 0 {
		return nil, ErrNoPendingChallenge
	}

	return sessData, nil
}

// completeLogin snapshots the subject, writes the authenticated session and
// redirects: users flagged for a password change land on the password screen,
// everyone else on the dashboard. Enrollment redirects are left to the guard.
func (s *Service) completeLogin(c *fiber.Ctx, userID uint64) error {
	subject, err := s.authService.Snapshot(userID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to snapshot subject")

		return s.render(c, ErrInternalServerError.Error())
	}

	sessData := &session.Data{
		Subject:  *subject,
		LoggedIn: true,
	}

	if err := s.writeSession(c, sessData); err != nil {
		return s.render(c, ErrInternalServerError.Error())
	}

	if subject.MustChangePassword {
		return c.Redirect(password.Path)
	}

	return c.Redirect(dashboard.Path)
}

// writeSession persists the session data and sets the cookie.
func (s *Service) writeSession(c *fiber.Ctx, sessData *session.Data) error {
	err := session.Establish(c, sessData, s.cfg.Webserver.Session.ExpiryTime, s.cfg.DevMode)
	if err != nil {
		log.Error().Err(err).Msg("failed to establish session")
	}

	return err
}
