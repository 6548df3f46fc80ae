package guard

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
	"github.com/GoAssetDesk/GoAssetDesk/internal/web/session"
)

const (
	// localsSession is the fiber.Locals key carrying the *session.Data.
	localsSession = "SessionData"
	// localsSubject is the fiber.Locals key carrying the *auth.Subject.
	localsSubject = "CurrentSubject"
)

// Load is the global middleware. It resolves the session cookie into a
// *session.Data and exposes the subject snapshot through fiber.Locals for
// handlers and templates. It never denies; route-level denial is done by
// Require so each route can state its own requirement.
func Load() fiber.Handler {
	return func(c *fiber.Ctx) error {
		originalURL := strings.ToLower(c.OriginalURL())
		if strings.HasPrefix(originalURL, "/static") {
			return c.Next()
		}

		cookie := c.Cookies(session.CookieName)
		if cookie == "" {
			return c.Next()
		}

		sessData := new(session.Data)
		if err := sessData.Read(cookie); err != nil {
			// expired or unknown session id, treat as anonymous
			return c.Next()
		}

		c.Locals(localsSession, sessData)

		if sessData.LoggedIn {
			c.Locals(localsSubject, &sessData.Subject)
		}

		return c.Next()
	}
}

// Require returns a route middleware enforcing the given requirement. The
// MFA enrollment state is fetched fresh per request so a user who unenrolls
// in another tab is caught on their next navigation.
func Require(authService *auth.Service, req auth.Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := CurrentSubject(c)

		var mfa *auth.MFAStatus

		if subject != nil {
			status, err := authService.MFAStatus(subject.ID)
			if err != nil {
				log.Error().Err(err).Uint64("user_id", subject.ID).Msg("failed to fetch MFA status")
			} else {
				mfa = status
			}
		}

		decision := auth.Evaluate(subject, true, mfa, c.Path(), req)

		switch decision.State {
		case auth.StateAllowed:
			return c.Next()
		case auth.StateDenied:
			return c.Redirect(decision.RedirectTo)
		default:
			// the MFA fetch failed above; render nothing on partial data
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
	}
}

// RequirePermission is shorthand for a Require with a single permission pair.
func RequirePermission(authService *auth.Service, resource auth.Resource, action auth.Action) fiber.Handler {
	return Require(authService, auth.Requirement{
		Permission: &auth.PermissionRef{Resource: resource, Action: action},
	})
}

// RequireAdmin is shorthand for a Require with the admin requirement.
func RequireAdmin(authService *auth.Service) fiber.Handler {
	return Require(authService, auth.Requirement{RequireAdmin: true})
}

// SessionData returns the session data resolved by Load, or nil for
// anonymous requests.
func SessionData(c *fiber.Ctx) *session.Data {
	if v, ok := c.Locals(localsSession).(*session.Data); ok {
		return v
	}

	return nil
}

// CurrentSubject returns the authenticated subject, or nil for anonymous or
// half-logged-in (pending MFA challenge) requests.
func CurrentSubject(c *fiber.Ctx) *auth.Subject {
	if v, ok := c.Locals(localsSubject).(*auth.Subject); ok {
		return v
	}

	return nil
}
