package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"

	"github.com/GoAssetDesk/GoAssetDesk/internal/auth"
)

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
type Data struct {
	// Subject is the authorization snapshot taken at login time.
	Subject auth.Subject
	// LoggedIn is true once the full login flow (including a TOTP
	// challenge, when enrolled) has completed.
	LoggedIn bool
	// PendingMFAUser holds the user id between password verification and
	// TOTP challenge completion. While set, the session is not
	// authenticated and only the challenge screen may use it.
	PendingMFAUser uint64
	// PendingMFASecret holds the generated TOTP secret during enrollment,
	// before the user has confirmed a code. Only the setup screen uses it.
	PendingMFASecret string
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Destroy removes the session data for the given session ID.
func Destroy(sessionID string) error {
	return Store.Storage.Delete(sessionID)
}

// Init initializes the session store with the provided storage backend.
// A nil storage falls back to fiber's in-memory store, which is only
// suitable for the sqlite engine and development.
func Init(storage storage.Storage) {
	if storage == nil {
		Store = session.New()
		return
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// CookieName is the name of the session cookie.
const CookieName = "session"

// Establish writes the session data under a fresh session id and sets the
// cookie on the response. devMode drops the Secure flag for plain-http
// development setups.
func Establish(c *fiber.Ctx, data *Data, exp time.Duration, devMode bool) error {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return err
	}

	if err = data.Write(sessionID, exp); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		MaxAge:   int(exp.Seconds()),
		Secure:   !devMode,
		HTTPOnly: true,
		SameSite: "Lax", // TODO: make this configurable
	})

	return nil
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
