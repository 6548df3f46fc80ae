package auth

// Subject is the immutable snapshot of the authenticated user that every
// authorization decision is evaluated against. It is built once at login
// (and rebuilt after authority mutations), stored in the session, and read
// without further database access.
type Subject struct {
	// ID is the user id backing this subject.
	ID uint64
	// Username is the login name, carried for logging and display.
	Username string
	// IsAdmin grants every permission unconditionally.
	IsAdmin bool
	// RoleID is the assigned role, nil for admins and unassigned users.
	RoleID *uint
	// Permissions is the resolved permission grid of the assigned role.
	Permissions Grid
	// MFAEnabled reports completed TOTP enrollment as of snapshot time.
	MFAEnabled bool
	// MustChangePassword forces the password change screen before anything else.
	MustChangePassword bool
}

// RoleTag returns the coarse legacy role tag of the subject: "admin" for
// admins, "user" for everyone else. Guards that predate the permission grid
// still match on this tag.
func (s *Subject) RoleTag() string {
	if s != nil && s.IsAdmin {
		return RoleTagAdmin
	}

	return RoleTagUser
}

// Coarse role tags used by IsRoleAllowed.
const (
	RoleTagAdmin = "admin"
	RoleTagUser  = "user"
)

// MFAStatus is the result of the per-evaluation MFA status fetch.
type MFAStatus struct {
	// Enabled reports whether the subject has completed TOTP enrollment.
	Enabled bool
}
