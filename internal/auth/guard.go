package auth

// State is the route guard's evaluation state.
type State int

const (
	// StateLoading means the subject or MFA status fetch has not resolved;
	// the guard must not decide on partial data.
	StateLoading State = iota
	// StateDenied means access is refused and the user is redirected.
	StateDenied
	// StateAllowed means the guarded content may render.
	StateAllowed
)

// Guard redirect targets.
const (
	RedirectLogin     = "/login"
	RedirectMFASetup  = "/mfa-setup"
	RedirectPassword  = "/password"
	RedirectDashboard = "/dashboard"
)

// PermissionRef names one resource/action pair a guard requires.
type PermissionRef struct {
	Resource Resource
	Action   Action
}

// Requirement is the predicate a guarded route demands. Zero value means
// authentication (and MFA enrollment) only.
type Requirement struct {
	// RequireAdmin demands HasAdminAccess.
	RequireAdmin bool
	// Permission, when set, demands the pair be granted (admins always pass).
	Permission *PermissionRef
	// AllowedRoles, when non-empty, demands the subject's coarse role tag be
	// a member.
	AllowedRoles []string
}

// Decision is the guard's verdict for one evaluation.
type Decision struct {
	State State
	// RedirectTo is the redirect target when State is StateDenied.
	RedirectTo string
}

// Evaluate runs the route guard for one render. subjectLoaded is false while
// the session fetch is in flight; mfa is nil while the MFA status fetch is in
// flight. location is the current request path, needed to let the MFA setup
// and password change screens themselves through.
//
// The rules run in a fixed order and the first match wins; each rule is a
// progressively more specific override of "show the content". Reordering
// changes observable behavior: an admin who has not enrolled MFA must be
// sent to the setup screen, not granted admin access.
func Evaluate(subject *Subject, subjectLoaded bool, mfa *MFAStatus, location string, req Requirement) Decision {
	// 1. Still loading: the subject fetch, or the MFA fetch for an existing
	// subject, has not resolved.
	if !subjectLoaded || (subject != nil && mfa == nil) {
		return Decision{State: StateLoading}
	}

	// 2. No subject: fail closed to login.
	if subject == nil {
		return Decision{State: StateDenied, RedirectTo: RedirectLogin}
	}

	// 3. Mandatory MFA enrollment pre-empts every other check.
	if !mfa.Enabled && location != RedirectMFASetup {
		return Decision{State: StateDenied, RedirectTo: RedirectMFASetup}
	}

	// 4. Forced password change: after enrollment, an expired credential
	// blocks everything except the password screen itself.
	if RequiresPasswordChange(subject) && location != RedirectPassword {
		return Decision{State: StateDenied, RedirectTo: RedirectPassword}
	}

	// 5. Admin requirement.
	if req.RequireAdmin && !HasAdminAccess(subject) {
		return Decision{State: StateDenied, RedirectTo: RedirectDashboard}
	}

	// 6. Specific permission requirement.
	if req.Permission != nil &&
		!(subject.IsAdmin || HasPermission(subject, req.Permission.Resource, req.Permission.Action)) {
		return Decision{State: StateDenied, RedirectTo: RedirectDashboard}
	}

	// 7. Coarse role requirement.
	if len(req.AllowedRoles) > 0 && !IsRoleAllowed(subject, req.AllowedRoles) {
		return Decision{State: StateDenied, RedirectTo: RedirectDashboard}
	}

	// 8. Nothing objected.
	return Decision{State: StateAllowed}
}
