package auth

// The evaluator is a family of pure, total decision functions over a Subject
// snapshot. None of them touch the database, none of them return errors: a
// nil subject or an absent grid key simply evaluates to deny.

// HasAdminAccess reports whether the subject may reach admin surfaces:
// either via the explicit admin flag or via an equivalent granted
// admin.view permission, so the UI needs only one code path.
func HasAdminAccess(s *Subject) bool {
	if s == nil {
		return false
	}

	return s.IsAdmin || s.Permissions.Allowed(ResourceAdmin, ActionView)
}

// HasPermission reports whether the subject may perform action on resource.
// Admins are allowed everything, including pairs absent from the catalog;
// everyone else gets the exact grid lookup with absent keys meaning false.
func HasPermission(s *Subject, resource Resource, action Action) bool {
	if s == nil {
		return false
	}

	if s.IsAdmin {
		return true
	}

	return s.Permissions.Allowed(resource, action)
}

// IsRoleAllowed reports whether the subject's coarse role tag is a member of
// allowedRoles. This is a coarser, legacy check than HasPermission; a guard
// may require both at once.
func IsRoleAllowed(s *Subject, allowedRoles []string) bool {
	if s == nil {
		return false
	}

	tag := s.RoleTag()
	for _, r := range allowedRoles {
		if r == tag {
			return true
		}
	}

	return false
}

// RequiresPasswordChange reports whether the subject must change their
// password before using the console. Orthogonal to permissions.
func RequiresPasswordChange(s *Subject) bool {
	return s != nil && s.MustChangePassword
}

// RequiresMFAEnrollment reports whether the subject still has to complete
// TOTP enrollment. Enrollment is mandatory and pre-empts every other check
// in the route guard.
func RequiresMFAEnrollment(s *Subject) bool {
	return s != nil && !s.MFAEnabled
}

// LoginResult describes the outcome of a password authentication attempt.
type LoginResult struct {
	// User is the authenticated user id.
	User uint64
	// MFARequired is true when the password matched but the backend demands
	// a one-time code before a session is granted.
	MFARequired bool
}

// RequiresMFAChallenge reports whether a login attempt that succeeded on
// password still needs a one-time code before the session is established.
func RequiresMFAChallenge(r LoginResult) bool {
	return r.MFARequired
}
