package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	enrolled    = &MFAStatus{Enabled: true}
	notEnrolled = &MFAStatus{Enabled: false}
)

func TestEvaluate_LoadingBeforeAnythingElse(t *testing.T) {
	// Subject fetch in flight.
	d := Evaluate(nil, false, nil, "/assets", Requirement{})
	assert.Equal(t, StateLoading, d.State)

	// Subject present but MFA fetch in flight.
	admin := &Subject{ID: 1, IsAdmin: true}
	d = Evaluate(admin, true, nil, "/assets", Requirement{RequireAdmin: true})
	assert.Equal(t, StateLoading, d.State)
}

func TestEvaluate_NoSubjectRedirectsToLogin(t *testing.T) {
	d := Evaluate(nil, true, nil, "/assets", Requirement{})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectLogin, d.RedirectTo)
}

func TestEvaluate_MFAEnrollmentPreemptsAdminCheck(t *testing.T) {
	// An admin without MFA enrollment asking for an admin-only route must be
	// sent to setup, not granted access.
	admin := &Subject{ID: 1, IsAdmin: true}

	d := Evaluate(admin, true, notEnrolled, "/admin/user", Requirement{RequireAdmin: true})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectMFASetup, d.RedirectTo)
}

func TestEvaluate_MFASetupScreenItselfIsReachable(t *testing.T) {
	subject := &Subject{ID: 2}

	d := Evaluate(subject, true, notEnrolled, RedirectMFASetup, Requirement{})
	assert.Equal(t, StateAllowed, d.State)
}

func TestEvaluate_ForcedPasswordChangeBlocksEnrolledSubject(t *testing.T) {
	// An enrolled subject with an expired credential is sent to the password
	// screen even when the route itself has no requirement.
	flagged := &Subject{ID: 10, MFAEnabled: true, MustChangePassword: true}

	d := Evaluate(flagged, true, enrolled, "/assets", Requirement{})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectPassword, d.RedirectTo)

	// Admin access does not bypass the forced change.
	admin := &Subject{ID: 11, IsAdmin: true, MFAEnabled: true, MustChangePassword: true}
	d = Evaluate(admin, true, enrolled, "/admin/user", Requirement{RequireAdmin: true})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectPassword, d.RedirectTo)
}

func TestEvaluate_PasswordScreenItselfIsReachable(t *testing.T) {
	flagged := &Subject{ID: 12, MFAEnabled: true, MustChangePassword: true}

	d := Evaluate(flagged, true, enrolled, RedirectPassword, Requirement{})
	assert.Equal(t, StateAllowed, d.State)
}

func TestEvaluate_MFAEnrollmentPreemptsPasswordChange(t *testing.T) {
	// Both gates pending: enrollment comes first.
	flagged := &Subject{ID: 13, MustChangePassword: true}

	d := Evaluate(flagged, true, notEnrolled, "/assets", Requirement{})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectMFASetup, d.RedirectTo)
}

func TestEvaluate_RequireAdmin(t *testing.T) {
	user := &Subject{ID: 2, MFAEnabled: true}

	d := Evaluate(user, true, enrolled, "/admin/user", Requirement{RequireAdmin: true})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectDashboard, d.RedirectTo)

	// admin.view permission satisfies the admin requirement too.
	granted := &Subject{ID: 3, MFAEnabled: true, Permissions: ParseGrid([]string{"admin.view"})}
	d = Evaluate(granted, true, enrolled, "/admin/user", Requirement{RequireAdmin: true})
	assert.Equal(t, StateAllowed, d.State)
}

func TestEvaluate_RequiredPermission(t *testing.T) {
	viewer := &Subject{
		ID:          4,
		MFAEnabled:  true,
		Permissions: ParseGrid([]string{"assets.view"}),
	}
	req := Requirement{Permission: &PermissionRef{Resource: ResourceAssets, Action: ActionView}}

	d := Evaluate(viewer, true, enrolled, "/assets", req)
	assert.Equal(t, StateAllowed, d.State)

	// Same route, subject without the grant.
	stranger := &Subject{ID: 5, MFAEnabled: true}
	d = Evaluate(stranger, true, enrolled, "/assets", req)
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectDashboard, d.RedirectTo)

	// Admin flag overrides the permission requirement.
	admin := &Subject{ID: 6, IsAdmin: true, MFAEnabled: true}
	d = Evaluate(admin, true, enrolled, "/assets", req)
	assert.Equal(t, StateAllowed, d.State)
}

func TestEvaluate_AllowedRoles(t *testing.T) {
	user := &Subject{ID: 7, MFAEnabled: true}

	d := Evaluate(user, true, enrolled, "/reports", Requirement{AllowedRoles: []string{RoleTagAdmin}})
	assert.Equal(t, StateDenied, d.State)
	assert.Equal(t, RedirectDashboard, d.RedirectTo)

	d = Evaluate(user, true, enrolled, "/reports", Requirement{AllowedRoles: []string{RoleTagUser}})
	assert.Equal(t, StateAllowed, d.State)
}

func TestEvaluate_CombinedRequirements(t *testing.T) {
	// A guard may demand both a permission and a coarse role; both must hold.
	subject := &Subject{
		ID:          8,
		MFAEnabled:  true,
		Permissions: ParseGrid([]string{"assets.view"}),
	}
	req := Requirement{
		Permission:   &PermissionRef{Resource: ResourceAssets, Action: ActionView},
		AllowedRoles: []string{RoleTagAdmin},
	}

	d := Evaluate(subject, true, enrolled, "/assets", req)
	assert.Equal(t, StateDenied, d.State)
}

func TestEvaluate_ZeroRequirementAllowsAuthenticated(t *testing.T) {
	subject := &Subject{ID: 9, MFAEnabled: true}

	d := Evaluate(subject, true, enrolled, "/dashboard", Requirement{})
	assert.Equal(t, StateAllowed, d.State)
}
