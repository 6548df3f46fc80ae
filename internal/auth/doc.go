// Package auth provides authentication and authorization functionality for the console.
//
// This package implements the capability model gating every route and action:
//   - A fixed permission catalog (resource.action ids grouped by category)
//   - A per-subject permission grid resolved from the assigned role
//   - A pure evaluator (HasPermission, HasAdminAccess, IsRoleAllowed) that
//     never errors and fails closed on absent data
//   - A route guard state machine (Evaluate) with a fixed rule order in
//     which mandatory MFA enrollment pre-empts every permission check
//   - Authority mutations (SetSubjectAuthority, ToggleAdmin) that keep the
//     admin flag and the role assignment mutually exclusive in one atomic write
//
// # Authentication Providers
//
// LocalProvider handles traditional username/password authentication against
// the local database with Argon2id password hashing.
//
// LDAPProvider connects to LDAP or Active Directory servers and provisions
// local accounts on first login.
//
// OIDCProvider implements OAuth2/OIDC flows for authentication with external
// identity providers like Google, Okta, Keycloak, and Azure AD.
//
// All three sources report, via LoginResult, whether the account still owes a
// TOTP one-time code before a session may be granted; MFA enrollment and
// verification live here as well (pquerna/otp).
//
// # Subject Snapshots
//
// Authorization decisions are evaluated against an immutable Subject snapshot
// built by Service.Snapshot at login and stored in the session. The snapshot
// carries the admin flag, the role id, the resolved permission grid, and the
// MFA/password compliance flags. With no snapshot every check denies.
//
// Example usage:
//
//	authService := auth.NewService(db)
//
//	subject, err := authService.Snapshot(userID)
//	if auth.HasPermission(subject, auth.ResourceAssets, auth.ActionCheckout) {
//	    // offer the checkout action
//	}
//
//	decision := auth.Evaluate(subject, true, mfaStatus, c.Path(), auth.Requirement{
//	    Permission: &auth.PermissionRef{Resource: auth.ResourceAssets, Action: auth.ActionView},
//	})
package auth
