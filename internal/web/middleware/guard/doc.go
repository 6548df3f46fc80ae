// Package guard provides the route guard middleware for the web application.
//
// Load resolves the session cookie once per request and exposes the subject
// snapshot through fiber.Locals. Require enforces a route's requirement by
// running the fixed-order evaluation in internal/auth: enrollment-gated MFA
// first, then admin, permission and role checks. Denied requests are
// redirected, never rendered partially.
//
// Usage:
//
//	app.Use(guard.Load())
//	app.Get("/assets",
//		guard.RequirePermission(authService, auth.ResourceAssets, auth.ActionView),
//		handlerFunc,
//	)
package guard
