// Package main provides the entry point for the GoAssetDesk console.
// It initializes and runs a web server using the Fiber framework that tracks
// hardware assets, virtual machines and IAM access grants. Lifecycle statuses
// are derived from checkout and grant windows on read, access is controlled
// by per-resource permissions, and every account is required to enroll a TOTP
// second factor. The application uses gorm for data persistence.
package main
