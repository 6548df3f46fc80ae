// Package status derives the operational status of time-bound inventory
// resources (asset checkouts, virtual machines, IAM access grants) from
// their stored status and start/end dates.
//
// Every resource family follows the same shape: a small set of sticky
// statuses that are only ever written by an explicit user action and are
// returned verbatim, plus a derived range computed on every read from the
// window dates. Derivation can only move a record into the family's active
// or overdue status, never into a sticky one.
//
// All functions are pure and take today as a parameter; callers pass
// time.Now() in production and a fixed date in tests. Comparisons happen at
// date precision (UTC), so a window whose start and end fall on the same day
// is active on that day.
package status
