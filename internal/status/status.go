package status

import "time"

// Status is a lifecycle status label as displayed to the user and stored on
// the resource record.
type Status string

// Stored is the stored-status of a record, split into two arms: a manual
// (sticky) status set by an explicit user action, or the derived arm meaning
// the display status must be recomputed from the record's dates.
//
// Derivation only ever operates on the derived arm; a record enters the
// manual arm exclusively through a user action (retire, decommission, mark
// notified, revoke) and leaves it the same way.
type Stored struct {
	manual bool
	value  Status
}

// Manual returns a Stored in the manual arm carrying the given status.
func Manual(v Status) Stored {
	return Stored{manual: true, value: v}
}

// Derived returns a Stored in the derived arm.
func Derived() Stored {
	return Stored{}
}

// IsManual reports whether the stored status is in the manual arm.
func (s Stored) IsManual() bool {
	return s.manual
}

// Value returns the manual status. Only meaningful when IsManual is true.
func (s Stored) Value() Status {
	return s.value
}

// Profile describes the status vocabulary of one resource family.
type Profile struct {
	// Default is returned when either window date is missing or the window
	// has not started yet.
	Default Status
	// Active is returned while today lies within the window.
	Active Status
	// Overdue is returned once today is past the window end. It is never a
	// sticky state: acknowledging an overdue resource moves it to a manual
	// status via a user action.
	Overdue Status
	// Sticky lists the statuses that, once stored, are returned verbatim and
	// never recomputed.
	Sticky []Status
}

// Classify maps a raw stored status string onto the tagged Stored type.
// Sticky values land in the manual arm; anything else (including unknown or
// empty strings) lands in the derived arm.
func (p Profile) Classify(raw string) Stored {
	for _, s := range p.Sticky {
		if Status(raw) == s {
			return Manual(s)
		}
	}

	return Derived()
}

// Derive computes the display status of a record from its stored status and
// window dates. It is pure: the caller supplies today (date precision, see
// DateOnly) and identical inputs always yield identical output.
//
// Rules, in order: a manual stored status wins unconditionally; a missing
// start or end date yields the family default; a window containing today
// (inclusive on both ends, so a single-day window is active on that day)
// yields the active status; a window in the past yields the overdue status;
// a window in the future yields the default.
func (p Profile) Derive(stored Stored, start, end *time.Time, today time.Time) Status {
	if stored.IsManual() {
		return stored.Value()
	}

	if start == nil || end == nil {
		return p.Default
	}

	var (
		s = DateOnly(*start)
		e = DateOnly(*end)
		t = DateOnly(today)
	)

	if !t.Before(s) && !t.After(e) {
		return p.Active
	}

	if t.After(e) {
		return p.Overdue
	}

	return p.Default
}

// DeriveRaw is a convenience wrapper combining Classify and Derive for
// callers holding the raw stored string.
func (p Profile) DeriveRaw(raw string, start, end *time.Time, today time.Time) Status {
	return p.Derive(p.Classify(raw), start, end, today)
}

// DateOnly truncates a timestamp to its date in UTC. All window comparisons
// happen at date precision; the time component never participates.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
