package inspections

import "time"

// NextDue returns when the unit must next be inspected. ok is false for a
// unit that has never been inspected.
func NextDue(u Unit) (time.Time, bool) {
	if u.LastInspectionDate == nil {
		return time.Time{}, false
	}
	return u.LastInspectionDate.AddDate(u.Frequency.Interval(), 0, 0), true
}

// DueWithin reports whether u has no prior inspection or its next due date
// falls on or before now+days. Overdue units are due.
func DueWithin(u Unit, now time.Time, days int) bool {
	next, ok := NextDue(u)
	if !ok {
		return true
	}
	return !next.After(now.AddDate(0, 0, days))
}
