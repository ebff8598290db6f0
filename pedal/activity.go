package pedal

import "time"

// Activity tracks the last user action and blanks the display after a quiet
// period, but only while live gig mode is enabled.
type Activity struct {
	timeout time.Duration
	enabled bool
	last    time.Time
	active  bool
}

// NewActivity returns an active monitor whose deadline starts at now.
func NewActivity(timeout time.Duration, now time.Time) *Activity {
	return &Activity{timeout: timeout, last: now, active: true}
}

func (a *Activity) Active() bool { return a.active }

// Deadline is when the display will blank if nothing happens first.
func (a *Activity) Deadline() time.Time { return a.last.Add(a.timeout) }

// Touch records user activity at now.
func (a *Activity) Touch(now time.Time) {
	a.last = now
	a.active = true
}

// SetEnabled turns live gig blanking on or off. Changing it counts as
// activity, so the display is always active right after.
func (a *Activity) SetEnabled(on bool, now time.Time) {
	if on == a.enabled {
		return
	}
	a.enabled = on
	a.Touch(now)
}

// Update blanks the display once the deadline has passed. It reports whether
// Active changed.
func (a *Activity) Update(now time.Time) bool {
	if a.enabled && a.active && now.Sub(a.last) > a.timeout {
		a.active = false
		return true
	}
	return false
}
