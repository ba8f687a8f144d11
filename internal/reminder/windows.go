// Package reminder is the time-driven accountability loop: it scans persisted
// commitments against notification windows and dispatches reminder and
// check-in emails, at most once per window per commitment.
package reminder

import "time"

// Window is one upcoming-deadline notification policy: commitments whose
// deadline falls within (Threshold-1h, Threshold] of now are eligible.
type Window struct {
	Threshold time.Duration
	Label     string
}

var DefaultWindows = []Window{
	{24 * time.Hour, "24_hours"},
	{72 * time.Hour, "3_days"},
	{168 * time.Hour, "1_week"},
}

// windowSlack is the width of each window band. Matching the hourly run
// cadence guarantees every commitment passes through each band exactly once.
const windowSlack = time.Hour

// overdueResendAfter is how long after a reminder an overdue commitment
// becomes eligible again.
const overdueResendAfter = 24 * time.Hour

// UpcomingWindow reports which window, if any, a future deadline currently
// falls in. A window only fires when no reminder has been sent within that
// window's own threshold, so each window fires at most once.
func UpcomingWindow(deadline time.Time, lastSent *time.Time, now time.Time) (Window, bool) {
	until := deadline.Sub(now)
	if until <= 0 {
		return Window{}, false
	}
	for _, w := range DefaultWindows {
		if until > w.Threshold-windowSlack && until <= w.Threshold {
			if lastSent == nil || now.Sub(*lastSent) > w.Threshold {
				return w, true
			}
			return Window{}, false
		}
	}
	return Window{}, false
}

// OverdueEligible reports whether a past-deadline commitment should receive
// an overdue reminder: none sent yet, or the last one is over a day old.
func OverdueEligible(deadline time.Time, lastSent *time.Time, now time.Time) bool {
	if !deadline.Before(now) {
		return false
	}
	return lastSent == nil || now.Sub(*lastSent) >= overdueResendAfter
}

// CheckInWindow returns the creation-time interval (after, before] that makes
// a commitment due for its one-time check-in email, days days after creation.
func CheckInWindow(now time.Time, days int) (after, before time.Time) {
	return now.Add(-time.Duration(days+1) * 24 * time.Hour), now.Add(-time.Duration(days) * 24 * time.Hour)
}
