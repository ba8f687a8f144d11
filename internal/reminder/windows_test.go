package reminder

import (
	"testing"
	"time"
)

var baseNow = time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)

func TestUpcomingWindowBands(t *testing.T) {
	tests := []struct {
		name      string
		until     time.Duration
		wantLabel string
		wantOK    bool
	}{
		{"exactly 24h out", 24 * time.Hour, "24_hours", true},
		{"23h30m out", 23*time.Hour + 30*time.Minute, "24_hours", true},
		{"just past the day band", 23 * time.Hour, "", false},
		{"exactly 72h out", 72 * time.Hour, "3_days", true},
		{"exactly one week out", 168 * time.Hour, "1_week", true},
		{"between bands", 48 * time.Hour, "", false},
		{"beyond all bands", 200 * time.Hour, "", false},
		{"already past", -time.Hour, "", false},
		{"due right now", 0, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, ok := UpcomingWindow(baseNow.Add(tc.until), nil, baseNow)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && w.Label != tc.wantLabel {
				t.Errorf("label = %q, want %q", w.Label, tc.wantLabel)
			}
		})
	}
}

func TestUpcomingWindowFiresOncePerWindow(t *testing.T) {
	deadline := baseNow.Add(24 * time.Hour)

	// A reminder sent moments ago (same window) suppresses the band.
	recent := baseNow.Add(-30 * time.Minute)
	if _, ok := UpcomingWindow(deadline, &recent, baseNow); ok {
		t.Error("window fired again right after a send")
	}

	// A reminder sent for an earlier, wider window does not suppress it.
	earlier := baseNow.Add(-48 * time.Hour)
	if _, ok := UpcomingWindow(deadline, &earlier, baseNow); !ok {
		t.Error("day window suppressed by a reminder from the 3-day pass")
	}
}

func TestOverdueEligible(t *testing.T) {
	deadline := baseNow.Add(-6 * time.Hour)

	if !OverdueEligible(deadline, nil, baseNow) {
		t.Error("never-reminded overdue commitment not eligible")
	}

	twoHoursAgo := baseNow.Add(-2 * time.Hour)
	if OverdueEligible(deadline, &twoHoursAgo, baseNow) {
		t.Error("eligible again two hours after a reminder")
	}

	twoDaysAgo := baseNow.Add(-48 * time.Hour)
	if !OverdueEligible(deadline, &twoDaysAgo, baseNow) {
		t.Error("not eligible two days after the last reminder")
	}

	// Checking eligibility does not consume it; only updating the marker does.
	if !OverdueEligible(deadline, &twoDaysAgo, baseNow) {
		t.Error("second eligibility check disagreed with the first")
	}

	if OverdueEligible(baseNow.Add(time.Hour), nil, baseNow) {
		t.Error("future deadline treated as overdue")
	}
}

func TestCheckInWindow(t *testing.T) {
	after, before := CheckInWindow(baseNow, 3)

	if got := baseNow.Sub(before); got != 72*time.Hour {
		t.Errorf("before bound %v from now, want 72h", got)
	}
	if got := baseNow.Sub(after); got != 96*time.Hour {
		t.Errorf("after bound %v from now, want 96h", got)
	}
}
