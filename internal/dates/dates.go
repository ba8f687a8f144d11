// Package dates turns free-text deadline phrases ("Friday", "in 3 days",
// "end of week") into concrete calendar dates. Parsing is pure and
// deterministic given a reference instant; all calendar math happens in the
// reference time's location.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	inOffsetRe  = regexp.MustCompile(`^in (\d+) (day|week|month)s?$`)
	fromNowRe   = regexp.MustCompile(`^(\d+) (day|week|month)s? from now$`)
	monthDayRe  = regexp.MustCompile(`^([a-z]+) (\d{1,2})(?:st|nd|rd|th)?$`)
	dayMonthRe  = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)? ([a-z]+)$`)
	numericRe   = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)
	weekdayRe   = regexp.MustCompile(`^(monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
	byWeekdayRe = regexp.MustCompile(`^by (monday|tuesday|wednesday|thursday|friday|saturday|sunday)$`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Parse resolves a free-text deadline phrase against the reference instant.
// It returns ok=false for anything it does not recognize and never panics.
func Parse(text string, now time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}

	base := midnight(now)

	switch s {
	case "today":
		return base, true
	case "tomorrow":
		return base.AddDate(0, 0, 1), true
	case "yesterday":
		return base.AddDate(0, 0, -1), true
	case "this week", "end of week", "end of this week", "by end of week", "by this weekend":
		return endOfWeek(base), true
	case "next week", "end of next week":
		return endOfWeek(base).AddDate(0, 0, 7), true
	}

	if m := weekdayRe.FindStringSubmatch(s); m != nil {
		return nextWeekday(base, weekdays[m[1]]), true
	}
	if m := byWeekdayRe.FindStringSubmatch(s); m != nil {
		return nextWeekday(base, weekdays[m[1]]), true
	}

	if m := inOffsetRe.FindStringSubmatch(s); m != nil {
		return offset(base, m[1], m[2]), true
	}
	if m := fromNowRe.FindStringSubmatch(s); m != nil {
		return offset(base, m[1], m[2]), true
	}

	if m := monthDayRe.FindStringSubmatch(s); m != nil {
		if month, ok := months[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			return monthDay(base, month, day)
		}
		return time.Time{}, false
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		if month, ok := months[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			return monthDay(base, month, day)
		}
		return time.Time{}, false
	}

	if m := numericRe.FindStringSubmatch(s); m != nil {
		mo, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return time.Time{}, false
		}
		return monthDay(base, time.Month(mo), day)
	}

	// ISO-like strings: "2026-09-15" or a full RFC 3339 timestamp.
	if strings.Contains(s, "-") {
		if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
			return t.In(now.Location()), true
		}
	}

	return time.Time{}, false
}

// FormatDeadline renders a deadline for display: "today"/"tomorrow" for 0/1
// days out, the weekday name within the next week, otherwise "Jan 2".
func FormatDeadline(deadline, now time.Time) string {
	days := int(midnight(deadline).Sub(midnight(now)).Hours() / 24)
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days > 1 && days < 7:
		return deadline.Weekday().String()
	default:
		return deadline.Format("Jan 2")
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// nextWeekday returns the next occurrence of w strictly after base. A bare
// weekday name never resolves to the current day: a full week is added instead.
func nextWeekday(base time.Time, w time.Weekday) time.Time {
	days := (int(w) - int(base.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return base.AddDate(0, 0, days)
}

// endOfWeek returns the next Sunday at or after base.
func endOfWeek(base time.Time) time.Time {
	days := (7 - int(base.Weekday())) % 7
	return base.AddDate(0, 0, days)
}

func offset(base time.Time, nStr, unit string) time.Time {
	n, _ := strconv.Atoi(nStr)
	switch unit {
	case "day":
		return base.AddDate(0, 0, n)
	case "week":
		return base.AddDate(0, 0, n*7)
	default: // month
		return base.AddDate(0, n, 0)
	}
}

// monthDay resolves a month/day pair in the current year, rolling to next
// year when the date has already passed.
func monthDay(base time.Time, month time.Month, day int) (time.Time, bool) {
	if day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(base.Year(), month, day, 0, 0, 0, 0, base.Location())
	if t.Month() != month {
		return time.Time{}, false // day overflowed, e.g. Feb 30
	}
	if t.Before(base) {
		t = time.Date(base.Year()+1, month, day, 0, 0, 0, 0, base.Location())
	}
	return t, true
}
