package extractor

import (
	"strings"
	"time"
)

// tableHeader introduces the structured commitment block coaches can write to
// log commitments explicitly instead of relying on model extraction.
const tableHeader = "commitments logged:"

// ParseTable scans text for a "Commitments Logged:" section followed by a
// markdown pipe table with commitment, description and deadline columns. It
// returns one ExtractedCommitment per data row, with the deadline already
// reduced to an ISO date string, and an empty slice when no table is present.
func ParseTable(text string, now time.Time) []ExtractedCommitment {
	idx := strings.Index(strings.ToLower(text), tableHeader)
	if idx < 0 {
		return nil
	}

	var out []ExtractedCommitment
	rows := 0
	for _, line := range strings.Split(text[idx:], "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			if rows > 0 {
				break // table ended
			}
			continue
		}

		cells := splitRow(line)
		if len(cells) < 3 {
			continue
		}

		rows++
		if rows == 1 || isSeparatorRow(cells) {
			continue // header or |---|---| separator
		}

		deadline := strings.ToLower(cells[2])
		item := ExtractedCommitment{
			Description: cells[0] + ": " + cells[1],
			Priority:    PriorityMedium,
			Category:    "action-item",
		}
		if strings.Contains(deadline, "today") {
			item.Priority = PriorityHigh
		}
		if due, ok := tableDeadline(deadline, now); ok {
			item.DueDate = due.Format("2006-01-02")
		}
		out = append(out, item)
	}

	return out
}

// tableDeadline applies the narrow literal rules used inside commitment
// tables. Anything else is left unresolved for the shared date parser.
func tableDeadline(cell string, now time.Time) (time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case strings.Contains(cell, "today"):
		return day, true
	case strings.Contains(cell, "tomorrow"):
		return day.AddDate(0, 0, 1), true
	case strings.Contains(cell, "two days"), strings.Contains(cell, "2 days"):
		return day.AddDate(0, 0, 2), true
	case strings.Contains(cell, "week"):
		return day.AddDate(0, 0, 7), true
	}
	return time.Time{}, false
}

func splitRow(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}
