package mailer

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/summitline/keel/internal/dates"
)

// CommitmentSummary is the slice of commitment data the email templates need.
type CommitmentSummary struct {
	Description string
	Deadline    *time.Time
	Progress    int
}

// UpcomingEmail builds the reminder for commitments approaching their
// deadline. All of a recipient's qualifying commitments land in one email.
func UpcomingEmail(name string, items []CommitmentSummary, now time.Time) Message {
	subject := fmt.Sprintf("Reminder: %s coming up", pluralize(len(items), "commitment"))

	var text, body strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThese commitments are coming up:\n\n", name)
	fmt.Fprintf(&body, "<p>Hi %s,</p><p>These commitments are coming up:</p><ul>", html.EscapeString(name))
	for _, it := range items {
		due := "no deadline"
		if it.Deadline != nil {
			due = "due " + dates.FormatDeadline(*it.Deadline, now)
		}
		fmt.Fprintf(&text, "- %s (%s, %d%% done)\n", it.Description, due, it.Progress)
		fmt.Fprintf(&body, "<li><strong>%s</strong> — %s, %d%% done</li>", html.EscapeString(it.Description), due, it.Progress)
	}
	text.WriteString("\nA little progress today beats a big push tomorrow.\n")
	body.WriteString("</ul><p>A little progress today beats a big push tomorrow.</p>")

	return Message{Subject: subject, Text: text.String(), HTML: body.String()}
}

// OverdueEmail builds the reminder for commitments past their deadline.
func OverdueEmail(name string, items []CommitmentSummary, now time.Time) Message {
	subject := fmt.Sprintf("%s past due — still on your plate?", pluralize(len(items), "commitment"))

	var text, body strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nThese commitments are past their deadline:\n\n", name)
	fmt.Fprintf(&body, "<p>Hi %s,</p><p>These commitments are past their deadline:</p><ul>", html.EscapeString(name))
	for _, it := range items {
		overdueFor := ""
		if it.Deadline != nil {
			days := int(now.Sub(*it.Deadline).Hours() / 24)
			overdueFor = fmt.Sprintf(" (%s overdue)", pluralize(days, "day"))
		}
		fmt.Fprintf(&text, "- %s%s\n", it.Description, overdueFor)
		fmt.Fprintf(&body, "<li><strong>%s</strong>%s</li>", html.EscapeString(it.Description), overdueFor)
	}
	text.WriteString("\nUpdate your progress, push the deadline, or let a commitment go — all three are fine. Leaving it in limbo isn't.\n")
	body.WriteString("</ul><p>Update your progress, push the deadline, or let a commitment go — all three are fine. Leaving it in limbo isn't.</p>")

	return Message{Subject: subject, Text: text.String(), HTML: body.String()}
}

// CheckInEmail builds the one-time follow-up sent a few days after a
// commitment is created.
func CheckInEmail(name string, items []CommitmentSummary) Message {
	subject := "Checking in on your recent commitments"

	var text, body strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\nA few days ago you committed to:\n\n", name)
	fmt.Fprintf(&body, "<p>Hi %s,</p><p>A few days ago you committed to:</p><ul>", html.EscapeString(name))
	for _, it := range items {
		fmt.Fprintf(&text, "- %s\n", it.Description)
		fmt.Fprintf(&body, "<li>%s</li>", html.EscapeString(it.Description))
	}
	text.WriteString("\nHow is it going? Reply to this email or log your progress in the app.\n")
	body.WriteString("</ul><p>How is it going? Reply to this email or log your progress in the app.</p>")

	return Message{Subject: subject, Text: text.String(), HTML: body.String()}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
