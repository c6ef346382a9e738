package appointment

import (
	"fmt"
	"time"
)

// RunCycle composes the change notification of every subscriber for one
// refresh. Only subscribers with a non-empty message appear in the result,
// keyed by address. Identical snapshots yield an empty map without looking at
// any subscriber.
func RunCycle(prev, next []Appointment, subscribers []Subscriber, names LocationNames) map[string]string {
	messages := make(map[string]string)
	if SameSet(prev, next) {
		return messages
	}

	added, removed := Diff(prev, next)

	// subscribers sharing a deadline get the same text
	byDeadline := make(map[time.Time]string)
	for _, s := range subscribers {
		d := DateOf(s.Deadline)
		text, ok := byDeadline[d]
		if !ok {
			text = ComposeDiff(added, removed, d, names)
			byDeadline[d] = text
		}
		if text != "" {
			messages[s.Address] = text
		}
	}
	return messages
}

// DeadlineAnswer is the immediate reply to a deadline request.
type DeadlineAnswer struct {
	Text string
	// Summary is set when the deadline lies past the scarce cutoff and Text
	// only counts the matching appointments instead of listing them.
	Summary bool
	Cutoff  time.Time
	Count   int
}

// AnswerDeadlineQuery answers "what is available before my deadline" from a
// stored snapshot. Deadlines after the scarce cutoff get a short count and the
// cutoff date instead of a potentially long listing.
func AnswerDeadlineQuery(snapshot []Appointment, deadline time.Time, names LocationNames) DeadlineAnswer {
	deadline = DateOf(deadline)
	early := BeforeDeadline(Dedupe(snapshot), deadline)

	cutoff, err := EarliestScarceCutoff(snapshot)
	if err != nil {
		// nothing observed yet, there is no cutoff to compare against
		return DeadlineAnswer{Text: NoAppointmentsBeforeDeadline}
	}

	if deadline.After(cutoff) {
		var text string
		if len(early) == 1 {
			text = "Vor deiner Deadline gibt es <i>einen Termin</i>.\n"
		} else {
			text = fmt.Sprintf("Vor deiner Deadline gibt es <i>%d Termine</i>.\n", len(early))
		}
		text += fmt.Sprintf("Späteste Deadline: <b>%s</b>.\n", cutoff.Format(dateLayout))
		text += "Benutze /termine um die frühesten Termine anzuzeigen."
		return DeadlineAnswer{Text: text, Summary: true, Cutoff: cutoff, Count: len(early)}
	}

	return DeadlineAnswer{
		Text:   ComposeBeforeDeadline(early, deadline, names),
		Cutoff: cutoff,
		Count:  len(early),
	}
}
