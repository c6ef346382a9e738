package appointment

import (
	"strings"
	"testing"
)

func TestRunCycleUnchangedSnapshot(t *testing.T) {
	snapshot := []Appointment{at(2024, 5, 1, 9, 0, 1), at(2024, 5, 2, 9, 0, 2)}
	subs := []Subscriber{{Address: "1", Deadline: day(2024, 6, 1)}}

	if got := RunCycle(snapshot, snapshot, subs, nil); len(got) != 0 {
		t.Fatalf("expected no messages, got %v", got)
	}
}

func TestRunCycleSkipsIrrelevantChanges(t *testing.T) {
	prev := []Appointment{at(2024, 5, 1, 9, 0, 1)}
	next := []Appointment{at(2024, 5, 1, 9, 0, 1), at(2024, 5, 2, 10, 0, 1)}
	subs := []Subscriber{{Address: "1", Deadline: day(2024, 5, 2)}}

	if got := RunCycle(prev, next, subs, nil); len(got) != 0 {
		t.Fatalf("expected subscriber to be skipped, got %v", got)
	}
}

func TestRunCyclePerDeadline(t *testing.T) {
	names := LocationNames{1: "Mitte"}
	prev := []Appointment{at(2024, 5, 1, 9, 0, 1)}
	next := []Appointment{at(2024, 5, 1, 9, 0, 1), at(2024, 5, 5, 10, 0, 1)}
	subs := []Subscriber{
		{Address: "early", Deadline: day(2024, 5, 3)},
		{Address: "late", Deadline: day(2024, 5, 10)},
		{Address: "late-too", Deadline: day(2024, 5, 10)},
	}

	got := RunCycle(prev, next, subs, names)
	if _, ok := got["early"]; ok {
		t.Fatal("subscriber with an earlier deadline must not be notified")
	}
	text, ok := got["late"]
	if !ok {
		t.Fatal("expected a message for the later deadline")
	}
	if !strings.HasPrefix(text, headerNew) || !strings.Contains(text, "05.05.2024: <i>10:00</i>") {
		t.Fatalf("unexpected message:\n%s", text)
	}
	if got["late-too"] != text {
		t.Fatal("subscribers with the same deadline should get the same text")
	}
}

func TestAnswerDeadlineQuery(t *testing.T) {
	names := LocationNames{1: "Mitte"}
	snapshot := []Appointment{
		at(2024, 5, 1, 9, 0, 1),
		at(2024, 5, 2, 9, 0, 1),
		at(2024, 5, 10, 9, 0, 1),
		at(2024, 5, 12, 9, 0, 1),
	}

	t.Run("after cutoff", func(t *testing.T) {
		got := AnswerDeadlineQuery(snapshot, day(2024, 5, 20), names)
		if !got.Summary {
			t.Fatal("expected summary")
		}
		want := "Vor deiner Deadline gibt es <i>4 Termine</i>.\n" +
			"Späteste Deadline: <b>10.05.2024</b>.\n" +
			"Benutze /termine um die frühesten Termine anzuzeigen."
		if got.Text != want {
			t.Fatalf("unexpected text:\n%s\nwant:\n%s", got.Text, want)
		}
		if got.Count != 4 || !got.Cutoff.Equal(day(2024, 5, 10)) {
			t.Fatalf("unexpected answer %+v", got)
		}
	})

	t.Run("on cutoff", func(t *testing.T) {
		got := AnswerDeadlineQuery(snapshot, day(2024, 5, 10), names)
		if got.Summary {
			t.Fatal("deadline equal to the cutoff should list appointments")
		}
		if !strings.HasPrefix(got.Text, "<b><u>2 Termine vor deiner Deadline:</u></b>\n") {
			t.Fatalf("unexpected text:\n%s", got.Text)
		}
	})

	t.Run("single appointment summary", func(t *testing.T) {
		got := AnswerDeadlineQuery(snapshot[:1], day(2024, 5, 2), names)
		if !got.Summary || !strings.HasPrefix(got.Text, "Vor deiner Deadline gibt es <i>einen Termin</i>.\n") {
			t.Fatalf("unexpected answer %+v", got)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		got := AnswerDeadlineQuery(nil, day(2024, 5, 20), names)
		if got.Text != NoAppointmentsBeforeDeadline || got.Summary {
			t.Fatalf("unexpected answer %+v", got)
		}
	})
}
