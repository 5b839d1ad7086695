package model

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestDate_AddDaysAndBetween(t *testing.T) {
	d, err := ParseDate("2026-02-27")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got := d.AddDays(2); got != "2026-03-01" {
		t.Fatalf("AddDays(2) = %q", got)
	}
	if got := DaysBetween(d, "2026-03-06"); got != 7 {
		t.Fatalf("DaysBetween = %d, want 7", got)
	}
	if _, err := ParseDate("27.02.2026"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDateOf_UsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC).In(loc)
	if got := DateOf(ts); got != "2026-10-20" {
		t.Fatalf("DateOf = %q, want 2026-10-20", got)
	}
}

func TestProject_Schedule(t *testing.T) {
	single := Project{ID: "p1", StartDate: "2026-10-19", EndDate: "2026-10-20"}
	if s, ok := single.Schedule().(SinglePhase); !ok || s.Start != "2026-10-19" || s.End != "2026-10-20" {
		t.Fatalf("expected single phase; got %#v", single.Schedule())
	}

	two := Project{ID: "p2", AssemblyStartDate: "2026-10-19", AssemblyDuration: 2}
	tp, ok := two.Schedule().(TwoPhase)
	if !ok {
		t.Fatalf("expected two phase; got %#v", two.Schedule())
	}
	if tp.Assembly == nil || tp.Demolition != nil {
		t.Fatalf("unexpected phases: %#v", tp)
	}
	if got := tp.Assembly.End(); got != "2026-10-20" {
		t.Fatalf("assembly end = %q", got)
	}
	if got := (PhaseSpan{Start: "2026-10-19"}).End(); got != "2026-10-19" {
		t.Fatalf("zero-duration phase end = %q", got)
	}
}

func TestProjectPatch_ApplyAndMerge(t *testing.T) {
	p := Project{ID: "p1", Title: "Old", Workers: []string{"a"}}
	order := 3
	workers := []string{"b", "c"}
	patch := ProjectPatch{Title: strPtr("New"), SortOrder: &order}.Merge(ProjectPatch{Workers: &workers})
	patch.Apply(&p)
	if p.Title != "New" || p.SortOrder != 3 || len(p.Workers) != 2 {
		t.Fatalf("unexpected project after apply: %+v", p)
	}
	workers[0] = "mutated"
	if p.Workers[0] != "b" {
		t.Fatalf("expected patch slices to be copied")
	}
	if !(ProjectPatch{}).IsEmpty() || patch.IsEmpty() {
		t.Fatalf("IsEmpty mismatch")
	}
}

func TestProject_CloneIsDeep(t *testing.T) {
	p := Project{ID: "p1", Trucks: []string{"T1"}, Dispatch: &Dispatch{Confirmed: true, WorkerIDs: []string{"w1"}}}
	c := p.Clone()
	c.Trucks[0] = "T2"
	c.Dispatch.WorkerIDs[0] = "w2"
	if p.Trucks[0] != "T1" || p.Dispatch.WorkerIDs[0] != "w1" {
		t.Fatalf("clone shares state with original: %+v", p)
	}
}

func TestCalendarEvent_Covers(t *testing.T) {
	ev := CalendarEvent{Start: "2026-10-19", End: "2026-10-21"}
	for _, tc := range []struct {
		day  Date
		want bool
	}{
		{"2026-10-18", false},
		{"2026-10-19", true},
		{"2026-10-21", true},
		{"2026-10-22", false},
	} {
		if got := ev.Covers(tc.day); got != tc.want {
			t.Fatalf("Covers(%s) = %v, want %v", tc.day, got, tc.want)
		}
	}
	if !(CalendarEvent{Start: "2026-10-19"}).Covers("2026-10-19") {
		t.Fatalf("event without end should cover its start day")
	}
}
