package calendar

import (
	"testing"
	"time"

	"scaffold-planner/internal/model"
)

const (
	day1 model.Date = "2026-10-19"
	day2 model.Date = "2026-10-20"
	day3 model.Date = "2026-10-21"
	day5 model.Date = "2026-10-23"
)

func legacy(id, foreman string, start model.Date, order int) model.Project {
	return model.Project{ID: id, Title: id, StartDate: start, EndDate: start, AssignedEmployeeID: foreman, SortOrder: order}
}

func orders(b Batch) map[string]int {
	out := make(map[string]int, len(b))
	for _, m := range b {
		out[m.EventID] = m.SortOrder
	}
	return out
}

func applyBatch(events []model.CalendarEvent, b Batch) []model.CalendarEvent {
	out := append([]model.CalendarEvent{}, events...)
	for _, m := range b {
		for i := range out {
			if out[i].ID != m.EventID {
				continue
			}
			out[i].SortOrder = m.SortOrder
			if m.AssignedEmployeeID != nil {
				out[i].AssignedEmployeeID = *m.AssignedEmployeeID
			}
			if m.Start != nil {
				span := model.DaysBetween(out[i].Start, out[i].End)
				out[i].Start = *m.Start
				out[i].End = m.Start.AddDays(span)
			}
		}
	}
	return out
}

func requireDense(t *testing.T, events []model.CalendarEvent, cell CellRef) {
	t.Helper()
	for i, ev := range CellEvents(events, cell.ForemanID, cell.Day) {
		if ev.SortOrder != i {
			t.Fatalf("cell %s/%s: event %s has rank %d at position %d", cell.ForemanID, cell.Day, ev.ID, ev.SortOrder, i)
		}
	}
}

func TestDeriveEvents_TwoPhaseProject(t *testing.T) {
	p := model.Project{
		ID:                  "P",
		Title:               "Harbor tower",
		AssemblyStartDate:   day1,
		AssemblyDuration:    2,
		DemolitionStartDate: day5,
		AssignedEmployeeID:  "A",
		Workers:             []string{"w1"},
	}
	evs := DeriveEvents([]model.Project{p})
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].ID != "P-assembly" || evs[0].Start != day1 || evs[0].End != day2 || evs[0].Phase != model.PhaseAssembly || evs[0].Color != ColorAssembly {
		t.Fatalf("unexpected assembly event: %+v", evs[0])
	}
	if evs[1].ID != "P-demolition" || evs[1].Start != day5 || evs[1].End != day5 || evs[1].Phase != model.PhaseDemolition {
		t.Fatalf("unexpected demolition event: %+v", evs[1])
	}
	evs[0].Workers[0] = "changed"
	if p.Workers[0] != "w1" {
		t.Fatalf("event shares worker slice with project")
	}
}

func TestDeriveEvents_LegacyProjects(t *testing.T) {
	cases := []struct {
		name  string
		p     model.Project
		phase model.Phase
		color string
		end   model.Date
	}{
		{"demolition tag", model.Project{ID: "a", StartDate: day1, EndDate: day3, ConstructionType: "Demolition"}, model.PhaseDemolition, ColorDemolition, day3},
		{"untagged", model.Project{ID: "b", StartDate: day2}, model.PhaseOther, ColorOther, day2},
		{"end before start", model.Project{ID: "c", StartDate: day3, EndDate: day1, ConstructionType: "repair"}, model.PhaseOther, "#d97706", day3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evs := DeriveEvents([]model.Project{tc.p})
			if len(evs) != 1 {
				t.Fatalf("expected 1 event, got %d", len(evs))
			}
			ev := evs[0]
			if ev.ID != tc.p.ID || ev.Phase != tc.phase || ev.Color != tc.color || ev.End != tc.end {
				t.Fatalf("unexpected event: %+v", ev)
			}
		})
	}
}

func TestDeriveEvents_TotalAndReversible(t *testing.T) {
	projects := []model.Project{
		{ID: "empty"},
		{ID: "only-demo", DemolitionStartDate: day2},
		{ID: "both", AssemblyStartDate: day1, DemolitionStartDate: day5, DemolitionDuration: -3},
		legacy("plain", "A", day1, 0),
	}
	counts := map[string]int{}
	for _, ev := range DeriveEvents(projects) {
		pid, _, _ := SplitEventID(ev.ID)
		if pid != ev.ProjectID {
			t.Fatalf("event %s maps back to %s, want %s", ev.ID, pid, ev.ProjectID)
		}
		counts[pid]++
	}
	for _, p := range projects {
		if counts[p.ID] < 1 || counts[p.ID] > 2 {
			t.Fatalf("project %s produced %d events", p.ID, counts[p.ID])
		}
	}
	if counts["both"] != 2 || counts["only-demo"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestSplitEventID(t *testing.T) {
	pid, phase, split := SplitEventID("P-demolition")
	if pid != "P" || phase != model.PhaseDemolition || !split {
		t.Fatalf("got %q %q %v", pid, phase, split)
	}
	pid, _, split = SplitEventID("P")
	if pid != "P" || split {
		t.Fatalf("got %q %v", pid, split)
	}
	if EventID("P", model.PhaseAssembly) != "P-assembly" {
		t.Fatalf("unexpected event id")
	}
}

func TestWeekStartAndNavigator(t *testing.T) {
	if got := WeekStart(day3, time.Monday); got != day1 {
		t.Fatalf("monday week start: got %s", got)
	}
	if got := WeekStart(day3, time.Sunday); got != "2026-10-18" {
		t.Fatalf("sunday week start: got %s", got)
	}

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	n := NewNavigator(time.Monday, func() time.Time { return now })
	days := n.Days()
	if len(days) != 7 || days[0].Date != day1 || !days[0].IsToday || days[6].Date != "2026-10-25" {
		t.Fatalf("unexpected week: %+v", days)
	}
	if days[6].Weekday != time.Sunday {
		t.Fatalf("expected week to end on sunday, got %s", days[6].Weekday)
	}

	n.NextWeek()
	if n.Anchor() != "2026-10-26" || n.Days()[0].IsToday {
		t.Fatalf("next week: anchor %s", n.Anchor())
	}
	n.PreviousDay()
	n.PreviousDay()
	if n.Anchor() != "2026-10-24" {
		t.Fatalf("previous day: anchor %s", n.Anchor())
	}
	n.PreviousWeek()
	n.NextDay()
	if n.Anchor() != "2026-10-18" {
		t.Fatalf("anchor %s", n.Anchor())
	}
	n.Today()
	if n.Anchor() != day1 {
		t.Fatalf("today: anchor %s", n.Anchor())
	}
}

func TestParseWeekday(t *testing.T) {
	if wd, err := ParseWeekday("Sunday"); err != nil || wd != time.Sunday {
		t.Fatalf("got %v %v", wd, err)
	}
	if wd, err := ParseWeekday(""); err != nil || wd != time.Monday {
		t.Fatalf("got %v %v", wd, err)
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestVisibleForemen(t *testing.T) {
	got := VisibleForemen([]model.Foreman{
		{ID: "c", DisplayOrder: 2, Visible: true},
		{ID: "hidden", DisplayOrder: 0, Visible: false},
		{ID: "a", DisplayOrder: 1, Visible: true},
		{ID: "b", DisplayOrder: 1, Visible: true},
		{ID: model.Unassigned, Visible: true},
	})
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected roster: %+v", got)
	}
}

func TestBuildRows(t *testing.T) {
	week := WeekDays(day1, time.Monday, day1)
	events := []model.CalendarEvent{
		{ID: "late", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 1},
		{ID: "tie1", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 0},
		{ID: "tie2", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 0},
		{ID: "span", AssignedEmployeeID: "B", Start: day1, End: day2},
		{ID: "free", AssignedEmployeeID: model.Unassigned, Start: day2, End: day2, Workers: []string{"w1", "w2"}},
		{ID: "blank", Start: day2, End: day2, Workers: []string{"w3"}},
		{ID: "ghost", AssignedEmployeeID: "gone", Start: day1, End: day1},
	}
	rows := BuildRows([]model.Foreman{{ID: "B", Name: "Bo"}, {ID: "A", Name: "Al"}}, events, week)
	if len(rows) != 2 || rows[0].EmployeeID != "B" || rows[1].EmployeeID != "A" {
		t.Fatalf("rows not in roster order: %+v", rows)
	}
	a := rows[1].Days[day1]
	if len(a) != 3 || a[0].ID != "tie1" || a[1].ID != "tie2" || a[2].ID != "late" {
		t.Fatalf("unexpected A/day1 order: %v", ids(a))
	}
	if len(rows[0].Days[day1]) != 1 || len(rows[0].Days[day2]) != 1 || len(rows[0].Days[day3]) != 0 {
		t.Fatalf("multi-day event not spread across its days")
	}
	if len(rows[1].Days) != 7 {
		t.Fatalf("expected 7 days per row, got %d", len(rows[1].Days))
	}

	sum := BuildUnassigned(events, week)
	load := sum.Days[day2]
	if load.Events != 2 || load.Headcount != 3 {
		t.Fatalf("unexpected unassigned load: %+v", load)
	}
	if sum.Days[day1].Events != 0 {
		t.Fatalf("expected empty day1 load")
	}
}

func ids(evs []model.CalendarEvent) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.ID)
	}
	return out
}
