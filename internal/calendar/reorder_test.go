package calendar

import (
	"testing"

	"scaffold-planner/internal/model"
)

func TestMoveEvent_EdgesAreSilentNoops(t *testing.T) {
	events := DeriveEvents(threeInCell())
	b, err := MoveEvent(events, "X", Up)
	if err != nil || b != nil {
		t.Fatalf("expected nil batch and error, got %v %v", b, err)
	}
	b, err = MoveEvent(events, "Z", Down)
	if err != nil || b != nil {
		t.Fatalf("expected nil batch and error, got %v %v", b, err)
	}
}

func TestMoveEvent_SwapsNeighbours(t *testing.T) {
	events := DeriveEvents(threeInCell())
	b, err := MoveEvent(events, "X", Down)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := orders(b)
	if len(got) != 2 || got["X"] != 1 || got["Y"] != 0 {
		t.Fatalf("unexpected batch: %v", got)
	}
	requireDense(t, applyBatch(events, b), CellRef{ForemanID: "A", Day: day1})

	b, err = MoveEvent(events, "Z", Up)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := orders(b); got["Z"] != 1 || got["Y"] != 2 {
		t.Fatalf("unexpected batch: %v", got)
	}
}

func TestMoveEvent_RenumbersSparseCell(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 3},
		{ID: "b", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 7},
		{ID: "c", AssignedEmployeeID: "A", Start: day1, End: day1, SortOrder: 9},
	}
	b, err := MoveEvent(events, "c", Up)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := orders(b)
	if got["a"] != 0 || got["c"] != 1 || got["b"] != 2 || len(got) != 3 {
		t.Fatalf("unexpected batch: %v", got)
	}
}

func TestMoveEvent_Errors(t *testing.T) {
	events := DeriveEvents(threeInCell())
	if _, err := MoveEvent(events, "missing", Up); !IsStale(err) {
		t.Fatalf("expected stale reference, got %v", err)
	}
	if _, err := MoveEvent(events, "Y", Direction("sideways")); err == nil {
		t.Fatalf("expected direction error")
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Fatalf("expected parse error")
	}
	if d, err := ParseDirection("Down"); err != nil || d != Down {
		t.Fatalf("got %v %v", d, err)
	}
}

func TestProjectUpdates(t *testing.T) {
	projects := []model.Project{
		{ID: "L", StartDate: day1, EndDate: day3, AssignedEmployeeID: "A"},
		{ID: "P", AssemblyStartDate: day1, DemolitionStartDate: day2, AssignedEmployeeID: "A"},
	}
	d5 := day5
	b := Batch{
		{EventID: "L", Start: &d5, SortOrder: 1},
		{EventID: "P-demolition", Start: &d5, SortOrder: 0},
		{EventID: "P-assembly", SortOrder: 2},
	}
	updates, err := ProjectUpdates(b, projects)
	if err != nil {
		t.Fatalf("project updates: %v", err)
	}
	if len(updates) != 2 || updates[0].ID != "L" || updates[1].ID != "P" {
		t.Fatalf("unexpected updates: %+v", updates)
	}
	l := updates[0].Patch
	if *l.StartDate != day5 || l.EndDate == nil || *l.EndDate != "2026-10-25" {
		t.Fatalf("legacy span not kept: %+v", l)
	}
	p := updates[1].Patch
	if *p.DemolitionStartDate != day5 || p.AssemblyStartDate != nil || *p.SortOrder != 2 {
		t.Fatalf("unexpected phase patch: %+v", p)
	}

	if _, err := ProjectUpdates(Batch{{EventID: "gone-assembly"}}, projects); !IsStale(err) {
		t.Fatalf("expected stale reference, got %v", err)
	}
}

func TestSharedRankSiblings(t *testing.T) {
	projects := []model.Project{
		{ID: "P", AssemblyStartDate: day1, DemolitionStartDate: day5, AssignedEmployeeID: "A"},
		{ID: "R", StartDate: day5, EndDate: day5, AssignedEmployeeID: "A", SortOrder: 1},
		{ID: "L", StartDate: day1, EndDate: day1, AssignedEmployeeID: "A", SortOrder: 1},
	}
	b, err := MoveEvent(DeriveEvents(projects), "P-assembly", Down)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	got := SharedRankSiblings(b, projects)
	if len(got) != 1 || got[0] != "P-demolition" {
		t.Fatalf("expected P-demolition to drift, got %v", got)
	}

	both := Batch{{EventID: "P-assembly", SortOrder: 1}, {EventID: "P-demolition", SortOrder: 1}}
	if got := SharedRankSiblings(both, projects); len(got) != 0 {
		t.Fatalf("siblings in the batch are not drift: %v", got)
	}
	if got := SharedRankSiblings(Batch{{EventID: "L", SortOrder: 0}}, projects); len(got) != 0 {
		t.Fatalf("legacy events have no sibling: %v", got)
	}
	if got := SharedRankSiblings(Batch{{EventID: "P-assembly", SortOrder: 0}}, projects); len(got) != 0 {
		t.Fatalf("unchanged rank cannot drift: %v", got)
	}
}
