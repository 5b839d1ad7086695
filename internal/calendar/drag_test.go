package calendar

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"scaffold-planner/internal/model"
)

func threeInCell() []model.Project {
	return []model.Project{
		legacy("X", "A", day1, 0),
		legacy("Y", "A", day1, 1),
		legacy("Z", "A", day1, 2),
	}
}

func TestDrop_ReorderWithinCell(t *testing.T) {
	projects := threeInCell()
	events := DeriveEvents(projects)
	cell := CellRef{ForemanID: "A", Day: day1}

	d := NewDrag(zap.NewNop())
	if err := d.Begin(events, "Z", cell); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if d.State() != Dragging {
		t.Fatalf("expected dragging, got %s", d.State())
	}
	res := d.Drop(events, projects, &Target{Cell: cell, Index: 0})
	if res.Outcome != OutcomeDropped || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := orders(res.Batch)
	want := map[string]int{"Z": 0, "X": 1, "Y": 2}
	if len(got) != len(want) {
		t.Fatalf("batch = %v, want %v", got, want)
	}
	for id, o := range want {
		if got[id] != o {
			t.Fatalf("batch = %v, want %v", got, want)
		}
	}
	for _, m := range res.Batch {
		if m.AssignedEmployeeID != nil || m.Start != nil {
			t.Fatalf("same-cell move must not change cell: %+v", m)
		}
	}
	if d.State() != Idle {
		t.Fatalf("expected idle after drop")
	}
}

func TestDrop_PhaseEventToEmptyCell(t *testing.T) {
	projects := []model.Project{
		{ID: "X", AssemblyStartDate: day1, AssemblyDuration: 1, AssignedEmployeeID: "A", SortOrder: 0},
		legacy("Y", "A", day1, 1),
		legacy("Z", "A", day1, 2),
	}
	events := DeriveEvents(projects)

	d := NewDrag(nil)
	if err := d.Begin(events, "X-assembly", CellRef{ForemanID: "A", Day: day1}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	res := d.Drop(events, projects, &Target{Cell: CellRef{ForemanID: "B", Day: day3}, Index: 5})
	if res.Outcome != OutcomeDropped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := orders(res.Batch); got["X-assembly"] != 0 || got["Y"] != 0 || got["Z"] != 1 || len(got) != 3 {
		t.Fatalf("unexpected batch: %v", got)
	}
	var moved Mutation
	for _, m := range res.Batch {
		if m.EventID == "X-assembly" {
			moved = m
		}
	}
	if moved.AssignedEmployeeID == nil || *moved.AssignedEmployeeID != "B" || moved.Start == nil || *moved.Start != day3 {
		t.Fatalf("moved mutation missing cell change: %+v", moved)
	}

	updates, err := ProjectUpdates(res.Batch, projects)
	if err != nil {
		t.Fatalf("project updates: %v", err)
	}
	var px model.ProjectPatch
	for _, u := range updates {
		if u.ID == "X" {
			px = u.Patch
		}
	}
	if px.AssemblyStartDate == nil || *px.AssemblyStartDate != day3 {
		t.Fatalf("assembly date not moved: %+v", px)
	}
	if px.StartDate == nil || *px.StartDate != day3 {
		t.Fatalf("legacy start not mirrored: %+v", px)
	}
	if px.DemolitionStartDate != nil || px.EndDate != nil {
		t.Fatalf("untouched phase fields changed: %+v", px)
	}
	if px.AssignedEmployeeID == nil || *px.AssignedEmployeeID != "B" || px.SortOrder == nil || *px.SortOrder != 0 {
		t.Fatalf("unexpected patch: %+v", px)
	}

	after := applyBatch(events, res.Batch)
	requireDense(t, after, CellRef{ForemanID: "A", Day: day1})
	requireDense(t, after, CellRef{ForemanID: "B", Day: day3})
}

func TestDrop_SamePositionIsNoop(t *testing.T) {
	projects := threeInCell()
	events := DeriveEvents(projects)
	cell := CellRef{ForemanID: "A", Day: day1}

	for _, tc := range []struct {
		id    string
		index int
	}{{"X", 0}, {"Y", 1}, {"Z", 2}, {"Z", 9}} {
		d := NewDrag(nil)
		if err := d.Begin(events, tc.id, cell); err != nil {
			t.Fatalf("begin: %v", err)
		}
		res := d.Drop(events, projects, &Target{Cell: cell, Index: tc.index})
		if res.Outcome != OutcomeNoop || len(res.Batch) != 0 || res.Err != nil {
			t.Fatalf("%s@%d: expected noop, got %+v", tc.id, tc.index, res)
		}
	}
}

func TestDrop_CancelledOutsideAndByCancel(t *testing.T) {
	projects := threeInCell()
	events := DeriveEvents(projects)
	cell := CellRef{ForemanID: "A", Day: day1}

	d := NewDrag(nil)
	if err := d.Begin(events, "X", cell); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := d.Begin(events, "Y", cell); !errors.Is(err, ErrDragInProgress) {
		t.Fatalf("expected ErrDragInProgress, got %v", err)
	}
	if res := d.Drop(events, projects, nil); res.Outcome != OutcomeCancelled || res.Err != nil {
		t.Fatalf("expected plain cancel, got %+v", res)
	}

	if err := d.Begin(events, "X", cell); err != nil {
		t.Fatalf("begin: %v", err)
	}
	d.Cancel()
	if _, ok := d.Origin(); ok || d.State() != Idle {
		t.Fatalf("expected idle after cancel")
	}
	if res := d.Drop(events, projects, &Target{Cell: cell}); !errors.Is(res.Err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging, got %+v", res)
	}
}

func TestDrop_StaleProjectCancelsAndWarns(t *testing.T) {
	projects := threeInCell()
	events := DeriveEvents(projects)
	cell := CellRef{ForemanID: "A", Day: day1}

	core, logs := observer.New(zap.WarnLevel)
	d := NewDrag(zap.New(core))
	if err := d.Begin(events, "Y", cell); err != nil {
		t.Fatalf("begin: %v", err)
	}
	remaining := []model.Project{projects[0], projects[2]}
	res := d.Drop(events, remaining, &Target{Cell: CellRef{ForemanID: "B", Day: day1}})
	if res.Outcome != OutcomeCancelled || !IsStale(res.Err) || len(res.Batch) != 0 {
		t.Fatalf("expected stale cancel, got %+v", res)
	}
	if logs.Len() != 1 || logs.All()[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warning, got %d entries", logs.Len())
	}
}

func TestBegin_UnknownEvent(t *testing.T) {
	d := NewDrag(nil)
	err := d.Begin(DeriveEvents(threeInCell()), "nope", CellRef{ForemanID: "A", Day: day1})
	if !IsStale(err) {
		t.Fatalf("expected stale reference, got %v", err)
	}
	if d.State() != Idle {
		t.Fatalf("failed begin must stay idle")
	}
}

func TestPreview_IsDeterministic(t *testing.T) {
	events := DeriveEvents(threeInCell())
	cell := CellRef{ForemanID: "A", Day: day1}
	d := NewDrag(nil)
	if _, err := d.Preview(events, Target{Cell: cell}); !errors.Is(err, ErrNotDragging) {
		t.Fatalf("expected ErrNotDragging, got %v", err)
	}
	if err := d.Begin(events, "Y", cell); err != nil {
		t.Fatalf("begin: %v", err)
	}
	target := Target{Cell: CellRef{ForemanID: model.Unassigned, Day: day2}, Index: 0}
	first, err := d.Preview(events, target)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	second, _ := d.Preview(events, target)
	if len(first) != len(second) {
		t.Fatalf("preview not deterministic: %v vs %v", first, second)
	}
	for i := range first {
		if first[i].EventID != second[i].EventID || first[i].SortOrder != second[i].SortOrder {
			t.Fatalf("preview not deterministic: %v vs %v", first, second)
		}
	}
	if d.State() != Dragging {
		t.Fatalf("preview must not end the drag")
	}
}

func TestComputeDrop_KeepsEveryTouchedCellDense(t *testing.T) {
	projects := []model.Project{
		legacy("a1", "A", day1, 0), legacy("a2", "A", day1, 1), legacy("a3", "A", day1, 2),
		legacy("b1", "B", day1, 0), legacy("b2", "B", day1, 1),
		legacy("c1", "A", day2, 0),
		legacy("u1", "", day2, 0),
	}
	events := DeriveEvents(projects)
	cells := []CellRef{
		{ForemanID: "A", Day: day1},
		{ForemanID: "B", Day: day1},
		{ForemanID: "A", Day: day2},
		{ForemanID: model.Unassigned, Day: day2},
		{ForemanID: "B", Day: day3},
	}
	for _, from := range cells {
		for _, ev := range CellEvents(events, from.ForemanID, from.Day) {
			for _, to := range cells {
				for idx := 0; idx <= 4; idx++ {
					origin := Origin{EventID: ev.ID, Cell: from}
					b, err := ComputeDrop(events, origin, Target{Cell: to, Index: idx})
					if err != nil {
						t.Fatalf("%s %v->%v@%d: %v", ev.ID, from, to, idx, err)
					}
					after := applyBatch(events, b)
					for _, c := range cells {
						requireDense(t, after, c)
					}
					if _, err := ProjectUpdates(b, projects); err != nil {
						t.Fatalf("project updates: %v", err)
					}
				}
			}
		}
	}
}

func TestCheckDense_RejectsGapsAndDuplicates(t *testing.T) {
	list := []model.CalendarEvent{{ID: "a", SortOrder: 0}, {ID: "b", SortOrder: 1}}
	if err := checkDense(list, Batch{{EventID: "a", SortOrder: 1}}); !IsMalformed(err) {
		t.Fatalf("expected malformed duplicate, got %v", err)
	}
	if err := checkDense(list, Batch{{EventID: "b", SortOrder: 2}}); !IsMalformed(err) {
		t.Fatalf("expected malformed gap, got %v", err)
	}
	if err := checkDense(list, Batch{{EventID: "a", SortOrder: 1}, {EventID: "b", SortOrder: 0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
