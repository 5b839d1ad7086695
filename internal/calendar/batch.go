package calendar

import (
	"fmt"

	"scaffold-planner/internal/model"
)

// Mutation is one event's share of an atomic reorder batch. Foreman and Start are set
// only when the event changes cell.
type Mutation struct {
	EventID            string      `json:"eventId"`
	AssignedEmployeeID *string     `json:"assignedEmployeeId,omitempty"`
	Start              *model.Date `json:"start,omitempty"`
	SortOrder          int         `json:"sortOrder"`
}

type Batch []Mutation

// EventIDs lists the events touched by the batch.
func (b Batch) EventIDs() []string {
	out := make([]string, 0, len(b))
	for _, m := range b {
		out = append(out, m.EventID)
	}
	return out
}

// renumber ranks list 0..n-1 and emits a mutation for every event whose rank changed.
// The moved event is always emitted and carries the cell change, if any.
func renumber(list []model.CalendarEvent, movedID string, foreman *string, start *model.Date) Batch {
	var out Batch
	for i, ev := range list {
		if ev.ID == movedID {
			m := Mutation{EventID: ev.ID, SortOrder: i}
			if foreman != nil {
				f := *foreman
				m.AssignedEmployeeID = &f
			}
			if start != nil {
				s := *start
				m.Start = &s
			}
			out = append(out, m)
			continue
		}
		if ev.SortOrder != i {
			out = append(out, Mutation{EventID: ev.ID, SortOrder: i})
		}
	}
	return out
}

// mergeBatch folds repeated event ids into one mutation; later entries win.
func mergeBatch(b Batch) Batch {
	pos := make(map[string]int, len(b))
	out := make(Batch, 0, len(b))
	for _, m := range b {
		i, ok := pos[m.EventID]
		if !ok {
			pos[m.EventID] = len(out)
			out = append(out, m)
			continue
		}
		prev := out[i]
		prev.SortOrder = m.SortOrder
		if m.AssignedEmployeeID != nil {
			prev.AssignedEmployeeID = m.AssignedEmployeeID
		}
		if m.Start != nil {
			prev.Start = m.Start
		}
		out[i] = prev
	}
	return out
}

// checkDense verifies that applying b to list leaves ranks exactly 0..n-1.
func checkDense(list []model.CalendarEvent, b Batch) error {
	orders := make(map[string]int, len(b))
	for _, m := range b {
		orders[m.EventID] = m.SortOrder
	}
	seen := make([]bool, len(list))
	for _, ev := range list {
		o := ev.SortOrder
		if v, ok := orders[ev.ID]; ok {
			o = v
		}
		if o < 0 || o >= len(list) {
			return MalformedBatchError{Reason: fmt.Sprintf("event %s rank %d outside 0..%d", ev.ID, o, len(list)-1), Batch: b}
		}
		if seen[o] {
			return MalformedBatchError{Reason: fmt.Sprintf("duplicate rank %d in cell", o), Batch: b}
		}
		seen[o] = true
	}
	return nil
}

// ProjectUpdates translates an event batch into project patches. A phase event's
// start moves only that phase's date and mirrors it into StartDate; a legacy event
// keeps its span by shifting EndDate along. Mutations hitting the same project merge.
func ProjectUpdates(b Batch, projects []model.Project) ([]model.ProjectUpdate, error) {
	idx := projectIndex(projects)
	var order []string
	patches := make(map[string]model.ProjectPatch)
	for _, m := range b {
		pid, phase, split, ok := resolveEvent(idx, m.EventID)
		if !ok {
			return nil, StaleReferenceError{EventID: m.EventID, ProjectID: pid}
		}
		p := projects[idx[pid]]

		var patch model.ProjectPatch
		rank := m.SortOrder
		patch.SortOrder = &rank
		if m.AssignedEmployeeID != nil {
			f := *m.AssignedEmployeeID
			patch.AssignedEmployeeID = &f
		}
		if m.Start != nil {
			start := *m.Start
			mirror := start
			patch.StartDate = &mirror
			switch {
			case split && phase == model.PhaseAssembly:
				patch.AssemblyStartDate = &start
			case split && phase == model.PhaseDemolition:
				patch.DemolitionStartDate = &start
			case !p.StartDate.IsZero() && !p.EndDate.IsZero():
				end := start.AddDays(model.DaysBetween(p.StartDate, p.EndDate))
				patch.EndDate = &end
			}
		}

		if prev, ok := patches[pid]; ok {
			patches[pid] = prev.Merge(patch)
			continue
		}
		order = append(order, pid)
		patches[pid] = patch
	}

	out := make([]model.ProjectUpdate, 0, len(order))
	for _, pid := range order {
		out = append(out, model.ProjectUpdate{ID: pid, Patch: patches[pid]})
	}
	return out, nil
}

// SharedRankSiblings lists phase events left out of b whose project b re-ranks or
// reassigns while they sit on another day. Sort order and foreman are stored per
// project, so those events move within a cell b never renumbered.
func SharedRankSiblings(b Batch, projects []model.Project) []string {
	idx := projectIndex(projects)
	inBatch := make(map[string]bool, len(b))
	for _, m := range b {
		inBatch[m.EventID] = true
	}
	seen := make(map[string]bool)
	var out []string
	for _, m := range b {
		pid, _, split, ok := resolveEvent(idx, m.EventID)
		if !ok || !split {
			continue
		}
		p := projects[idx[pid]]
		reassigned := m.AssignedEmployeeID != nil && *m.AssignedEmployeeID != p.AssignedEmployeeID
		if m.SortOrder == p.SortOrder && !reassigned {
			continue
		}
		evs := DeriveProject(p)
		var start model.Date
		for _, ev := range evs {
			if ev.ID == m.EventID {
				start = ev.Start
			}
		}
		if m.Start != nil {
			start = *m.Start
		}
		for _, ev := range evs {
			if ev.ID == m.EventID || inBatch[ev.ID] || seen[ev.ID] || ev.Start == start {
				continue
			}
			seen[ev.ID] = true
			out = append(out, ev.ID)
		}
	}
	return out
}
