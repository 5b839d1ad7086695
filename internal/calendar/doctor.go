package calendar

import (
	"fmt"
	"sort"

	"scaffold-planner/internal/model"
)

type IssueLevel string

const (
	IssueLevelError IssueLevel = "error"
	IssueLevelWarn  IssueLevel = "warn"
)

// Issue is one data problem that makes the calendar render or reorder badly.
type Issue struct {
	Level   IssueLevel `json:"level"`
	Code    string     `json:"code"`
	Message string     `json:"message"`

	ProjectID string     `json:"projectId,omitempty"`
	EventID   string     `json:"eventId,omitempty"`
	ForemanID string     `json:"foremanId,omitempty"`
	Day       model.Date `json:"day,omitempty"`
}

type Report struct {
	Issues []Issue `json:"issues"`
	// Repair renumbers every cell whose sort orders are not dense.
	Repair Batch `json:"repair,omitempty"`
}

func (r Report) HasErrors() bool {
	for _, it := range r.Issues {
		if it.Level == IssueLevelError {
			return true
		}
	}
	return false
}

// Diagnose checks projects against the roster and the dense-ordering rule.
func Diagnose(projects []model.Project, roster []model.Foreman) Report {
	issues := []Issue{}

	known := make(map[string]model.Foreman, len(roster))
	for _, f := range roster {
		known[f.ID] = f
	}

	for _, p := range projects {
		fid := p.AssignedEmployeeID
		if !model.IsUnassigned(fid) {
			f, ok := known[fid]
			switch {
			case !ok:
				issues = append(issues, Issue{
					Level:     IssueLevelError,
					Code:      "unknown_foreman",
					Message:   fmt.Sprintf("project %q is assigned to %s, who is not on the roster; it shows on no row", p.Title, fid),
					ProjectID: p.ID,
					ForemanID: fid,
				})
			case !f.Visible:
				issues = append(issues, Issue{
					Level:     IssueLevelWarn,
					Code:      "hidden_foreman",
					Message:   fmt.Sprintf("project %q is assigned to hidden foreman %s", p.Title, f.Name),
					ProjectID: p.ID,
					ForemanID: fid,
				})
			}
		}

		if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
			issues = append(issues, Issue{
				Level:     IssueLevelWarn,
				Code:      "end_before_start",
				Message:   fmt.Sprintf("project %q ends %s before it starts %s", p.Title, p.EndDate, p.StartDate),
				ProjectID: p.ID,
			})
		}
		if s, ok := p.Schedule().(model.TwoPhase); ok && s.Assembly != nil && s.Demolition != nil &&
			!s.Assembly.End().Before(s.Demolition.Start) {
			issues = append(issues, Issue{
				Level:     IssueLevelWarn,
				Code:      "phase_overlap",
				Message:   fmt.Sprintf("project %q starts demolition %s before assembly ends %s", p.Title, s.Demolition.Start, s.Assembly.End()),
				ProjectID: p.ID,
			})
		}
		for _, ev := range DeriveProject(p) {
			if ev.Start.IsZero() {
				issues = append(issues, Issue{
					Level:     IssueLevelWarn,
					Code:      "no_dates",
					Message:   fmt.Sprintf("event %s has no start date and never appears on the calendar", ev.ID),
					ProjectID: p.ID,
					EventID:   ev.ID,
				})
			}
		}
	}

	var repair Batch
	touched := map[string]bool{}
	events := DeriveEvents(projects)
	for _, c := range startCells(events) {
		list := CellEvents(events, c.ForemanID, c.Day)
		if dense(list) {
			continue
		}
		issues = append(issues, Issue{
			Level:     IssueLevelWarn,
			Code:      "sort_order_gap",
			Message:   fmt.Sprintf("cell %s on %s has sort orders %v, expected 0..%d", displayForeman(c.ForemanID), c.Day, ranks(list), len(list)-1),
			ForemanID: c.ForemanID,
			Day:       c.Day,
		})
		for _, m := range renumber(list, "", nil, nil) {
			if touched[m.EventID] {
				continue
			}
			touched[m.EventID] = true
			repair = append(repair, m)
		}
	}

	return Report{Issues: issues, Repair: repair}
}

// startCells lists each event's start-day cell once, ordered by day then foreman.
func startCells(events []model.CalendarEvent) []CellRef {
	seen := map[CellRef]bool{}
	var out []CellRef
	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		c := CellRef{ForemanID: ev.AssignedEmployeeID, Day: ev.Start}
		if model.IsUnassigned(c.ForemanID) {
			c.ForemanID = model.Unassigned
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].ForemanID < out[j].ForemanID
	})
	return out
}

func dense(list []model.CalendarEvent) bool {
	for i, ev := range list {
		if ev.SortOrder != i {
			return false
		}
	}
	return true
}

func ranks(list []model.CalendarEvent) []int {
	out := make([]int, 0, len(list))
	for _, ev := range list {
		out = append(out, ev.SortOrder)
	}
	return out
}

func displayForeman(id string) string {
	if model.IsUnassigned(id) {
		return "unassigned"
	}
	return id
}
