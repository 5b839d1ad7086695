package calendar

import (
	"sort"

	"scaffold-planner/internal/model"
)

// VisibleForemen returns the visible roster entries ordered by DisplayOrder.
func VisibleForemen(roster []model.Foreman) []model.Foreman {
	out := make([]model.Foreman, 0, len(roster))
	for _, f := range roster {
		if !f.Visible || model.IsUnassigned(f.ID) {
			continue
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out
}

func sameForeman(a, b string) bool {
	if model.IsUnassigned(a) || model.IsUnassigned(b) {
		return model.IsUnassigned(a) && model.IsUnassigned(b)
	}
	return a == b
}

// CellEvents returns the events occupying one (foreman, day) cell sorted by SortOrder.
// Ties keep input order. Passing model.Unassigned selects the unassigned pool.
func CellEvents(events []model.CalendarEvent, foremanID string, day model.Date) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, ev := range events {
		if sameForeman(ev.AssignedEmployeeID, foremanID) && ev.Covers(day) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// BuildRows lays out one row per foreman, in the given order, across the week.
// Unassigned events are left to BuildUnassigned.
func BuildRows(foremen []model.Foreman, events []model.CalendarEvent, week []model.WeekDay) []model.EmployeeRow {
	byForeman := make(map[string][]model.CalendarEvent)
	for _, ev := range events {
		if model.IsUnassigned(ev.AssignedEmployeeID) {
			continue
		}
		byForeman[ev.AssignedEmployeeID] = append(byForeman[ev.AssignedEmployeeID], ev)
	}

	rows := make([]model.EmployeeRow, 0, len(foremen))
	for _, f := range foremen {
		if model.IsUnassigned(f.ID) {
			continue
		}
		row := model.EmployeeRow{
			EmployeeID: f.ID,
			Name:       f.Name,
			Days:       make(map[model.Date][]model.CalendarEvent, len(week)),
		}
		own := byForeman[f.ID]
		for _, d := range week {
			row.Days[d.Date] = CellEvents(own, f.ID, d.Date)
		}
		rows = append(rows, row)
	}
	return rows
}

// BuildUnassigned aggregates unassigned events per day. Headcount is the number of
// workers named on the covering events.
func BuildUnassigned(events []model.CalendarEvent, week []model.WeekDay) model.UnassignedSummary {
	sum := model.UnassignedSummary{Days: make(map[model.Date]model.DayLoad, len(week))}
	for _, d := range week {
		var load model.DayLoad
		for _, ev := range CellEvents(events, model.Unassigned, d.Date) {
			load.Events++
			load.Headcount += len(ev.Workers)
			load.EventIDs = append(load.EventIDs, ev.ID)
		}
		sum.Days[d.Date] = load
	}
	return sum
}
