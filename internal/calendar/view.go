package calendar

import (
	"time"

	"scaffold-planner/internal/model"
)

// View is everything needed to draw one week.
type View struct {
	Anchor     model.Date              `json:"anchor"`
	Days       []model.WeekDay         `json:"days"`
	Foremen    []model.Foreman         `json:"foremen"`
	Rows       []model.EmployeeRow     `json:"rows"`
	Unassigned model.UnassignedSummary `json:"unassigned"`
	Events     []model.CalendarEvent   `json:"-"`
}

func BuildView(anchor model.Date, weekStart time.Weekday, today model.Date, roster []model.Foreman, projects []model.Project) View {
	days := WeekDays(anchor, weekStart, today)
	foremen := VisibleForemen(roster)
	events := DeriveEvents(projects)
	return View{
		Anchor:     anchor,
		Days:       days,
		Foremen:    foremen,
		Rows:       BuildRows(foremen, events, days),
		Unassigned: BuildUnassigned(events, days),
		Events:     events,
	}
}

// Row returns the row of one foreman.
func (v View) Row(foremanID string) (model.EmployeeRow, bool) {
	for _, r := range v.Rows {
		if r.EmployeeID == foremanID {
			return r, true
		}
	}
	return model.EmployeeRow{}, false
}
