package model

import (
	"strings"
	"time"
)

// Unassigned is the foreman id used for projects nobody has been scheduled under yet.
const Unassigned = "unassigned"

// IsUnassigned reports whether a foreman id means "no foreman".
func IsUnassigned(foremanID string) bool {
	id := strings.TrimSpace(foremanID)
	return id == "" || id == Unassigned
}

type Phase string

const (
	PhaseAssembly   Phase = "assembly"
	PhaseDemolition Phase = "demolition"
	PhaseOther      Phase = "other"
)

type Project struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Customer string `json:"customer,omitempty"`
	Remarks  string `json:"remarks,omitempty"`
	Category string `json:"category,omitempty"`

	// ConstructionType is the legacy tag used to color single-phase projects.
	ConstructionType string `json:"constructionType,omitempty"`

	StartDate Date `json:"startDate,omitempty"`
	EndDate   Date `json:"endDate,omitempty"`

	AssemblyStartDate   Date `json:"assemblyStartDate,omitempty"`
	AssemblyDuration    int  `json:"assemblyDuration,omitempty"`
	DemolitionStartDate Date `json:"demolitionStartDate,omitempty"`
	DemolitionDuration  int  `json:"demolitionDuration,omitempty"`

	AssignedEmployeeID string `json:"assignedEmployeeId,omitempty"`
	SortOrder          int    `json:"sortOrder"`

	Workers []string `json:"workers,omitempty"`
	Trucks  []string `json:"trucks,omitempty"`

	Dispatch *Dispatch `json:"dispatch,omitempty"`

	CreatedBy []string  `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Dispatch is the human sign-off fixing the day's actual staffing.
type Dispatch struct {
	Confirmed   bool       `json:"confirmed"`
	WorkerIDs   []string   `json:"workerIds,omitempty"`
	VehicleIDs  []string   `json:"vehicleIds,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

// Clone returns a deep copy; slices and the dispatch record are not shared.
func (p Project) Clone() Project {
	out := p
	out.Workers = cloneStrings(p.Workers)
	out.Trucks = cloneStrings(p.Trucks)
	out.CreatedBy = cloneStrings(p.CreatedBy)
	if p.Dispatch != nil {
		d := *p.Dispatch
		d.WorkerIDs = cloneStrings(p.Dispatch.WorkerIDs)
		d.VehicleIDs = cloneStrings(p.Dispatch.VehicleIDs)
		if p.Dispatch.ConfirmedAt != nil {
			at := *p.Dispatch.ConfirmedAt
			d.ConfirmedAt = &at
		}
		out.Dispatch = &d
	}
	return out
}

func cloneStrings(xs []string) []string {
	if xs == nil {
		return nil
	}
	return append([]string{}, xs...)
}

// CloneProjects deep-copies a project list.
func CloneProjects(ps []Project) []Project {
	out := make([]Project, len(ps))
	for i := range ps {
		out[i] = ps[i].Clone()
	}
	return out
}

// Foreman is a roster entry; the calendar shows visible foremen ordered by DisplayOrder.
type Foreman struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"displayOrder"`
	Visible      bool   `json:"visible"`
}

type CalendarEvent struct {
	ID                 string   `json:"id"`
	ProjectID          string   `json:"projectId"`
	Title              string   `json:"title"`
	Start              Date     `json:"start"`
	End                Date     `json:"end"`
	Category           string   `json:"category,omitempty"`
	Color              string   `json:"color"`
	Phase              Phase    `json:"phase"`
	AssignedEmployeeID string   `json:"assignedEmployeeId,omitempty"`
	SortOrder          int      `json:"sortOrder"`
	Customer           string   `json:"customer,omitempty"`
	Workers            []string `json:"workers,omitempty"`
	Trucks             []string `json:"trucks,omitempty"`
	Remarks            string   `json:"remarks,omitempty"`
}

// Covers reports whether the event's date range includes day.
func (e CalendarEvent) Covers(day Date) bool {
	if e.Start.IsZero() || day.IsZero() {
		return false
	}
	end := e.End
	if end.IsZero() || end.Before(e.Start) {
		end = e.Start
	}
	return !day.Before(e.Start) && !end.Before(day)
}

type WeekDay struct {
	Date    Date         `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	IsToday bool         `json:"isToday"`
}

// EmployeeRow is one foreman's week: calendar day -> events sorted by sort order.
type EmployeeRow struct {
	EmployeeID string                   `json:"employeeId"`
	Name       string                   `json:"name"`
	Days       map[Date][]CalendarEvent `json:"days"`
}

// DayLoad summarizes unassigned work on one day.
type DayLoad struct {
	Events    int      `json:"events"`
	Headcount int      `json:"headcount"`
	EventIDs  []string `json:"eventIds,omitempty"`
}

type UnassignedSummary struct {
	Days map[Date]DayLoad `json:"days"`
}
