package calendar

import (
	"strings"

	"scaffold-planner/internal/model"
)

const (
	ColorAssembly   = "#2563eb"
	ColorDemolition = "#dc2626"
	ColorOther      = "#6b7280"
)

// constructionTypeColors colors legacy single-phase projects by their construction type tag.
var constructionTypeColors = map[string]string{
	"assembly":   ColorAssembly,
	"demolition": ColorDemolition,
	"repair":     "#d97706",
	"inspection": "#059669",
	"rental":     "#7c3aed",
}

const (
	assemblySuffix   = "-assembly"
	demolitionSuffix = "-demolition"
)

// EventID returns the calendar event id for one phase of a project.
func EventID(projectID string, phase model.Phase) string {
	switch phase {
	case model.PhaseAssembly:
		return projectID + assemblySuffix
	case model.PhaseDemolition:
		return projectID + demolitionSuffix
	default:
		return projectID
	}
}

// SplitEventID strips a phase suffix. split is false for single-phase event ids.
func SplitEventID(eventID string) (projectID string, phase model.Phase, split bool) {
	switch {
	case strings.HasSuffix(eventID, assemblySuffix):
		return strings.TrimSuffix(eventID, assemblySuffix), model.PhaseAssembly, true
	case strings.HasSuffix(eventID, demolitionSuffix):
		return strings.TrimSuffix(eventID, demolitionSuffix), model.PhaseDemolition, true
	default:
		return eventID, model.PhaseOther, false
	}
}

// DeriveEvents projects every project onto one or two calendar events.
// Emission order carries no meaning; display order comes from SortOrder.
func DeriveEvents(projects []model.Project) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(projects))
	for _, p := range projects {
		out = append(out, DeriveProject(p)...)
	}
	return out
}

func DeriveProject(p model.Project) []model.CalendarEvent {
	switch s := p.Schedule().(type) {
	case model.TwoPhase:
		evs := make([]model.CalendarEvent, 0, 2)
		if s.Assembly != nil {
			evs = append(evs, phaseEvent(p, model.PhaseAssembly, *s.Assembly, ColorAssembly))
		}
		if s.Demolition != nil {
			evs = append(evs, phaseEvent(p, model.PhaseDemolition, *s.Demolition, ColorDemolition))
		}
		return evs
	case model.SinglePhase:
		return []model.CalendarEvent{singleEvent(p, s)}
	default:
		return []model.CalendarEvent{singleEvent(p, model.SinglePhase{Start: p.StartDate, End: p.EndDate})}
	}
}

func phaseEvent(p model.Project, phase model.Phase, span model.PhaseSpan, color string) model.CalendarEvent {
	ev := baseEvent(p)
	ev.ID = EventID(p.ID, phase)
	ev.Start = span.Start
	ev.End = span.End()
	ev.Phase = phase
	ev.Color = color
	return ev
}

func singleEvent(p model.Project, s model.SinglePhase) model.CalendarEvent {
	ev := baseEvent(p)
	ev.ID = p.ID
	ev.Start = s.Start
	ev.End = s.End
	if ev.End.IsZero() || ev.End.Before(ev.Start) {
		ev.End = ev.Start
	}
	ct := strings.ToLower(strings.TrimSpace(p.ConstructionType))
	ev.Color = ColorOther
	if c, ok := constructionTypeColors[ct]; ok {
		ev.Color = c
	}
	switch ct {
	case string(model.PhaseAssembly):
		ev.Phase = model.PhaseAssembly
	case string(model.PhaseDemolition):
		ev.Phase = model.PhaseDemolition
	default:
		ev.Phase = model.PhaseOther
	}
	return ev
}

func baseEvent(p model.Project) model.CalendarEvent {
	ev := model.CalendarEvent{
		ProjectID:          p.ID,
		Title:              p.Title,
		Category:           p.Category,
		AssignedEmployeeID: p.AssignedEmployeeID,
		SortOrder:          p.SortOrder,
		Customer:           p.Customer,
		Remarks:            p.Remarks,
	}
	if p.Workers != nil {
		ev.Workers = append([]string{}, p.Workers...)
	}
	if p.Trucks != nil {
		ev.Trucks = append([]string{}, p.Trucks...)
	}
	return ev
}

// projectIndex maps project ids to their position in projects.
func projectIndex(projects []model.Project) map[string]int {
	idx := make(map[string]int, len(projects))
	for i := range projects {
		idx[projects[i].ID] = i
	}
	return idx
}

// resolveEvent finds the backing project of an event id. An exact project id match wins
// over suffix stripping so project ids that happen to end in a phase suffix still resolve.
func resolveEvent(idx map[string]int, eventID string) (projectID string, phase model.Phase, split bool, ok bool) {
	if _, found := idx[eventID]; found {
		return eventID, model.PhaseOther, false, true
	}
	pid, ph, sp := SplitEventID(eventID)
	if !sp {
		return pid, ph, false, false
	}
	_, found := idx[pid]
	return pid, ph, sp, found
}
