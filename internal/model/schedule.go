package model

// Schedule is the scheduling shape of a project: either SinglePhase (legacy start/end)
// or TwoPhase (assembly and/or demolition).
type Schedule interface {
	isSchedule()
}

type SinglePhase struct {
	Start Date
	End   Date
}

// PhaseSpan is one phase of a two-phase project. Days < 1 counts as a single day.
type PhaseSpan struct {
	Start Date
	Days  int
}

func (s PhaseSpan) End() Date {
	days := s.Days
	if days < 1 {
		days = 1
	}
	return s.Start.AddDays(days - 1)
}

type TwoPhase struct {
	Assembly   *PhaseSpan
	Demolition *PhaseSpan
}

func (SinglePhase) isSchedule() {}
func (TwoPhase) isSchedule()    {}

func (p Project) Schedule() Schedule {
	var tp TwoPhase
	if !p.AssemblyStartDate.IsZero() {
		tp.Assembly = &PhaseSpan{Start: p.AssemblyStartDate, Days: p.AssemblyDuration}
	}
	if !p.DemolitionStartDate.IsZero() {
		tp.Demolition = &PhaseSpan{Start: p.DemolitionStartDate, Days: p.DemolitionDuration}
	}
	if tp.Assembly == nil && tp.Demolition == nil {
		return SinglePhase{Start: p.StartDate, End: p.EndDate}
	}
	return tp
}
