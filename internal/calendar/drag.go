package calendar

import (
	"go.uber.org/zap"

	"scaffold-planner/internal/model"
)

type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// CellRef addresses one (foreman, day) cell. ForemanID may be model.Unassigned.
type CellRef struct {
	ForemanID string     `json:"foremanId"`
	Day       model.Date `json:"day"`
}

func (c CellRef) Same(o CellRef) bool {
	return c.Day == o.Day && sameForeman(c.ForemanID, o.ForemanID)
}

// Target is a drop position: a cell and an insertion index among its other events.
type Target struct {
	Cell  CellRef `json:"cell"`
	Index int     `json:"index"`
}

// Origin is what was grabbed.
type Origin struct {
	EventID   string  `json:"eventId"`
	Cell      CellRef `json:"cell"`
	Index     int     `json:"index"`
	SortOrder int     `json:"sortOrder"`
}

type Outcome int

const (
	OutcomeDropped Outcome = iota
	OutcomeNoop
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDropped:
		return "dropped"
	case OutcomeNoop:
		return "noop"
	default:
		return "cancelled"
	}
}

type DropResult struct {
	Outcome Outcome
	Batch   Batch
	Err     error
}

// Drag is the Idle/Dragging state machine for one pointer. It is not safe for
// concurrent use; the UI owns it.
type Drag struct {
	state  DragState
	origin Origin
	log    *zap.Logger
}

func NewDrag(log *zap.Logger) *Drag {
	if log == nil {
		log = zap.NewNop()
	}
	return &Drag{log: log}
}

func (d *Drag) State() DragState { return d.state }

func (d *Drag) Origin() (Origin, bool) {
	return d.origin, d.state == Dragging
}

// Begin grabs eventID from cell.
func (d *Drag) Begin(events []model.CalendarEvent, eventID string, cell CellRef) error {
	if d.state == Dragging {
		return ErrDragInProgress
	}
	list := CellEvents(events, cell.ForemanID, cell.Day)
	i := indexOf(list, eventID)
	if i < 0 {
		return StaleReferenceError{EventID: eventID}
	}
	d.origin = Origin{EventID: eventID, Cell: cell, Index: i, SortOrder: list[i].SortOrder}
	d.state = Dragging
	return nil
}

// Preview computes the batch a drop on target would emit without leaving Dragging.
func (d *Drag) Preview(events []model.CalendarEvent, target Target) (Batch, error) {
	if d.state != Dragging {
		return nil, ErrNotDragging
	}
	return ComputeDrop(events, d.origin, target)
}

func (d *Drag) Cancel() {
	d.state = Idle
	d.origin = Origin{}
}

// Drop releases the grabbed event. A nil target means release outside any cell.
// projects is the current project list; a grabbed event whose project has vanished
// cancels the drag.
func (d *Drag) Drop(events []model.CalendarEvent, projects []model.Project, target *Target) DropResult {
	if d.state != Dragging {
		return DropResult{Outcome: OutcomeCancelled, Err: ErrNotDragging}
	}
	origin := d.origin
	defer d.Cancel()

	if target == nil {
		return DropResult{Outcome: OutcomeCancelled}
	}
	if pid, _, _, ok := resolveEvent(projectIndex(projects), origin.EventID); !ok {
		err := StaleReferenceError{EventID: origin.EventID, ProjectID: pid}
		d.log.Warn("drop cancelled: project no longer exists",
			zap.String("event_id", origin.EventID),
			zap.String("project_id", pid))
		return DropResult{Outcome: OutcomeCancelled, Err: err}
	}

	b, err := ComputeDrop(events, origin, *target)
	switch {
	case IsStale(err):
		d.log.Warn("drop cancelled: event left its cell", zap.String("event_id", origin.EventID), zap.Error(err))
		return DropResult{Outcome: OutcomeCancelled, Err: err}
	case err != nil:
		d.log.Error("drop aborted", zap.String("event_id", origin.EventID), zap.Any("batch", b), zap.Error(err))
		return DropResult{Outcome: OutcomeCancelled, Err: err}
	case len(b) == 0:
		return DropResult{Outcome: OutcomeNoop}
	}
	return DropResult{Outcome: OutcomeDropped, Batch: b}
}

// ComputeDrop removes the origin event from its cell, inserts it at the target index
// and densely renumbers both cells. A drop back onto its own position yields nil.
func ComputeDrop(events []model.CalendarEvent, origin Origin, target Target) (Batch, error) {
	src := CellEvents(events, origin.Cell.ForemanID, origin.Cell.Day)
	from := indexOf(src, origin.EventID)
	if from < 0 {
		return nil, StaleReferenceError{EventID: origin.EventID}
	}
	moved := src[from]
	rest := without(src, from)

	if origin.Cell.Same(target.Cell) {
		at := clamp(target.Index, 0, len(rest))
		if at == from {
			return nil, nil
		}
		final := insertAt(rest, at, moved)
		b := renumber(final, moved.ID, nil, nil)
		if err := checkDense(final, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	var dst []model.CalendarEvent
	for _, ev := range CellEvents(events, target.Cell.ForemanID, target.Cell.Day) {
		if ev.ID != moved.ID {
			dst = append(dst, ev)
		}
	}
	at := clamp(target.Index, 0, len(dst))
	final := insertAt(dst, at, moved)

	var foreman *string
	if !sameForeman(moved.AssignedEmployeeID, target.Cell.ForemanID) {
		f := target.Cell.ForemanID
		if model.IsUnassigned(f) {
			f = model.Unassigned
		}
		foreman = &f
	}
	var start *model.Date
	if target.Cell.Day != moved.Start {
		s := target.Cell.Day
		start = &s
	}

	left := renumber(rest, "", nil, nil)
	b := mergeBatch(append(left, renumber(final, moved.ID, foreman, start)...))
	if err := checkDense(final, b); err != nil {
		return nil, err
	}
	if !overlaps(rest, final) {
		if err := checkDense(rest, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func indexOf(list []model.CalendarEvent, id string) int {
	for i, ev := range list {
		if ev.ID == id {
			return i
		}
	}
	return -1
}

func without(list []model.CalendarEvent, i int) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func insertAt(list []model.CalendarEvent, at int, ev model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(list)+1)
	out = append(out, list[:at]...)
	out = append(out, ev)
	return append(out, list[at:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// overlaps reports whether a multi-day event sits in both lists; such an event takes
// its destination rank.
func overlaps(a, b []model.CalendarEvent) bool {
	ids := make(map[string]struct{}, len(a))
	for _, ev := range a {
		ids[ev.ID] = struct{}{}
	}
	for _, ev := range b {
		if _, ok := ids[ev.ID]; ok {
			return true
		}
	}
	return false
}
