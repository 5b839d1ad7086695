package calendar

import (
	"fmt"
	"strings"

	"scaffold-planner/internal/model"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u", "-1":
		return Up, nil
	case "down", "d", "+1", "1":
		return Down, nil
	default:
		return "", fmt.Errorf("invalid direction: %q (expected up|down)", s)
	}
}

// MoveEvent swaps an event with its neighbour inside its own cell, the cell being
// its foreman on its start day. At either edge it returns a nil batch and no error.
func MoveEvent(events []model.CalendarEvent, eventID string, dir Direction) (Batch, error) {
	var ev *model.CalendarEvent
	for i := range events {
		if events[i].ID == eventID {
			ev = &events[i]
			break
		}
	}
	if ev == nil {
		return nil, StaleReferenceError{EventID: eventID}
	}
	return MoveInCell(events, CellRef{ForemanID: ev.AssignedEmployeeID, Day: ev.Start}, eventID, dir)
}

// MoveInCell is MoveEvent for an explicit cell, used when a multi-day event is
// nudged on a day other than its first.
func MoveInCell(events []model.CalendarEvent, cell CellRef, eventID string, dir Direction) (Batch, error) {
	list := CellEvents(events, cell.ForemanID, cell.Day)
	i := indexOf(list, eventID)
	if i < 0 {
		return nil, StaleReferenceError{EventID: eventID}
	}

	var j int
	switch dir {
	case Up:
		j = i - 1
	case Down:
		j = i + 1
	default:
		return nil, fmt.Errorf("invalid direction: %q", dir)
	}
	if j < 0 || j >= len(list) {
		return nil, nil
	}

	list[i], list[j] = list[j], list[i]
	b := renumber(list, "", nil, nil)
	if err := checkDense(list, b); err != nil {
		return nil, err
	}
	return b, nil
}
