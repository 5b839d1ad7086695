package calendar

import (
	"fmt"
	"strings"
	"time"

	"scaffold-planner/internal/model"
)

// Navigator holds the anchor date of a week view.
type Navigator struct {
	anchor    model.Date
	weekStart time.Weekday
	now       func() time.Time
}

func NewNavigator(weekStart time.Weekday, now func() time.Time) *Navigator {
	if now == nil {
		now = time.Now
	}
	return &Navigator{anchor: model.DateOf(now()), weekStart: weekStart, now: now}
}

func (n *Navigator) Anchor() model.Date { return n.anchor }

func (n *Navigator) SetAnchor(d model.Date) {
	if d.IsZero() {
		return
	}
	n.anchor = d
}

func (n *Navigator) PreviousWeek() { n.anchor = n.anchor.AddDays(-7) }
func (n *Navigator) NextWeek()     { n.anchor = n.anchor.AddDays(7) }
func (n *Navigator) PreviousDay()  { n.anchor = n.anchor.AddDays(-1) }
func (n *Navigator) NextDay()      { n.anchor = n.anchor.AddDays(1) }
func (n *Navigator) Today()        { n.anchor = model.DateOf(n.now()) }

// Days returns the seven visible days. IsToday is evaluated against the clock on every call.
func (n *Navigator) Days() []model.WeekDay {
	return WeekDays(n.anchor, n.weekStart, model.DateOf(n.now()))
}

// WeekStart returns the first day of the week containing d.
func WeekStart(d model.Date, weekStart time.Weekday) model.Date {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return d.AddDays(-offset)
}

func WeekDays(anchor model.Date, weekStart time.Weekday, today model.Date) []model.WeekDay {
	first := WeekStart(anchor, weekStart)
	out := make([]model.WeekDay, 7)
	for i := range out {
		d := first.AddDays(i)
		out[i] = model.WeekDay{Date: d, Weekday: d.Weekday(), IsToday: d == today}
	}
	return out
}

func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "", "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("unknown weekday: %s", s)
	}
}
