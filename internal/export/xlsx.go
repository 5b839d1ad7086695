// Package export writes a week plan as a dispatch spreadsheet.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/model"
)

const (
	PlanSheet   = "Plan"
	EventsSheet = "Events"

	unassignedLabel = "Unassigned"
)

// WriteWeekXLSX writes v as a workbook: a foreman-by-day grid and a flat event list.
func WriteWeekXLSX(w io.Writer, v calendar.View) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", PlanSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(EventsSheet); err != nil {
		return err
	}
	if err := writePlan(f, v); err != nil {
		return fmt.Errorf("plan sheet: %w", err)
	}
	if err := writeEvents(f, v); err != nil {
		return fmt.Errorf("events sheet: %w", err)
	}
	_, err := f.WriteTo(w)
	return err
}

func writePlan(f *excelize.File, v calendar.View) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellValue(PlanSheet, "A1", "Foreman"); err != nil {
		return err
	}
	for i, d := range v.Days {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		if err := f.SetCellValue(PlanSheet, cell, DayLabel(d)); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(v.Days)+1, 1)
	if err := f.SetCellStyle(PlanSheet, "A1", last, header); err != nil {
		return err
	}

	row := 2
	for _, r := range v.Rows {
		if err := f.SetCellValue(PlanSheet, fmt.Sprintf("A%d", row), r.Name); err != nil {
			return err
		}
		for i, d := range v.Days {
			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			if err := f.SetCellValue(PlanSheet, cell, CellText(r.Days[d.Date])); err != nil {
				return err
			}
		}
		row++
	}

	if err := f.SetCellValue(PlanSheet, fmt.Sprintf("A%d", row), unassignedLabel); err != nil {
		return err
	}
	for i, d := range v.Days {
		load := v.Unassigned.Days[d.Date]
		if load.Events == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+2, row)
		if err := f.SetCellValue(PlanSheet, cell, fmt.Sprintf("%d jobs / %d workers", load.Events, load.Headcount)); err != nil {
			return err
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(v.Days)+1, row)
	if err := f.SetCellStyle(PlanSheet, "B2", end, wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(PlanSheet, "A", "A", 18); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(v.Days) + 1)
	if err := f.SetColWidth(PlanSheet, "B", lastCol, 28); err != nil {
		return err
	}
	return f.SetPanes(PlanSheet, &excelize.Panes{Freeze: true, XSplit: 1, YSplit: 1, TopLeftCell: "B2", ActivePane: "bottomRight"})
}

var eventColumns = []string{"Event", "Project", "Title", "Customer", "Phase", "Foreman", "Start", "End", "Order", "Workers", "Trucks"}

func writeEvents(f *excelize.File, v calendar.View) error {
	if err := f.SetSheetRow(EventsSheet, "A1", &eventColumns); err != nil {
		return err
	}
	names := map[string]string{}
	for _, fm := range v.Foremen {
		names[fm.ID] = fm.Name
	}
	evs := WeekEvents(v)
	for i, ev := range evs {
		foreman := names[ev.AssignedEmployeeID]
		if model.IsUnassigned(ev.AssignedEmployeeID) {
			foreman = unassignedLabel
		} else if foreman == "" {
			foreman = ev.AssignedEmployeeID
		}
		row := []any{
			ev.ID, ev.ProjectID, ev.Title, ev.Customer, string(ev.Phase), foreman,
			ev.Start.String(), ev.End.String(), ev.SortOrder,
			len(ev.Workers), strings.Join(ev.Trucks, ", "),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(EventsSheet, cell, &row); err != nil {
			return err
		}
	}
	return f.AutoFilter(EventsSheet, fmt.Sprintf("A1:K%d", len(evs)+1), nil)
}

// WeekEvents returns the events touching the view's days, ordered by start, foreman
// and sort order.
func WeekEvents(v calendar.View) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, ev := range v.Events {
		for _, d := range v.Days {
			if ev.Covers(d.Date) {
				out = append(out, ev)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Start != b.Start {
			return a.Start.Before(b.Start)
		}
		if a.AssignedEmployeeID != b.AssignedEmployeeID {
			return a.AssignedEmployeeID < b.AssignedEmployeeID
		}
		return a.SortOrder < b.SortOrder
	})
	return out
}

func DayLabel(d model.WeekDay) string {
	return d.Weekday.String()[:3] + " " + d.Date.String()
}

// CellText is one line per event: title, then customer when known.
func CellText(evs []model.CalendarEvent) string {
	lines := make([]string, 0, len(evs))
	for _, ev := range evs {
		line := ev.Title
		if ev.Customer != "" {
			line += " (" + ev.Customer + ")"
		}
		if ev.Phase == model.PhaseAssembly || ev.Phase == model.PhaseDemolition {
			line += " [" + string(ev.Phase) + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
