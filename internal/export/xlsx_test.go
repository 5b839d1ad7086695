package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/model"
)

func sampleView() calendar.View {
	roster := []model.Foreman{
		{ID: "fm-a", Name: "Arne", DisplayOrder: 1, Visible: true},
		{ID: "fm-b", Name: "Berit", DisplayOrder: 2, Visible: true},
	}
	projects := []model.Project{
		{ID: "p1", Title: "Harbor", Customer: "Port AS", StartDate: "2026-10-19", EndDate: "2026-10-20", AssignedEmployeeID: "fm-a"},
		{ID: "p2", Title: "School", AssemblyStartDate: "2026-10-21", AssemblyDuration: 1, AssignedEmployeeID: "fm-b"},
		{ID: "p3", Title: "Loose", StartDate: "2026-10-22", AssignedEmployeeID: model.Unassigned, Workers: []string{"w1", "w2", "w3"}},
		{ID: "p4", Title: "Next week", StartDate: "2026-10-27", AssignedEmployeeID: "fm-a"},
	}
	return calendar.BuildView("2026-10-21", time.Monday, "2026-10-21", roster, projects)
}

func TestWriteWeekXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWeekXLSX(&buf, sampleView()); err != nil {
		t.Fatalf("WriteWeekXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got, _ := f.GetCellValue(PlanSheet, "B1"); got != "Mon 2026-10-19" {
		t.Fatalf("unexpected first day header %q", got)
	}
	if got, _ := f.GetCellValue(PlanSheet, "A2"); got != "Arne" {
		t.Fatalf("unexpected first foreman %q", got)
	}
	if got, _ := f.GetCellValue(PlanSheet, "C2"); got != "Harbor (Port AS)" {
		t.Fatalf("expected multi-day event on tuesday, got %q", got)
	}
	if got, _ := f.GetCellValue(PlanSheet, "D3"); !strings.Contains(got, "School [assembly]") {
		t.Fatalf("unexpected assembly cell %q", got)
	}
	if got, _ := f.GetCellValue(PlanSheet, "A4"); got != "Unassigned" {
		t.Fatalf("expected unassigned row, got %q", got)
	}
	if got, _ := f.GetCellValue(PlanSheet, "E4"); got != "1 jobs / 3 workers" {
		t.Fatalf("unexpected unassigned load %q", got)
	}

	rows, err := f.GetRows(EventsSheet)
	if err != nil {
		t.Fatalf("events rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 events in the week, got %d rows", len(rows))
	}
	if rows[1][0] != "p1" || rows[2][0] != "p2-assembly" || rows[3][5] != "Unassigned" {
		t.Fatalf("unexpected event rows: %v", rows)
	}
}

func TestCellText_Empty(t *testing.T) {
	if got := CellText(nil); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}
