package calendar

import (
	"testing"

	"scaffold-planner/internal/model"
)

func issueCodes(r Report) map[string]int {
	out := map[string]int{}
	for _, it := range r.Issues {
		out[it.Code]++
	}
	return out
}

func TestDiagnose_CleanData(t *testing.T) {
	roster := []model.Foreman{{ID: "fm-a", Name: "A", Visible: true}}
	projects := []model.Project{
		legacy("p1", "fm-a", day1, 0),
		legacy("p2", "fm-a", day1, 1),
		legacy("p3", "", day2, 0),
	}
	r := Diagnose(projects, roster)
	if len(r.Issues) != 0 || len(r.Repair) != 0 {
		t.Fatalf("expected clean report, got %+v", r)
	}
	if r.HasErrors() {
		t.Fatalf("clean report has errors")
	}
}

func TestDiagnose_RosterProblems(t *testing.T) {
	roster := []model.Foreman{
		{ID: "fm-a", Name: "A", Visible: true},
		{ID: "fm-h", Name: "H", Visible: false},
	}
	projects := []model.Project{
		legacy("p1", "fm-gone", day1, 0),
		legacy("p2", "fm-h", day1, 0),
	}
	r := Diagnose(projects, roster)
	codes := issueCodes(r)
	if codes["unknown_foreman"] != 1 || codes["hidden_foreman"] != 1 {
		t.Fatalf("unexpected issues: %+v", r.Issues)
	}
	if !r.HasErrors() {
		t.Fatalf("an unknown foreman is an error")
	}
}

func TestDiagnose_DateProblems(t *testing.T) {
	backwards := legacy("p1", "", day3, 0)
	backwards.EndDate = day1
	overlap := model.Project{
		ID: "p2", Title: "p2",
		AssemblyStartDate: day1, AssemblyDuration: 3,
		DemolitionStartDate: day2, DemolitionDuration: 1,
	}
	undated := model.Project{ID: "p3", Title: "p3"}

	codes := issueCodes(Diagnose([]model.Project{backwards, overlap, undated}, nil))
	if codes["end_before_start"] != 1 || codes["phase_overlap"] != 1 || codes["no_dates"] != 1 {
		t.Fatalf("unexpected issues: %v", codes)
	}
}

func TestDiagnose_RepairsSortGaps(t *testing.T) {
	roster := []model.Foreman{{ID: "fm-a", Name: "A", Visible: true}}
	projects := []model.Project{
		legacy("p1", "fm-a", day1, 0),
		legacy("p2", "fm-a", day1, 4),
		legacy("p3", "fm-a", day1, 4),
		legacy("p4", "fm-a", day2, 1),
	}
	r := Diagnose(projects, roster)
	if got := issueCodes(r)["sort_order_gap"]; got != 2 {
		t.Fatalf("sort_order_gap issues = %d, want 2: %+v", got, r.Issues)
	}

	got := orders(r.Repair)
	want := map[string]int{"p2": 1, "p3": 2, "p4": 0}
	if len(got) != len(want) {
		t.Fatalf("repair = %v, want %v", got, want)
	}
	for id, o := range want {
		if got[id] != o {
			t.Fatalf("repair[%s] = %d, want %d (%v)", id, got[id], o, got)
		}
	}

	fixed := applyBatch(DeriveEvents(projects), r.Repair)
	requireDense(t, fixed, CellRef{ForemanID: "fm-a", Day: day1})
	requireDense(t, fixed, CellRef{ForemanID: "fm-a", Day: day2})

	if _, err := ProjectUpdates(r.Repair, projects); err != nil {
		t.Fatalf("repair must translate to project updates: %v", err)
	}
}
