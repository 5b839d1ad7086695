package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/live"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
)

const monday = model.Date("2026-10-19")

type harness struct {
	repo  *store.SQLite
	board *live.Board
	ids   map[string]string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	ctx := context.Background()
	repo, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	for _, f := range []model.Foreman{
		{ID: "fm-a", Name: "Arne", DisplayOrder: 1, Visible: true},
		{ID: "fm-b", Name: "Berit", DisplayOrder: 2, Visible: true},
	} {
		if _, err := repo.SaveForeman(ctx, f); err != nil {
			t.Fatalf("save foreman: %v", err)
		}
	}
	ids := map[string]string{}
	for _, p := range []model.Project{
		{Title: "Alpha", StartDate: monday, AssignedEmployeeID: "fm-a", SortOrder: 0},
		{Title: "Bravo", StartDate: monday, AssignedEmployeeID: "fm-a", SortOrder: 1},
		{Title: "Loose", StartDate: monday.AddDays(1), Workers: []string{"w1", "w2"}},
	} {
		out, err := repo.CreateProject(ctx, p)
		if err != nil {
			t.Fatalf("create project: %v", err)
		}
		ids[p.Title] = out.ID
	}

	board := live.New(repo, live.Options{})
	if err := board.Load(ctx); err != nil {
		t.Fatalf("load board: %v", err)
	}
	return harness{repo: repo, board: board, ids: ids}
}

func (h harness) model(t *testing.T) appModel {
	t.Helper()
	m, stop, err := newModel(context.Background(), h.board, nil, Options{
		WeekStart: time.Monday,
		Now:       func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	t.Cleanup(stop)
	m.width = 180
	m.height = 60
	return m
}

func press(t *testing.T, m appModel, keys ...tea.KeyMsg) (appModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(k)
		m = next.(appModel)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keySpace = runes(" ")
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
)

// settle runs a commit command to completion and feeds its message back.
func settle(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	msg := cmd()
	done, ok := msg.(commitDoneMsg)
	if !ok {
		t.Fatalf("expected commitDoneMsg, got %T", msg)
	}
	if done.err != nil {
		t.Fatalf("commit failed: %v", done.err)
	}
	next, _ := m.Update(done)
	return next.(appModel)
}

func TestView_ShowsLanesAndEvents(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	out := m.View()
	for _, want := range []string{"Arne", "Berit", "Unassigned", "Alpha", "Bravo", "Loose", "1 jobs · 2 ppl", "2026-10-19"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
	if len(m.lanes) != 3 || m.lanes[2].ID != model.Unassigned {
		t.Fatalf("unexpected lanes: %+v", m.lanes)
	}
}

func TestKeyboardDrag_MovesEventToOtherForeman(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, _ = press(t, m, keySpace)
	if m.drag.State() != calendar.Dragging {
		t.Fatalf("expected dragging after space")
	}
	if !strings.Contains(m.View(), "drop here") {
		t.Fatalf("expected a drop marker while dragging")
	}
	m, _ = press(t, m, keyDown)
	if m.target.Row != 1 || m.target.Item != 0 {
		t.Fatalf("unexpected target: %+v", m.target)
	}
	m, cmd := press(t, m, keyEnter)
	if m.drag.State() != calendar.Idle {
		t.Fatalf("expected idle after drop")
	}
	m = settle(t, m, cmd)

	got, err := h.repo.GetProject(context.Background(), h.ids["Alpha"])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AssignedEmployeeID != "fm-b" || got.SortOrder != 0 {
		t.Fatalf("unexpected persisted project: %+v", got)
	}
	bravo, _ := h.repo.GetProject(context.Background(), h.ids["Bravo"])
	if bravo.SortOrder != 0 {
		t.Fatalf("expected Bravo to close the gap, got %d", bravo.SortOrder)
	}
	if ev, ok := m.selected(); !ok || ev.ProjectID != h.ids["Alpha"] {
		t.Fatalf("expected cursor to follow the dropped event, got %+v", ev)
	}
}

func TestKeyboardDrag_ToAnotherDayAndPool(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	// Bravo: down the cell, grab, two lanes down into the pool, one day right.
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, keySpace, keyDown, keyDown, keyRight)
	if m.target.Row != 2 || m.target.Col != 1 || m.target.Item != 1 {
		t.Fatalf("unexpected target: %+v", m.target)
	}
	m, _ = press(t, m, runes("<"))
	if m.target.Item != 0 {
		t.Fatalf("expected insertion before Loose, got %d", m.target.Item)
	}
	m, cmd := press(t, m, keyEnter)
	settle(t, m, cmd)

	ctx := context.Background()
	bravo, _ := h.repo.GetProject(ctx, h.ids["Bravo"])
	loose, _ := h.repo.GetProject(ctx, h.ids["Loose"])
	if bravo.AssignedEmployeeID != model.Unassigned || bravo.StartDate != monday.AddDays(1) || bravo.SortOrder != 0 {
		t.Fatalf("unexpected Bravo: %+v", bravo)
	}
	if loose.SortOrder != 1 {
		t.Fatalf("expected Loose pushed down, got %d", loose.SortOrder)
	}
}

func TestKeyboardDrag_EscapeCancels(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, _ = press(t, m, keySpace, keyRight)
	m, _ = press(t, m, keyEsc)
	if m.drag.State() != calendar.Idle {
		t.Fatalf("expected idle after esc")
	}
	if m.status != "Move cancelled" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if len(h.board.Pending()) != 0 {
		t.Fatalf("cancel must not touch the board")
	}
	got, _ := h.repo.GetProject(context.Background(), h.ids["Alpha"])
	if got.StartDate != monday {
		t.Fatalf("project changed on cancel: %+v", got)
	}
}

func TestKeyboardDrag_DropInPlaceIsNoop(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, cmd := press(t, m, keySpace, keyEnter)
	if cmd != nil {
		t.Fatalf("expected no command for a drop in place")
	}
	if m.drag.State() != calendar.Idle || len(h.board.Pending()) != 0 {
		t.Fatalf("expected idle board after noop")
	}
}

func TestNudge_SwapsWithNeighbour(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, cmd := press(t, m, runes("J"))
	settle(t, m, cmd)

	ctx := context.Background()
	alpha, _ := h.repo.GetProject(ctx, h.ids["Alpha"])
	bravo, _ := h.repo.GetProject(ctx, h.ids["Bravo"])
	if alpha.SortOrder != 1 || bravo.SortOrder != 0 {
		t.Fatalf("expected swap, got alpha=%d bravo=%d", alpha.SortOrder, bravo.SortOrder)
	}
	if m.cur.Item != 1 {
		t.Fatalf("expected cursor to follow, got %d", m.cur.Item)
	}

	// Moving past the bottom edge does nothing.
	m, cmd = press(t, m, runes("J"))
	if cmd != nil {
		t.Fatalf("expected no command at the edge")
	}
}

func TestWeekNavigation(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, _ = press(t, m, runes("]"))
	if m.view.Days[0].Date != "2026-10-26" {
		t.Fatalf("expected next week, got %s", m.view.Days[0].Date)
	}
	m, _ = press(t, m, runes("p"))
	if m.view.Days[0].Date != monday || m.cur.Col != 6 {
		t.Fatalf("expected sunday of the first week, got %s col %d", m.view.Days[0].Date, m.cur.Col)
	}
	m, _ = press(t, m, runes("t"))
	if m.nav.Anchor() != monday || m.cur.Col != 0 {
		t.Fatalf("expected today, got %s col %d", m.nav.Anchor(), m.cur.Col)
	}
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	m, cmd := press(t, m, keySpace, runes("q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatalf("q must not quit while dragging")
		}
	}
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Fatalf("expected QuitMsg")
	}
}

func TestNotice_RevertedShowsError(t *testing.T) {
	h := newHarness(t)
	m := h.model(t)

	next, _ := m.Update(noticeMsg{notice: live.Notice{Kind: live.NoticeReverted, Err: live.PersistenceFailure{Op: "update", Err: context.DeadlineExceeded}}})
	m = next.(appModel)
	if !m.statusErr || !strings.Contains(m.status, "reverted") {
		t.Fatalf("unexpected status %q", m.status)
	}
	next, _ = m.Update(statusClearMsg{seq: m.statusSeq})
	if next.(appModel).status != "" {
		t.Fatalf("expected status cleared")
	}
}

func TestThemeFromEnv(t *testing.T) {
	cases := []struct{ theme, fgbg, want string }{
		{"light", "15;0", "light"},
		{"DARK", "", "dark"},
		{"", "15;0", "dark"},
		{"", "0;15", "light"},
		{"auto", "garbage", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := themeFromEnv(tc.theme, tc.fgbg); got != tc.want {
			t.Fatalf("themeFromEnv(%q, %q) = %q, want %q", tc.theme, tc.fgbg, got, tc.want)
		}
	}
}

func TestStateRoundTripRestoresWeekAndLane(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "tui_state.json")

	m := h.model(t)
	m, _ = press(t, m, runes("]"), keyDown)
	if err := SaveState(path, m.state()); err != nil {
		t.Fatalf("save state: %v", err)
	}

	st := LoadState(path)
	if st.Anchor != monday.AddDays(7) || st.ForemanID != "fm-b" {
		t.Fatalf("unexpected state: %+v", st)
	}

	fresh := h.model(t)
	fresh.restore(st)
	if fresh.nav.Anchor() != monday.AddDays(7) {
		t.Fatalf("anchor = %s, want %s", fresh.nav.Anchor(), monday.AddDays(7))
	}
	if fresh.lanes[fresh.cur.Row].ID != "fm-b" {
		t.Fatalf("lane = %s, want fm-b", fresh.lanes[fresh.cur.Row].ID)
	}
}

func TestLoadStateToleratesGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tui_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if st := LoadState(path); !st.Anchor.IsZero() || st.Version != 1 {
		t.Fatalf("expected fresh state, got %+v", st)
	}
	if st := LoadState(filepath.Join(t.TempDir(), "missing.json")); st.Version != 1 {
		t.Fatalf("expected fresh state for missing file, got %+v", st)
	}
}
