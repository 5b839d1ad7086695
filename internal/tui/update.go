package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/live"
)

type (
	noticeMsg      struct{ notice live.Notice }
	signalMsg      struct{}
	commitDoneMsg  struct{ err error }
	refreshDoneMsg struct {
		changed bool
		err     error
	}
	statusClearMsg struct{ seq int }
)

func waitNotice(ch <-chan live.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{notice: n}
	}
}

func waitSignal(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return signalMsg{}
	}
}

func waitCommit(ch <-chan error) tea.Cmd {
	return func() tea.Msg { return commitDoneMsg{err: <-ch} }
}

func (m appModel) refresh() tea.Cmd {
	ctx, board := m.ctx, m.board
	return func() tea.Msg {
		changed, err := board.Refresh(ctx)
		return refreshDoneMsg{changed: changed, err: err}
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case noticeMsg:
		m.rebuild()
		var cmd tea.Cmd
		switch msg.notice.Kind {
		case live.NoticeReverted:
			cmd = m.setStatus("Change reverted: "+errText(msg.notice.Err), true)
		case live.NoticeRefetched:
			cmd = m.setStatus("Updated from server", false)
		case live.NoticeCommitted:
			cmd = m.setStatus("Saved", false)
		}
		return m, tea.Batch(cmd, waitNotice(m.notices))

	case signalMsg:
		m.board.OnRemoteChange()
		return m, waitSignal(m.signals)

	case commitDoneMsg:
		// Persistence failures arrive as a Reverted notice.
		var pf live.PersistenceFailure
		if msg.err != nil && !errors.As(msg.err, &pf) {
			m.rebuild()
			return m, m.setStatus(errText(msg.err), true)
		}
		return m, nil

	case refreshDoneMsg:
		if msg.err != nil {
			return m, m.setStatus("Refresh failed: "+msg.err.Error(), true)
		}
		m.rebuild()
		if !msg.changed {
			return m, m.setStatus("Refresh skipped: local changes pending", false)
		}
		return m, nil

	case statusClearMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
			m.statusErr = false
		}
		return m, nil

	case tea.KeyMsg:
		// q quits only when nothing is grabbed.
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.drag.State() == calendar.Idle) {
			return m, tea.Quit
		}
		if m.drag.State() == calendar.Dragging {
			return m.updateDragging(msg)
		}
		return m.updateIdle(msg)
	}
	return m, nil
}

func (m appModel) updateIdle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cur.Row--
		m.cur.Item = 0
	case key.Matches(msg, m.keys.Down):
		m.cur.Row++
		m.cur.Item = 0
	case key.Matches(msg, m.keys.Left):
		m.cur.Col--
	case key.Matches(msg, m.keys.Right):
		m.cur.Col++
	case key.Matches(msg, m.keys.NextEvent):
		if n := len(m.cell(m.cur.Row, m.cur.Col)); n > 0 {
			m.cur.Item = (m.cur.Item + 1) % n
		}
	case key.Matches(msg, m.keys.PrevEvent):
		if n := len(m.cell(m.cur.Row, m.cur.Col)); n > 0 {
			m.cur.Item = (m.cur.Item - 1 + n) % n
		}
	case key.Matches(msg, m.keys.Grab):
		return m.grab()
	case key.Matches(msg, m.keys.NudgeUp):
		return m.nudge(calendar.Up)
	case key.Matches(msg, m.keys.NudgeDown):
		return m.nudge(calendar.Down)
	case key.Matches(msg, m.keys.PrevWeek):
		m.nav.PreviousWeek()
		return m.navigated()
	case key.Matches(msg, m.keys.NextWeek):
		m.nav.NextWeek()
		return m.navigated()
	case key.Matches(msg, m.keys.PrevDay):
		m.nav.PreviousDay()
		return m.navigated()
	case key.Matches(msg, m.keys.NextDay):
		m.nav.NextDay()
		return m.navigated()
	case key.Matches(msg, m.keys.Today):
		m.nav.Today()
		return m.navigated()
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.setStatus("Refreshing…", false), m.refresh())
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Cancel):
		m.showDetail = false
	}
	m.cur = m.clamp(m.cur, "")
	return m, nil
}

func (m appModel) navigated() (tea.Model, tea.Cmd) {
	m.rebuild()
	m.cur.Col = m.anchorCol()
	m.cur = m.clamp(m.cur, "")
	return m, nil
}

func (m appModel) grab() (tea.Model, tea.Cmd) {
	ev, ok := m.selected()
	if !ok {
		return m, nil
	}
	if err := m.drag.Begin(m.view.Events, ev.ID, m.cellRef(m.cur.Row, m.cur.Col)); err != nil {
		return m, m.setStatus(errText(err), true)
	}
	m.target = m.cur
	m.showDetail = false
	return m, m.setStatus("Moving "+ev.Title, false)
}

func (m appModel) nudge(dir calendar.Direction) (tea.Model, tea.Cmd) {
	ev, ok := m.selected()
	if !ok {
		return m, nil
	}
	b, err := calendar.MoveInCell(m.view.Events, m.cellRef(m.cur.Row, m.cur.Col), ev.ID, dir)
	if err != nil {
		return m, m.setStatus(errText(err), true)
	}
	if len(b) == 0 {
		return m, nil
	}
	ch := m.board.Commit(m.ctx, b)
	m.rebuild()
	if dir == calendar.Up {
		m.cur.Item--
	} else {
		m.cur.Item++
	}
	m.cur = m.clamp(m.cur, "")
	return m, waitCommit(ch)
}

func (m appModel) updateDragging(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	origin, _ := m.drag.Origin()
	moved := func(row, col int) {
		row = clampInt(row, 0, len(m.lanes)-1)
		col = clampInt(col, 0, len(m.view.Days)-1)
		m.target.Row, m.target.Col = row, col
		if m.cellRef(row, col).Same(origin.Cell) {
			m.target.Item = origin.Index
		} else {
			m.target.Item = len(m.cellWithout(row, col, origin.EventID))
		}
	}
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.drag.Drop(m.view.Events, m.board.Projects(), nil)
		return m, m.setStatus("Move cancelled", false)
	case key.Matches(msg, m.keys.Drop):
		return m.drop()
	case key.Matches(msg, m.keys.Up):
		moved(m.target.Row-1, m.target.Col)
	case key.Matches(msg, m.keys.Down):
		moved(m.target.Row+1, m.target.Col)
	case key.Matches(msg, m.keys.Left):
		moved(m.target.Row, m.target.Col-1)
	case key.Matches(msg, m.keys.Right):
		moved(m.target.Row, m.target.Col+1)
	case key.Matches(msg, m.keys.Earlier):
		m.target.Item--
	case key.Matches(msg, m.keys.Later):
		m.target.Item++
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	m.target = m.clamp(m.target, origin.EventID)
	return m, nil
}

func (m appModel) drop() (tea.Model, tea.Cmd) {
	t := calendar.Target{Cell: m.cellRef(m.target.Row, m.target.Col), Index: m.target.Item}
	res := m.drag.Drop(m.view.Events, m.board.Projects(), &t)
	switch res.Outcome {
	case calendar.OutcomeDropped:
		ch := m.board.Commit(m.ctx, res.Batch)
		m.rebuild()
		m.cur = m.clamp(m.target, "")
		return m, waitCommit(ch)
	case calendar.OutcomeNoop:
		return m, nil
	default:
		m.rebuild()
		if res.Err != nil {
			return m, m.setStatus("Move cancelled: "+errText(res.Err), true)
		}
		return m, m.setStatus("Move cancelled", false)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	var stale calendar.StaleReferenceError
	if errors.As(err, &stale) {
		return fmt.Sprintf("%s is no longer on the board", stale.EventID)
	}
	return err.Error()
}
