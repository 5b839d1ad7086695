package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/live"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/notify"
)

const (
	laneLabelWidth = 14
	statusTTL      = 4 * time.Second
)

// lane is one grid row: a visible foreman, or the unassigned pool at the bottom.
type lane struct {
	ID   string
	Name string
}

type cursor struct {
	Row  int
	Col  int
	Item int
}

type appModel struct {
	ctx   context.Context
	board *live.Board
	log   *zap.Logger
	now   func() time.Time

	keys keyMap
	help help.Model

	nav       *calendar.Navigator
	drag      *calendar.Drag
	weekStart time.Weekday

	notices <-chan live.Notice
	signals <-chan struct{}

	view  calendar.View
	lanes []lane

	cur cursor
	// target is where a grabbed event would land; only meaningful while dragging.
	target cursor

	showDetail bool
	status     string
	statusErr  bool
	statusSeq  int

	width  int
	height int
}

func newModel(ctx context.Context, board *live.Board, n notify.Notifier, opts Options) (appModel, func(), error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	notices, cancel := board.Subscribe()
	stop := cancel

	var signals <-chan struct{}
	if n != nil {
		sctx, scancel := context.WithCancel(ctx)
		ch, err := n.Subscribe(sctx)
		if err != nil {
			scancel()
			cancel()
			return appModel{}, nil, err
		}
		signals = ch
		stop = func() { scancel(); cancel() }
	}

	m := appModel{
		ctx:       ctx,
		board:     board,
		log:       opts.Logger,
		now:       opts.Now,
		keys:      defaultKeyMap(),
		help:      help.New(),
		nav:       calendar.NewNavigator(opts.WeekStart, opts.Now),
		drag:      calendar.NewDrag(opts.Logger),
		weekStart: opts.WeekStart,
		notices:   notices,
		signals:   signals,
		width:     120,
		height:    40,
	}
	m.rebuild()
	m.cur.Col = m.anchorCol()
	return m, stop, nil
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(waitNotice(m.notices), waitSignal(m.signals))
}

// rebuild re-derives the week from board state and keeps the cursors in range.
func (m *appModel) rebuild() {
	today := model.DateOf(m.now())
	m.view = calendar.BuildView(m.nav.Anchor(), m.weekStart, today, m.board.Foremen(), m.board.Projects())
	m.lanes = make([]lane, 0, len(m.view.Foremen)+1)
	for _, f := range m.view.Foremen {
		m.lanes = append(m.lanes, lane{ID: f.ID, Name: f.Name})
	}
	m.lanes = append(m.lanes, lane{ID: model.Unassigned, Name: "Unassigned"})
	m.cur = m.clamp(m.cur, "")
	if m.drag.State() == calendar.Dragging {
		o, _ := m.drag.Origin()
		m.target = m.clamp(m.target, o.EventID)
	}
}

// clamp keeps c inside the grid. When excluding is set, Item may point one past the
// last event of the cell (an insertion slot) and that event is not counted.
func (m appModel) clamp(c cursor, excluding string) cursor {
	c.Row = clampInt(c.Row, 0, len(m.lanes)-1)
	c.Col = clampInt(c.Col, 0, len(m.view.Days)-1)
	n := len(m.cellWithout(c.Row, c.Col, excluding))
	if excluding == "" {
		c.Item = clampInt(c.Item, 0, max(n-1, 0))
	} else {
		c.Item = clampInt(c.Item, 0, n)
	}
	return c
}

func (m appModel) cellRef(row, col int) calendar.CellRef {
	return calendar.CellRef{ForemanID: m.lanes[row].ID, Day: m.view.Days[col].Date}
}

func (m appModel) cell(row, col int) []model.CalendarEvent {
	if row < 0 || row >= len(m.lanes) || col < 0 || col >= len(m.view.Days) {
		return nil
	}
	ref := m.cellRef(row, col)
	return calendar.CellEvents(m.view.Events, ref.ForemanID, ref.Day)
}

func (m appModel) cellWithout(row, col int, eventID string) []model.CalendarEvent {
	evs := m.cell(row, col)
	if eventID == "" {
		return evs
	}
	out := evs[:0:0]
	for _, ev := range evs {
		if ev.ID != eventID {
			out = append(out, ev)
		}
	}
	return out
}

func (m appModel) selected() (model.CalendarEvent, bool) {
	evs := m.cell(m.cur.Row, m.cur.Col)
	if m.cur.Item < 0 || m.cur.Item >= len(evs) {
		return model.CalendarEvent{}, false
	}
	return evs[m.cur.Item], true
}

func (m appModel) anchorCol() int {
	a := m.nav.Anchor()
	for i, d := range m.view.Days {
		if d.Date == a {
			return i
		}
	}
	return 0
}

func (m *appModel) setStatus(msg string, isErr bool) tea.Cmd {
	m.status = msg
	m.statusErr = isErr
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} })
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
