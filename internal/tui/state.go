package tui

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"scaffold-planner/internal/model"
)

// State is the small bit of UI state restored on relaunch. It is best effort:
// a missing or unreadable file means a fresh start on today's week.
type State struct {
	Version int `json:"version"`

	Anchor     model.Date `json:"anchor,omitempty"`
	ForemanID  string     `json:"foremanId,omitempty"`
	ShowDetail bool       `json:"showDetail,omitempty"`
}

func LoadState(path string) State {
	if strings.TrimSpace(path) == "" {
		return State{Version: 1}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return State{Version: 1}
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{Version: 1}
	}
	if _, err := model.ParseDate(st.Anchor.String()); err != nil {
		st.Anchor = ""
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return st
}

func SaveState(path string, st State) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("tui: empty state path")
	}
	if st.Version == 0 {
		st.Version = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// state captures what to restore from m.
func (m appModel) state() State {
	st := State{Version: 1, Anchor: m.nav.Anchor(), ShowDetail: m.showDetail}
	if m.cur.Row >= 0 && m.cur.Row < len(m.lanes) {
		st.ForemanID = m.lanes[m.cur.Row].ID
	}
	return st
}

// restore applies st on top of a freshly built model.
func (m *appModel) restore(st State) {
	if !st.Anchor.IsZero() {
		m.nav.SetAnchor(st.Anchor)
		m.rebuild()
		m.cur.Col = m.anchorCol()
	}
	for i, l := range m.lanes {
		if l.ID == st.ForemanID {
			m.cur.Row = i
			break
		}
	}
	m.showDetail = st.ShowDetail
}
