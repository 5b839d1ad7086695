package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/export"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
)

const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalid):
		return http.StatusBadRequest
	case calendar.IsStale(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, err)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json: " + err.Error())
	}
	return nil
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ps == nil {
		ps = []model.Project{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p model.Project
	if err := decodeBody(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(p.Title) == "" {
		writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}
	out, err := s.repo.CreateProject(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch model.ProjectPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.repo.UpdateProject(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var updates []model.ProjectUpdate
	if err := decodeBody(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusOK, []model.Project{})
		return
	}
	out, err := s.repo.UpdateProjects(r.Context(), updates)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListForemen(w http.ResponseWriter, r *http.Request) {
	fs, err := s.repo.ListForemen(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if fs == nil {
		fs = []model.Foreman{}
	}
	writeJSON(w, http.StatusOK, fs)
}

func (s *Server) handleSaveForeman(w http.ResponseWriter, r *http.Request) {
	var f model.Foreman
	if err := decodeBody(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out, err := s.repo.SaveForeman(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteForeman(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteForeman(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	v, ok := s.week(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleWeekXLSX(w http.ResponseWriter, r *http.Request) {
	v, ok := s.week(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWeekXLSX(&buf, v); err != nil {
		s.fail(w, r, err)
		return
	}
	name := "planner-" + v.Days[0].Date.String() + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// week builds the view for ?date= (default today) and writes the error response itself.
func (s *Server) week(w http.ResponseWriter, r *http.Request) (calendar.View, bool) {
	today := model.DateOf(s.now())
	anchor := today
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid date: "+raw))
			return calendar.View{}, false
		}
		anchor = d
	}
	ps, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return calendar.View{}, false
	}
	fs, err := s.repo.ListForemen(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return calendar.View{}, false
	}
	return calendar.BuildView(anchor, s.cfg.WeekStart, today, fs, ps), true
}

func (s *Server) handleDoctor(w http.ResponseWriter, r *http.Request) {
	ps, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fs, err := s.repo.ListForemen(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendar.Diagnose(ps, fs))
}

// DropRequest moves one event from its current cell to a target position.
type DropRequest struct {
	EventID string           `json:"eventId"`
	From    calendar.CellRef `json:"from"`
	To      *calendar.Target `json:"to,omitempty"`
}

// NudgeRequest moves one event a single step inside its cell.
type NudgeRequest struct {
	EventID   string            `json:"eventId"`
	Direction string            `json:"direction"`
	Cell      *calendar.CellRef `json:"cell,omitempty"`
}

type MoveResponse struct {
	Outcome  string          `json:"outcome"`
	Batch    calendar.Batch  `json:"batch"`
	Projects []model.Project `json:"projects"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.EventID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("eventId is required"))
		return
	}

	s.engine.Lock()
	defer s.engine.Unlock()

	ps, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events := calendar.DeriveEvents(ps)
	drag := calendar.NewDrag(s.log)
	if err := drag.Begin(events, req.EventID, req.From); err != nil {
		s.fail(w, r, err)
		return
	}
	res := drag.Drop(events, ps, req.To)
	if res.Err != nil {
		s.fail(w, r, res.Err)
		return
	}
	s.persist(w, r, res.Outcome.String(), res.Batch, ps)
}

func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request) {
	var req NudgeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := calendar.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.engine.Lock()
	defer s.engine.Unlock()

	ps, err := s.repo.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events := calendar.DeriveEvents(ps)
	var b calendar.Batch
	if req.Cell != nil {
		b, err = calendar.MoveInCell(events, *req.Cell, req.EventID, dir)
	} else {
		b, err = calendar.MoveEvent(events, req.EventID, dir)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	outcome := calendar.OutcomeDropped
	if len(b) == 0 {
		outcome = calendar.OutcomeNoop
	}
	s.persist(w, r, outcome.String(), b, ps)
}

func (s *Server) persist(w http.ResponseWriter, r *http.Request, outcome string, b calendar.Batch, ps []model.Project) {
	resp := MoveResponse{Outcome: outcome, Batch: b, Projects: []model.Project{}}
	if len(b) == 0 {
		if resp.Batch == nil {
			resp.Batch = calendar.Batch{}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	updates, err := calendar.ProjectUpdates(b, ps)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if drift := calendar.SharedRankSiblings(b, ps); len(drift) > 0 {
		s.log.Warn("batch shifts phase events in untouched cells", zap.Strings("events", drift))
	}
	out, err := s.repo.UpdateProjects(r.Context(), updates)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.changed(r.Context())
	resp.Projects = out
	writeJSON(w, http.StatusOK, resp)
}
