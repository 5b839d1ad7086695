package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"scaffold-planner/internal/notify"
	"scaffold-planner/internal/store"
)

type ServerConfig struct {
	Addr      string
	WeekStart time.Weekday
	ReadOnly  bool
}

// Server is the JSON API over a Repository plus a change stream. Writes made
// through it are announced on the notifier; signals from the notifier are fanned
// out to stream clients through a local hub.
type Server struct {
	cfg      ServerConfig
	repo     store.Repository
	notifier notify.Notifier
	hub      *notify.Hub
	log      *zap.Logger
	now      func() time.Time

	// engine serializes read-compute-write drops and nudges.
	engine sync.Mutex

	seq atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewServer(cfg ServerConfig, repo store.Repository, n notify.Notifier, log *zap.Logger) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if repo == nil {
		return nil, errors.New("web: repository is nil")
	}
	if n == nil {
		n = notify.NewHub()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		repo:     repo,
		notifier: n,
		hub:      notify.NewHub(),
		log:      log,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Start forwards notifier signals to stream clients until ctx ends or Stop.
func (s *Server) Start(ctx context.Context) error {
	ch, err := s.notifier.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				s.bump()
			}
		}
	}()
	return nil
}

func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.hub.Close()
	})
}

func (s *Server) bump() {
	s.seq.Add(1)
	s.hub.Broadcast()
}

// changed announces a successful write locally and to other processes.
func (s *Server) changed(ctx context.Context) {
	s.bump()
	if err := s.notifier.Publish(ctx); err != nil {
		s.log.Warn("change publish failed", zap.Error(err))
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.writes(s.handleCreateProject))
	mux.HandleFunc("POST /api/projects/batch", s.writes(s.handleBatchUpdate))
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PATCH /api/projects/{id}", s.writes(s.handleUpdateProject))
	mux.HandleFunc("DELETE /api/projects/{id}", s.writes(s.handleDeleteProject))

	mux.HandleFunc("GET /api/foremen", s.handleListForemen)
	mux.HandleFunc("POST /api/foremen", s.writes(s.handleSaveForeman))
	mux.HandleFunc("DELETE /api/foremen/{id}", s.writes(s.handleDeleteForeman))

	mux.HandleFunc("GET /api/week", s.handleWeek)
	mux.HandleFunc("GET /api/week.xlsx", s.handleWeekXLSX)
	mux.HandleFunc("GET /api/doctor", s.handleDoctor)
	mux.HandleFunc("POST /api/calendar/drop", s.writes(s.handleDrop))
	mux.HandleFunc("POST /api/calendar/nudge", s.writes(s.handleNudge))

	mux.HandleFunc("GET /api/changes", s.handleChanges)
	return withLogging(s.log, mux)
}

func (s *Server) writes(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.ReadOnly {
			writeError(w, http.StatusForbidden, errors.New("server is read-only"))
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
