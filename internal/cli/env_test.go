package cli

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"scaffold-planner/internal/config"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/notify"
	"scaffold-planner/internal/remote"
	"scaffold-planner/internal/store"
)

type countingNotifier struct {
	publishes atomic.Int32
}

func (c *countingNotifier) Publish(ctx context.Context) error {
	c.publishes.Add(1)
	return nil
}

func (c *countingNotifier) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	return make(chan struct{}), nil
}

func (c *countingNotifier) Close() error { return nil }

func TestAnnouncingPublishesAfterWrites(t *testing.T) {
	ctx := context.Background()
	s, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "p.sqlite"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()

	n := &countingNotifier{}
	repo := announcing{Repository: s, n: n, log: zap.NewNop()}

	p, err := repo.CreateProject(ctx, model.Project{Title: "Alpha"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	title := "Alpha 2"
	if _, err := repo.UpdateProject(ctx, p.ID, model.ProjectPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := repo.ListProjects(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := n.publishes.Load(); got != 2 {
		t.Fatalf("publishes = %d, want 2 (reads do not announce)", got)
	}

	if _, err := repo.UpdateProject(ctx, "prj-missing", model.ProjectPatch{Title: &title}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := repo.CreateProject(ctx, model.Project{}); !errors.Is(err, store.ErrInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
	if got := n.publishes.Load(); got != 2 {
		t.Fatalf("failed writes must not announce; publishes = %d", got)
	}
}

func TestNeedsAnnounce(t *testing.T) {
	tests := []struct {
		backend, notifier string
		want              bool
	}{
		{config.BackendSQLite, "sqlite", false},
		{config.BackendSQLite, "none", false},
		{config.BackendSQLite, "redis", true},
		{config.BackendPostgres, "mqtt", true},
		{config.BackendPostgres, "postgres", false},
		{config.BackendRemote, "redis", false},
	}
	for _, tt := range tests {
		got := needsAnnounce(config.Config{Backend: tt.backend, Notifier: tt.notifier})
		if got != tt.want {
			t.Fatalf("needsAnnounce(%s, %s) = %v, want %v", tt.backend, tt.notifier, got, tt.want)
		}
	}
}

func TestOpenEnvSQLiteUsesChangeLogPoller(t *testing.T) {
	dir := t.TempDir()
	app := &App{log: zap.NewNop(), cfg: config.Config{
		Backend:  config.BackendSQLite,
		DB:       filepath.Join(dir, "p.sqlite"),
		Notifier: notify.KindSQLite,
	}}
	e, err := openEnv(context.Background(), app)
	if err != nil {
		t.Fatalf("openEnv: %v", err)
	}
	defer e.Close()

	if _, ok := e.notifier.(*notify.SQLitePoller); !ok {
		t.Fatalf("notifier = %T, want *notify.SQLitePoller", e.notifier)
	}
	if _, ok := e.repo.(*store.SQLite); !ok {
		t.Fatalf("repo = %T, want unwrapped *store.SQLite", e.repo)
	}
	if e.client != nil {
		t.Fatalf("local backend must not have a remote client")
	}
}

func TestOpenEnvRemoteFollowsServerStream(t *testing.T) {
	app := &App{log: zap.NewNop(), cfg: config.Config{
		Backend:   config.BackendRemote,
		ServerURL: "http://127.0.0.1:1",
		Notifier:  notify.KindSQLite,
	}}
	e, err := openEnv(context.Background(), app)
	if err != nil {
		t.Fatalf("openEnv: %v", err)
	}
	defer e.Close()

	if e.client == nil {
		t.Fatalf("expected remote client")
	}
	if _, ok := e.notifier.(*remote.Changes); !ok {
		t.Fatalf("notifier = %T, want *remote.Changes", e.notifier)
	}
}
