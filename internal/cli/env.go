package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"scaffold-planner/internal/config"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/notify"
	"scaffold-planner/internal/remote"
	"scaffold-planner/internal/store"
)

// env is an opened backend: a repository plus the change notifier that goes with it.
type env struct {
	repo     store.Repository
	base     store.Repository
	notifier notify.Notifier
	client   *remote.Client
}

func (e *env) Close() {
	if e.notifier != nil {
		_ = e.notifier.Close()
	}
	if e.base != nil {
		_ = e.base.Close()
	} else if e.repo != nil {
		_ = e.repo.Close()
	}
}

func openEnv(ctx context.Context, app *App) (*env, error) {
	cfg := app.cfg
	e := &env{}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.BackendSQLite:
		s, err := store.OpenSQLite(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DB, err)
		}
		e.repo = s
	case config.BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres backend needs postgresDsn (PLANNER_POSTGRES_DSN)")
		}
		p, err := store.OpenPostgres(ctx, cfg.PostgresDSN, app.log)
		if err != nil {
			return nil, err
		}
		e.repo = p
	case config.BackendRemote:
		c, err := remote.NewClient(cfg.ServerURL, app.log)
		if err != nil {
			return nil, err
		}
		e.repo = c
		e.client = c
	default:
		return nil, fmt.Errorf("unknown backend: %q (expected sqlite|postgres|remote)", cfg.Backend)
	}

	n, err := openNotifier(ctx, app, e.repo)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.notifier = n
	e.base = e.repo

	// Change channels without a store-side trigger need writes announced by hand.
	if needsAnnounce(cfg) {
		e.repo = announcing{Repository: e.repo, n: n, log: app.log}
	}
	return e, nil
}

func openNotifier(ctx context.Context, app *App, repo store.Repository) (notify.Notifier, error) {
	cfg := app.cfg
	kind := strings.ToLower(strings.TrimSpace(cfg.Notifier))

	if c, ok := repo.(*remote.Client); ok {
		// A server announces its own writes on its change stream.
		if kind == "" || kind == notify.KindSQLite || kind == "remote" {
			return remote.NewChanges(c.BaseURL(), app.log)
		}
	}

	opts := notify.Options{
		Kind:          kind,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisChannel:  cfg.RedisChannel,
		PostgresDSN:   cfg.PostgresDSN,
		MQTT: notify.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		},
		Logger: app.log,
	}
	if kind == "" || kind == notify.KindSQLite {
		switch r := repo.(type) {
		case notify.ChangeCursor:
			opts.Kind = notify.KindSQLite
			opts.Cursor = r
		case *store.Postgres:
			opts.Kind = notify.KindPostgres
		default:
			opts.Kind = notify.KindNone
		}
	}
	if opts.Kind == notify.KindPostgres {
		opts.PostgresChannel = store.PostgresChannel
	}
	return notify.Open(ctx, opts)
}

// needsAnnounce reports whether writes must be published explicitly. The sqlite
// change log and postgres NOTIFY fire from inside the store.
func needsAnnounce(cfg config.Config) bool {
	switch strings.ToLower(strings.TrimSpace(cfg.Notifier)) {
	case notify.KindRedis, notify.KindMQTT:
		return cfg.Backend != config.BackendRemote
	}
	return false
}

// announcing publishes a change signal after every successful write.
type announcing struct {
	store.Repository
	n   notify.Notifier
	log *zap.Logger
}

func (a announcing) publish(ctx context.Context) {
	if err := a.n.Publish(ctx); err != nil {
		a.log.Warn("change publish failed", zap.Error(err))
	}
}

func (a announcing) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	out, err := a.Repository.CreateProject(ctx, p)
	if err == nil {
		a.publish(ctx)
	}
	return out, err
}

func (a announcing) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	out, err := a.Repository.UpdateProject(ctx, id, patch)
	if err == nil {
		a.publish(ctx)
	}
	return out, err
}

func (a announcing) UpdateProjects(ctx context.Context, updates []model.ProjectUpdate) ([]model.Project, error) {
	out, err := a.Repository.UpdateProjects(ctx, updates)
	if err == nil {
		a.publish(ctx)
	}
	return out, err
}

func (a announcing) DeleteProject(ctx context.Context, id string) error {
	err := a.Repository.DeleteProject(ctx, id)
	if err == nil {
		a.publish(ctx)
	}
	return err
}

func (a announcing) SaveForeman(ctx context.Context, f model.Foreman) (model.Foreman, error) {
	out, err := a.Repository.SaveForeman(ctx, f)
	if err == nil {
		a.publish(ctx)
	}
	return out, err
}

func (a announcing) DeleteForeman(ctx context.Context, id string) error {
	err := a.Repository.DeleteForeman(ctx, id)
	if err == nil {
		a.publish(ctx)
	}
	return err
}
