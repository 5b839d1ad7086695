package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"scaffold-planner/internal/model"
)

// PostgresChannel is the LISTEN/NOTIFY channel every write notifies on.
const PostgresChannel = "planner_changes"

// Postgres is the shared multi-client Repository. Documents are JSONB with the
// cell columns indexed alongside.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// OpenPostgres opens dsn through the pgx stdlib driver and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := NewPostgres(db, logger)
	if err := p.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			assigned_employee_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_cell ON projects(assigned_employee_id, start_date, sort_order)`,
		`CREATE TABLE IF NOT EXISTS foremen (
			id TEXT PRIMARY KEY,
			display_order INTEGER NOT NULL,
			visible BOOLEAN NOT NULL,
			doc JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, st := range stmts {
		if _, err := p.db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) ListProjects(ctx context.Context) ([]model.Project, error) {
	return readJSONRows[model.Project](ctx, p.db, `SELECT doc FROM projects ORDER BY start_date, assigned_employee_id, sort_order, id`)
}

func (p *Postgres) GetProject(ctx context.Context, id string) (model.Project, error) {
	return getProjectPostgres(ctx, p.db, id, false)
}

func getProjectPostgres(ctx context.Context, q rowQueryer, id string, forUpdate bool) (model.Project, error) {
	query := `SELECT doc FROM projects WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var doc []byte
	err := q.QueryRowContext(ctx, query, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, NotFoundError{Kind: kindProject, ID: id}
	}
	if err != nil {
		return model.Project{}, err
	}
	var out model.Project
	if err := json.Unmarshal(doc, &out); err != nil {
		return model.Project{}, fmt.Errorf("decode project %s: %w", id, err)
	}
	return out, nil
}

func (p *Postgres) CreateProject(ctx context.Context, pr model.Project) (model.Project, error) {
	now := p.now()
	pr, err := prepareNew(pr, now)
	if err != nil {
		return model.Project{}, err
	}
	raw, err := json.Marshal(pr)
	if err != nil {
		return model.Project{}, err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Project{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO projects(id, assigned_employee_id, start_date, sort_order, doc, updated_at) VALUES($1, $2, $3, $4, $5, $6)`,
		pr.ID, pr.AssignedEmployeeID, indexedStart(pr), pr.SortOrder, string(raw), now); err != nil {
		return model.Project{}, err
	}
	if err := notifyPostgres(ctx, tx, kindProject, "create", pr.ID); err != nil {
		return model.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Project{}, err
	}
	return pr, nil
}

func (p *Postgres) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	out, err := p.UpdateProjects(ctx, []model.ProjectUpdate{{ID: id, Patch: patch}})
	if err != nil {
		return model.Project{}, err
	}
	return out[0], nil
}

func (p *Postgres) UpdateProjects(ctx context.Context, updates []model.ProjectUpdate) ([]model.Project, error) {
	if len(updates) == 0 {
		return []model.Project{}, nil
	}
	now := p.now()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.Project, 0, len(updates))
	for _, u := range updates {
		cur, err := getProjectPostgres(ctx, tx, u.ID, true)
		if err != nil {
			return nil, err
		}
		next := applyUpdate(cur, u.Patch, now)
		if err := updateProjectPostgres(ctx, tx, next, now); err != nil {
			return nil, err
		}
		if err := notifyPostgres(ctx, tx, kindProject, "update", next.ID); err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	p.logger.Debug("projects updated", zap.Int("count", len(out)))
	return out, nil
}

func updateProjectPostgres(ctx context.Context, x execer, pr model.Project, now time.Time) error {
	raw, err := json.Marshal(pr)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `UPDATE projects SET assigned_employee_id = $2, start_date = $3, sort_order = $4, doc = $5, updated_at = $6 WHERE id = $1`,
		pr.ID, pr.AssignedEmployeeID, indexedStart(pr), pr.SortOrder, string(raw), now)
	return err
}

func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: kindProject, ID: id}
	}
	if err := notifyPostgres(ctx, tx, kindProject, "delete", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) ListForemen(ctx context.Context) ([]model.Foreman, error) {
	return readJSONRows[model.Foreman](ctx, p.db, `SELECT doc FROM foremen ORDER BY display_order, id`)
}

func (p *Postgres) SaveForeman(ctx context.Context, f model.Foreman) (model.Foreman, error) {
	f, err := prepareForeman(f)
	if err != nil {
		return model.Foreman{}, err
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return model.Foreman{}, err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Foreman{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO foremen(id, display_order, visible, doc, updated_at) VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET display_order = EXCLUDED.display_order, visible = EXCLUDED.visible, doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
		f.ID, f.DisplayOrder, f.Visible, string(raw), p.now()); err != nil {
		return model.Foreman{}, err
	}
	if err := notifyPostgres(ctx, tx, kindForeman, "save", f.ID); err != nil {
		return model.Foreman{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Foreman{}, err
	}
	return f, nil
}

// DeleteForeman removes a roster entry and moves its projects to the unassigned pool.
func (p *Postgres) DeleteForeman(ctx context.Context, id string) error {
	now := p.now()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM foremen WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: kindForeman, ID: id}
	}
	orphans, err := readJSONRows[model.Project](ctx, tx, `SELECT doc FROM projects WHERE assigned_employee_id = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}
	unassigned := model.Unassigned
	for _, pr := range orphans {
		next := applyUpdate(pr, model.ProjectPatch{AssignedEmployeeID: &unassigned}, now)
		if err := updateProjectPostgres(ctx, tx, next, now); err != nil {
			return err
		}
	}
	if err := notifyPostgres(ctx, tx, kindForeman, "delete", id); err != nil {
		return err
	}
	return tx.Commit()
}

// notifyPostgres queues a NOTIFY that fires when tx commits.
func notifyPostgres(ctx context.Context, x execer, kind, op, id string) error {
	_, err := x.ExecContext(ctx, `SELECT pg_notify($1, $2)`, PostgresChannel, kind+":"+op+":"+id)
	return err
}
