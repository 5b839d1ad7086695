package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scaffold-planner/internal/model"

	_ "modernc.org/sqlite"
)

// SQLite is the single-file Repository. Every write appends to the changes table,
// which the sqlite notifier polls.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers; pragmas then apply to every statement.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, path: path, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			assigned_employee_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_cell ON projects(assigned_employee_id, start_date, sort_order);`,
		`CREATE TABLE IF NOT EXISTS foremen (
			id TEXT PRIMARY KEY,
			display_order INTEGER NOT NULL,
			visible INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS changes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_kind TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			op TEXT NOT NULL,
			at_unixms INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) ListProjects(ctx context.Context) ([]model.Project, error) {
	return readJSONRows[model.Project](ctx, s.db, `SELECT json FROM projects ORDER BY start_date, assigned_employee_id, sort_order, id`)
}

func (s *SQLite) GetProject(ctx context.Context, id string) (model.Project, error) {
	return getProjectSQLite(ctx, s.db, id)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProjectSQLite(ctx context.Context, q rowQueryer, id string) (model.Project, error) {
	var js string
	err := q.QueryRowContext(ctx, `SELECT json FROM projects WHERE id = ?`, id).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, NotFoundError{Kind: kindProject, ID: id}
	}
	if err != nil {
		return model.Project{}, err
	}
	var p model.Project
	if err := json.Unmarshal([]byte(js), &p); err != nil {
		return model.Project{}, fmt.Errorf("decode project %s: %w", id, err)
	}
	return p, nil
}

func (s *SQLite) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	now := s.now()
	p, err := prepareNew(p, now)
	if err != nil {
		return model.Project{}, err
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Project{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := putProjectSQLite(ctx, tx, p, now, false); err != nil {
		return model.Project{}, err
	}
	if err := appendChangeSQLite(ctx, tx, kindProject, p.ID, "create", now); err != nil {
		return model.Project{}, err
	}
	return p, tx.Commit()
}

func (s *SQLite) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	out, err := s.UpdateProjects(ctx, []model.ProjectUpdate{{ID: id, Patch: patch}})
	if err != nil {
		return model.Project{}, err
	}
	return out[0], nil
}

func (s *SQLite) UpdateProjects(ctx context.Context, updates []model.ProjectUpdate) ([]model.Project, error) {
	if len(updates) == 0 {
		return []model.Project{}, nil
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]model.Project, 0, len(updates))
	for _, u := range updates {
		cur, err := getProjectSQLite(ctx, tx, u.ID)
		if err != nil {
			return nil, err
		}
		next := applyUpdate(cur, u.Patch, now)
		if err := putProjectSQLite(ctx, tx, next, now, true); err != nil {
			return nil, err
		}
		if err := appendChangeSQLite(ctx, tx, kindProject, next.ID, "update", now); err != nil {
			return nil, err
		}
		out = append(out, next)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	now := s.now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: kindProject, ID: id}
	}
	if err := appendChangeSQLite(ctx, tx, kindProject, id, "delete", now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) ListForemen(ctx context.Context) ([]model.Foreman, error) {
	return readJSONRows[model.Foreman](ctx, s.db, `SELECT json FROM foremen ORDER BY display_order, id`)
}

func (s *SQLite) SaveForeman(ctx context.Context, f model.Foreman) (model.Foreman, error) {
	f, err := prepareForeman(f)
	if err != nil {
		return model.Foreman{}, err
	}
	now := s.now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.Foreman{}, err
	}
	defer func() { _ = tx.Rollback() }()

	raw, err := json.Marshal(f)
	if err != nil {
		return model.Foreman{}, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO foremen(id, display_order, visible, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		f.ID, f.DisplayOrder, boolToInt(f.Visible), string(raw), now.UnixMilli()); err != nil {
		return model.Foreman{}, err
	}
	if err := appendChangeSQLite(ctx, tx, kindForeman, f.ID, "save", now); err != nil {
		return model.Foreman{}, err
	}
	return f, tx.Commit()
}

// DeleteForeman removes a roster entry and moves its projects to the unassigned pool.
func (s *SQLite) DeleteForeman(ctx context.Context, id string) error {
	now := s.now()
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM foremen WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFoundError{Kind: kindForeman, ID: id}
	}

	orphans, err := readJSONRows[model.Project](ctx, tx, `SELECT json FROM projects WHERE assigned_employee_id = ?`, id)
	if err != nil {
		return err
	}
	unassigned := model.Unassigned
	for _, p := range orphans {
		next := applyUpdate(p, model.ProjectPatch{AssignedEmployeeID: &unassigned}, now)
		if err := putProjectSQLite(ctx, tx, next, now, true); err != nil {
			return err
		}
		if err := appendChangeSQLite(ctx, tx, kindProject, p.ID, "update", now); err != nil {
			return err
		}
	}
	if err := appendChangeSQLite(ctx, tx, kindForeman, id, "delete", now); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestChange returns the newest change log sequence, 0 when empty.
func (s *SQLite) LatestChange(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&seq)
	return seq, err
}

// ChangesSince lists change log rows after seq, oldest first.
func (s *SQLite) ChangesSince(ctx context.Context, seq int64, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT seq, entity_kind, entity_id, op, at_unixms FROM changes WHERE seq > ? ORDER BY seq LIMIT ?`, seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var c Change
		var atMs int64
		if err := rows.Scan(&c.Seq, &c.Kind, &c.EntityID, &c.Op, &atMs); err != nil {
			return nil, err
		}
		c.At = time.UnixMilli(atMs).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putProjectSQLite(ctx context.Context, x execer, p model.Project, now time.Time, replace bool) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	verb := "INSERT"
	if replace {
		verb = "INSERT OR REPLACE"
	}
	_, err = x.ExecContext(ctx, verb+` INTO projects(id, assigned_employee_id, start_date, sort_order, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?)`,
		p.ID, p.AssignedEmployeeID, indexedStart(p), p.SortOrder, string(raw), now.UnixMilli())
	return err
}

func appendChangeSQLite(ctx context.Context, x execer, kind, id, op string, now time.Time) error {
	_, err := x.ExecContext(ctx, `INSERT INTO changes(entity_kind, entity_id, op, at_unixms) VALUES(?, ?, ?, ?)`, kind, id, op, now.UnixMilli())
	return err
}
