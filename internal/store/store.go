package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scaffold-planner/internal/model"
)

// Repository is the persistence contract the calendar engine writes through.
type Repository interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error)
	// UpdateProjects applies every update in one transaction and returns the stored records
	// in update order. Nothing is written if any id is unknown.
	UpdateProjects(ctx context.Context, updates []model.ProjectUpdate) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error

	ListForemen(ctx context.Context) ([]model.Foreman, error)
	SaveForeman(ctx context.Context, f model.Foreman) (model.Foreman, error)
	DeleteForeman(ctx context.Context, id string) error

	Close() error
}

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

const (
	kindProject = "project"
	kindForeman = "foreman"
)

// Change is one row of the change log.
type Change struct {
	Seq      int64     `json:"seq"`
	Kind     string    `json:"kind"`
	EntityID string    `json:"entityId"`
	Op       string    `json:"op"`
	At       time.Time `json:"at"`
}

// prepareNew fills defaults on a project about to be inserted.
func prepareNew(p model.Project, now time.Time) (model.Project, error) {
	p = p.Clone()
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return model.Project{}, fmt.Errorf("%w: project title is required", ErrInvalid)
	}
	if strings.TrimSpace(p.ID) == "" {
		p.ID = newRandomID("prj")
	}
	if model.IsUnassigned(p.AssignedEmployeeID) {
		p.AssignedEmployeeID = model.Unassigned
	}
	if p.SortOrder < 0 {
		p.SortOrder = 0
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p, nil
}

func applyUpdate(p model.Project, patch model.ProjectPatch, now time.Time) model.Project {
	p = p.Clone()
	patch.Apply(&p)
	if model.IsUnassigned(p.AssignedEmployeeID) {
		p.AssignedEmployeeID = model.Unassigned
	}
	p.UpdatedAt = now
	return p
}

func prepareForeman(f model.Foreman) (model.Foreman, error) {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return model.Foreman{}, fmt.Errorf("%w: foreman name is required", ErrInvalid)
	}
	if strings.TrimSpace(f.ID) == "" {
		f.ID = newRandomID("fm")
	}
	if model.IsUnassigned(f.ID) {
		return model.Foreman{}, fmt.Errorf("%w: foreman id %q is reserved", ErrInvalid, f.ID)
	}
	return f, nil
}

// indexedStart is the date stored in the start_date column: the earliest phase date,
// falling back to the legacy start.
func indexedStart(p model.Project) string {
	start := p.StartDate
	for _, d := range []model.Date{p.AssemblyStartDate, p.DemolitionStartDate} {
		if !d.IsZero() && (start.IsZero() || d.Before(start)) {
			start = d
		}
	}
	return start.String()
}
