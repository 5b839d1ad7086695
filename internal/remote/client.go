// Package remote talks to a running planner server over its JSON API.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
	"scaffold-planner/internal/web"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case store.ErrNotFound:
		return e.Status == http.StatusNotFound
	case store.ErrInvalid:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// Client implements store.Repository against a planner server.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ store.Repository = (*Client)(nil)

func NewClient(baseURL string, logger *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote: base url is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: c, logger: logger}, nil
}

func (c *Client) BaseURL() string { return c.http.BaseURL }

func (c *Client) Close() error { return nil }

type errorBody struct {
	Error string `json:"error"`
}

// do runs req and turns transport failures and error statuses into errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var eb errorBody
	req := c.http.R().SetContext(ctx).SetError(&eb)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("planner api call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: eb.Error}
	}
	return nil
}

func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodGet, "/api/projects/"+id, nil, &out)
	return out, notFound(err, "project", id)
}

func (c *Client) CreateProject(ctx context.Context, p model.Project) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPost, "/api/projects", p, &out)
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (model.Project, error) {
	var out model.Project
	err := c.do(ctx, http.MethodPatch, "/api/projects/"+id, patch, &out)
	return out, notFound(err, "project", id)
}

func (c *Client) UpdateProjects(ctx context.Context, updates []model.ProjectUpdate) ([]model.Project, error) {
	var out []model.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects/batch", updates, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return notFound(c.do(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil), "project", id)
}

func (c *Client) ListForemen(ctx context.Context) ([]model.Foreman, error) {
	var out []model.Foreman
	if err := c.do(ctx, http.MethodGet, "/api/foremen", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveForeman(ctx context.Context, f model.Foreman) (model.Foreman, error) {
	var out model.Foreman
	err := c.do(ctx, http.MethodPost, "/api/foremen", f, &out)
	return out, err
}

func (c *Client) DeleteForeman(ctx context.Context, id string) error {
	return notFound(c.do(ctx, http.MethodDelete, "/api/foremen/"+id, nil, nil), "foreman", id)
}

// Week fetches the server-side view of the week containing date (today when empty).
func (c *Client) Week(ctx context.Context, date model.Date) (calendar.View, error) {
	var out calendar.View
	req := "/api/week"
	if !date.IsZero() {
		req += "?date=" + date.String()
	}
	err := c.do(ctx, http.MethodGet, req, nil, &out)
	return out, err
}

func (c *Client) Drop(ctx context.Context, req web.DropRequest) (web.MoveResponse, error) {
	var out web.MoveResponse
	err := c.do(ctx, http.MethodPost, "/api/calendar/drop", req, &out)
	return out, err
}

func (c *Client) Nudge(ctx context.Context, req web.NudgeRequest) (web.MoveResponse, error) {
	var out web.MoveResponse
	err := c.do(ctx, http.MethodPost, "/api/calendar/nudge", req, &out)
	return out, err
}

// notFound rewrites a 404 into the store's NotFoundError so callers see one shape.
func notFound(err error, kind, id string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return store.NotFoundError{Kind: kind, ID: id}
	}
	return err
}
