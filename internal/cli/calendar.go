package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/export"
	"scaffold-planner/internal/format"
	"scaffold-planner/internal/live"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/web"
)

// weekTable renders a view as foremen x days, with the unassigned load as the last row.
type weekTable calendar.View

func (w weekTable) Table() format.Table {
	v := calendar.View(w)
	t := format.Table{Headers: []string{"FOREMAN"}}
	for _, d := range v.Days {
		label := export.DayLabel(d)
		if d.IsToday {
			label += " *"
		}
		t.Headers = append(t.Headers, label)
	}
	for _, row := range v.Rows {
		cells := []string{row.Name}
		for _, d := range v.Days {
			cells = append(cells, strings.ReplaceAll(export.CellText(row.Days[d.Date]), "\n", "; "))
		}
		t.Rows = append(t.Rows, cells)
	}
	pool := []string{"Unassigned"}
	for _, d := range v.Days {
		load := v.Unassigned.Days[d.Date]
		if load.Events == 0 {
			pool = append(pool, "")
			continue
		}
		pool = append(pool, fmt.Sprintf("%d jobs / %d workers", load.Events, load.Headcount))
	}
	t.Rows = append(t.Rows, pool)
	return t
}

func parseAnchor(raw string, now time.Time) (model.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return model.DateOf(now), nil
	}
	return model.ParseDate(raw)
}

// loadView builds the week around anchor from whatever backend is configured.
func loadView(ctx context.Context, app *App, env *env, anchor model.Date) (calendar.View, error) {
	if env.client != nil {
		return env.client.Week(ctx, anchor)
	}
	ws, err := app.weekStart()
	if err != nil {
		return calendar.View{}, err
	}
	ps, err := env.repo.ListProjects(ctx)
	if err != nil {
		return calendar.View{}, err
	}
	fs, err := env.repo.ListForemen(ctx)
	if err != nil {
		return calendar.View{}, err
	}
	return calendar.BuildView(anchor, ws, model.DateOf(time.Now()), fs, ps), nil
}

func newWeekCmd(app *App) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the week containing a date",
		Example: strings.TrimSpace(`
  planner week --format text
  planner week --date 2026-10-26
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			anchor, err := parseAnchor(date, time.Now())
			if err != nil {
				return writeErr(cmd, err)
			}
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			v, err := loadView(cmd.Context(), app, env, anchor)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, weekTable(v))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any day of the week to show (default today)")
	return cmd
}

// parseCell reads "<foreman>@<YYYY-MM-DD>"; an empty foreman means the unassigned pool.
func parseCell(s string) (calendar.CellRef, error) {
	foreman, day, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok {
		return calendar.CellRef{}, fmt.Errorf("invalid cell %q (expected <foreman>@<YYYY-MM-DD>)", s)
	}
	d, err := model.ParseDate(day)
	if err != nil {
		return calendar.CellRef{}, fmt.Errorf("invalid cell %q: %w", s, err)
	}
	foreman = strings.TrimSpace(foreman)
	if model.IsUnassigned(foreman) {
		foreman = model.Unassigned
	}
	return calendar.CellRef{ForemanID: foreman, Day: d}, nil
}

func newDropCmd(app *App) *cobra.Command {
	var from, to string
	var index int
	cmd := &cobra.Command{
		Use:   "drop <event-id>",
		Short: "Move an event to another cell or position",
		Long: strings.TrimSpace(`
Drop moves one calendar event, like releasing a dragged card. --index is the
position among the target cell's other events; the default appends.
Event ids are project ids, with -assembly or -demolition for split phases.
`),
		Example: strings.TrimSpace(`
  planner drop prj-abc123 --from fm-a@2026-10-19 --to fm-b@2026-10-20
  planner drop prj-abc123-demolition --from fm-a@2026-11-09 --to unassigned@2026-11-09 --index 0
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parseCell(from)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("--from: %w", err))
			}
			dst, err := parseCell(to)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("--to: %w", err))
			}
			if !cmd.Flags().Changed("index") {
				index = math.MaxInt32
			}
			req := web.DropRequest{EventID: args[0], From: src, To: &calendar.Target{Cell: dst, Index: index}}

			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if env.client != nil {
				resp, err := env.client.Drop(cmd.Context(), req)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, resp)
			}

			board, err := loadBoard(cmd.Context(), app, env)
			if err != nil {
				return writeErr(cmd, err)
			}
			drag := calendar.NewDrag(app.log)
			events := board.Events()
			if err := drag.Begin(events, req.EventID, req.From); err != nil {
				return writeErr(cmd, err)
			}
			res := drag.Drop(events, board.Projects(), req.To)
			if res.Err != nil {
				return writeErr(cmd, res.Err)
			}
			resp, err := commit(cmd.Context(), board, res.Outcome, res.Batch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resp)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Current cell, <foreman>@<YYYY-MM-DD>")
	cmd.Flags().StringVar(&to, "to", "", "Target cell, <foreman>@<YYYY-MM-DD>")
	cmd.Flags().IntVar(&index, "index", 0, "Position in the target cell (default: last)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newNudgeCmd(app *App) *cobra.Command {
	var cell string
	cmd := &cobra.Command{
		Use:   "nudge <event-id> <up|down>",
		Short: "Swap an event with its neighbour in the cell",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := calendar.ParseDirection(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			req := web.NudgeRequest{EventID: args[0], Direction: string(dir)}
			if cell != "" {
				c, err := parseCell(cell)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("--cell: %w", err))
				}
				req.Cell = &c
			}

			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if env.client != nil {
				resp, err := env.client.Nudge(cmd.Context(), req)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, resp)
			}

			board, err := loadBoard(cmd.Context(), app, env)
			if err != nil {
				return writeErr(cmd, err)
			}
			var b calendar.Batch
			if req.Cell != nil {
				b, err = calendar.MoveInCell(board.Events(), *req.Cell, req.EventID, dir)
			} else {
				b, err = calendar.MoveEvent(board.Events(), req.EventID, dir)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			outcome := calendar.OutcomeDropped
			if len(b) == 0 {
				outcome = calendar.OutcomeNoop
			}
			resp, err := commit(cmd.Context(), board, outcome, b)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, resp)
		},
	}
	cmd.Flags().StringVar(&cell, "cell", "", "Cell of a multi-day event, <foreman>@<YYYY-MM-DD> (default: its start day)")
	return cmd
}

func loadBoard(ctx context.Context, app *App, env *env) (*live.Board, error) {
	board := live.New(env.repo, app.boardOptions())
	if err := board.Load(ctx); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return board, nil
}

// commit persists b through the board and reports the stored projects it touched.
func commit(ctx context.Context, board *live.Board, outcome calendar.Outcome, b calendar.Batch) (web.MoveResponse, error) {
	resp := web.MoveResponse{Outcome: outcome.String(), Batch: b, Projects: []model.Project{}}
	if resp.Batch == nil {
		resp.Batch = calendar.Batch{}
	}
	if len(b) == 0 {
		return resp, nil
	}
	if err := <-board.Commit(ctx, b); err != nil {
		return resp, err
	}
	seen := map[string]bool{}
	for _, id := range b.EventIDs() {
		pid, _, _ := calendar.SplitEventID(id)
		if seen[pid] {
			continue
		}
		seen[pid] = true
		if p, ok := board.Project(pid); ok {
			resp.Projects = append(resp.Projects, p)
		}
	}
	return resp, nil
}
