package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/format"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
)

type projectList []model.Project

func (ps projectList) Table() format.Table {
	t := format.Table{Headers: []string{"ID", "TITLE", "CUSTOMER", "FOREMAN", "START", "END", "ORDER", "DISPATCH"}}
	for _, p := range ps {
		foreman := p.AssignedEmployeeID
		if model.IsUnassigned(foreman) {
			foreman = "-"
		}
		start, end := p.StartDate, p.EndDate
		if start.IsZero() {
			start = p.AssemblyStartDate
		}
		if end.IsZero() && !p.DemolitionStartDate.IsZero() {
			end = p.DemolitionStartDate
		}
		dispatch := ""
		if p.Dispatch != nil && p.Dispatch.Confirmed {
			dispatch = "confirmed"
		}
		t.Rows = append(t.Rows, []string{
			p.ID, p.Title, p.Customer, foreman,
			start.String(), end.String(), strconv.Itoa(p.SortOrder), dispatch,
		})
	}
	return t
}

func newProjectsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Manage scaffolding projects",
	}
	cmd.AddCommand(newProjectsListCmd(app))
	cmd.AddCommand(newProjectsShowCmd(app))
	cmd.AddCommand(newProjectsCreateCmd(app))
	cmd.AddCommand(newProjectsUpdateCmd(app))
	cmd.AddCommand(newProjectsDeleteCmd(app))
	cmd.AddCommand(newProjectsConfirmCmd(app))
	return cmd
}

func newProjectsListCmd(app *App) *cobra.Command {
	var foreman string
	var unassigned bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			ps, err := env.repo.ListProjects(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			out := make(projectList, 0, len(ps))
			for _, p := range ps {
				switch {
				case unassigned && !model.IsUnassigned(p.AssignedEmployeeID):
					continue
				case foreman != "" && p.AssignedEmployeeID != foreman:
					continue
				}
				out = append(out, p)
			}
			sort.SliceStable(out, func(i, j int) bool {
				if out[i].StartDate != out[j].StartDate {
					return out[i].StartDate.Before(out[j].StartDate)
				}
				return out[i].SortOrder < out[j].SortOrder
			})
			return writeOut(cmd, app, out)
		},
	}
	cmd.Flags().StringVar(&foreman, "foreman", "", "Only projects assigned to this foreman id")
	cmd.Flags().BoolVar(&unassigned, "unassigned", false, "Only projects without a foreman")
	return cmd
}

func newProjectsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			p, err := env.repo.GetProject(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, p)
		},
	}
}

// projectFlags are the editable fields shared by create and update.
type projectFlags struct {
	title, customer, remarks, category, constructionType string
	start, end, assemblyStart, demolitionStart           string
	assemblyDays, demolitionDays                         int
	foreman                                              string
	sortOrder                                            int
	workers, trucks                                      []string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "Project title")
	fs.StringVar(&f.customer, "customer", "", "Customer name")
	fs.StringVar(&f.remarks, "remarks", "", "Free-form remarks")
	fs.StringVar(&f.category, "category", "", "Category (assembly|demolition|...)")
	fs.StringVar(&f.constructionType, "type", "", "Construction type tag")
	fs.StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "End date (YYYY-MM-DD)")
	fs.StringVar(&f.assemblyStart, "assembly-start", "", "Assembly start date (YYYY-MM-DD)")
	fs.IntVar(&f.assemblyDays, "assembly-days", 0, "Assembly duration in days")
	fs.StringVar(&f.demolitionStart, "demolition-start", "", "Demolition start date (YYYY-MM-DD)")
	fs.IntVar(&f.demolitionDays, "demolition-days", 0, "Demolition duration in days")
	fs.StringVar(&f.foreman, "foreman", "", "Assigned foreman id (\"unassigned\" clears)")
	fs.IntVar(&f.sortOrder, "order", 0, "Sort order within the cell")
	fs.StringSliceVar(&f.workers, "worker", nil, "Planned worker (repeatable)")
	fs.StringSliceVar(&f.trucks, "truck", nil, "Planned truck (repeatable)")
}

// patch builds a patch from the flags the user actually set.
func (f *projectFlags) patch(cmd *cobra.Command) (model.ProjectPatch, error) {
	var p model.ProjectPatch
	fs := cmd.Flags()
	str := func(name, v string, dst **string) {
		if fs.Changed(name) {
			s := v
			*dst = &s
		}
	}
	str("title", f.title, &p.Title)
	str("customer", f.customer, &p.Customer)
	str("remarks", f.remarks, &p.Remarks)
	str("category", f.category, &p.Category)
	str("type", f.constructionType, &p.ConstructionType)
	str("foreman", f.foreman, &p.AssignedEmployeeID)

	dates := []struct {
		name string
		v    string
		dst  **model.Date
	}{
		{"start", f.start, &p.StartDate},
		{"end", f.end, &p.EndDate},
		{"assembly-start", f.assemblyStart, &p.AssemblyStartDate},
		{"demolition-start", f.demolitionStart, &p.DemolitionStartDate},
	}
	for _, d := range dates {
		if !fs.Changed(d.name) {
			continue
		}
		v, err := model.ParseDate(d.v)
		if err != nil {
			return p, fmt.Errorf("--%s: %w", d.name, err)
		}
		*d.dst = &v
	}

	ints := []struct {
		name string
		v    int
		dst  **int
	}{
		{"assembly-days", f.assemblyDays, &p.AssemblyDuration},
		{"demolition-days", f.demolitionDays, &p.DemolitionDuration},
		{"order", f.sortOrder, &p.SortOrder},
	}
	for _, n := range ints {
		if !fs.Changed(n.name) {
			continue
		}
		if n.v < 0 {
			return p, fmt.Errorf("--%s must not be negative", n.name)
		}
		v := n.v
		*n.dst = &v
	}

	if fs.Changed("worker") {
		ws := cleanList(f.workers)
		p.Workers = &ws
	}
	if fs.Changed("truck") {
		ts := cleanList(f.trucks)
		p.Trucks = &ts
	}
	return p, nil
}

func cleanList(xs []string) []string {
	out := []string{}
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			out = append(out, x)
		}
	}
	return out
}

func newProjectsCreateCmd(app *App) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Example: strings.TrimSpace(`
  planner projects create --title "Harbor St 12" --customer Acme --start 2026-10-19 --end 2026-10-21 --foreman fm-a
  planner projects create --title "School gym" --assembly-start 2026-10-19 --assembly-days 2 --demolition-start 2026-11-09 --demolition-days 1
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(f.title) == "" {
				return writeErr(cmd, errors.New("missing --title"))
			}
			patch, err := f.patch(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			var p model.Project
			patch.Apply(&p)

			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if !cmd.Flags().Changed("order") {
				if p.SortOrder, err = appendOrder(cmd.Context(), env.repo, p); err != nil {
					return writeErr(cmd, err)
				}
			}
			out, err := env.repo.CreateProject(cmd.Context(), p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	f.register(cmd)
	return cmd
}

// appendOrder is the sort order that puts p last in the cell of its first event.
func appendOrder(ctx context.Context, repo store.Repository, p model.Project) (int, error) {
	evs := calendar.DeriveProject(p)
	if len(evs) == 0 {
		return 0, nil
	}
	ps, err := repo.ListProjects(ctx)
	if err != nil {
		return 0, err
	}
	first := evs[0]
	for _, ev := range evs[1:] {
		if ev.Start.Before(first.Start) {
			first = ev
		}
	}
	cell := calendar.CellEvents(calendar.DeriveEvents(ps), first.AssignedEmployeeID, first.Start)
	order := 0
	for _, ev := range cell {
		if ev.SortOrder >= order {
			order = ev.SortOrder + 1
		}
	}
	return order, nil
}

func newProjectsUpdateCmd(app *App) *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			if patch.IsEmpty() {
				return writeErr(cmd, errors.New("nothing to update (pass at least one field flag)"))
			}

			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			out, err := env.repo.UpdateProject(cmd.Context(), args[0], patch)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	f.register(cmd)
	return cmd
}

func newProjectsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if err := env.repo.DeleteProject(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args[0]})
		},
	}
}

func newProjectsConfirmCmd(app *App) *cobra.Command {
	var workers, vehicles []string
	var undo bool
	cmd := &cobra.Command{
		Use:   "confirm <id>",
		Short: "Record the dispatch sign-off for a project",
		Long: strings.TrimSpace(`
Confirm fixes the actual staffing of a project. Without --worker/--vehicle the
planned workers and trucks are confirmed as they are.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			p, err := env.repo.GetProject(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			d := &model.Dispatch{}
			if !undo {
				now := time.Now().UTC()
				d.Confirmed = true
				d.ConfirmedAt = &now
				d.WorkerIDs = append([]string{}, p.Workers...)
				d.VehicleIDs = append([]string{}, p.Trucks...)
				if cmd.Flags().Changed("worker") {
					d.WorkerIDs = cleanList(workers)
				}
				if cmd.Flags().Changed("vehicle") {
					d.VehicleIDs = cleanList(vehicles)
				}
			}
			out, err := env.repo.UpdateProject(cmd.Context(), p.ID, model.ProjectPatch{Dispatch: d})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	cmd.Flags().StringSliceVar(&workers, "worker", nil, "Dispatched worker (repeatable)")
	cmd.Flags().StringSliceVar(&vehicles, "vehicle", nil, "Dispatched vehicle (repeatable)")
	cmd.Flags().BoolVar(&undo, "undo", false, "Withdraw the confirmation")
	return cmd
}
