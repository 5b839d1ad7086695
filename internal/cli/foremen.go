package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/format"
	"scaffold-planner/internal/model"
	"scaffold-planner/internal/store"
)

type foremanList []model.Foreman

func (fs foremanList) Table() format.Table {
	t := format.Table{Headers: []string{"ID", "NAME", "ORDER", "VISIBLE"}}
	for _, f := range fs {
		visible := "yes"
		if !f.Visible {
			visible = "no"
		}
		t.Rows = append(t.Rows, []string{f.ID, f.Name, strconv.Itoa(f.DisplayOrder), visible})
	}
	return t
}

func newForemenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "foremen",
		Aliases: []string{"foreman", "f"},
		Short:   "Manage the foreman roster",
	}
	cmd.AddCommand(newForemenListCmd(app))
	cmd.AddCommand(newForemenAddCmd(app))
	cmd.AddCommand(newForemenVisibilityCmd(app, "show", true))
	cmd.AddCommand(newForemenVisibilityCmd(app, "hide", false))
	cmd.AddCommand(newForemenDeleteCmd(app))
	return cmd
}

func newForemenListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the roster in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			fs, err := env.repo.ListForemen(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if fs == nil {
				fs = []model.Foreman{}
			}
			return writeOut(cmd, app, foremanList(fs))
		},
	}
}

func newForemenAddCmd(app *App) *cobra.Command {
	var f model.Foreman
	var hidden bool
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace a foreman",
		Example: strings.TrimSpace(`
  planner foremen add "Anna Berg" --id fm-anna --order 1
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Name = args[0]
			f.Visible = !hidden

			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if !cmd.Flags().Changed("order") {
				roster, err := env.repo.ListForemen(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, r := range roster {
					if r.DisplayOrder >= f.DisplayOrder {
						f.DisplayOrder = r.DisplayOrder + 1
					}
				}
			}
			out, err := env.repo.SaveForeman(cmd.Context(), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, out)
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "Foreman id (generated when empty)")
	cmd.Flags().IntVar(&f.DisplayOrder, "order", 0, "Display order (defaults to last)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Keep the foreman off the calendar")
	return cmd
}

func newForemenVisibilityCmd(app *App, use string, visible bool) *cobra.Command {
	short := "Show a foreman on the calendar"
	if !visible {
		short = "Hide a foreman from the calendar"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			roster, err := env.repo.ListForemen(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, f := range roster {
				if f.ID != args[0] {
					continue
				}
				f.Visible = visible
				out, err := env.repo.SaveForeman(cmd.Context(), f)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, out)
			}
			return writeErr(cmd, store.NotFoundError{Kind: "foreman", ID: args[0]})
		},
	}
}

func newForemenDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a foreman; their projects move to the unassigned pool",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model.IsUnassigned(args[0]) {
				return writeErr(cmd, errors.New("the unassigned pool cannot be deleted"))
			}
			env, err := openEnv(cmd.Context(), app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			if err := env.repo.DeleteForeman(cmd.Context(), args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"deleted": args[0]})
		},
	}
}
