package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/format"
)

type doctorReport calendar.Report

func (r doctorReport) Table() format.Table {
	t := format.Table{Headers: []string{"LEVEL", "CODE", "MESSAGE"}}
	for _, it := range r.Issues {
		t.Rows = append(t.Rows, []string{string(it.Level), it.Code, it.Message})
	}
	return t
}

func newDoctorCmd(app *App) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check projects and roster for calendar problems",
		Long: strings.TrimSpace(`
Doctor reports projects on unknown or hidden foremen, broken date ranges and
cells whose sort orders are not 0..n-1. With --fix the sort orders are
renumbered in one batch; other problems need a manual edit.
`),
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
			fs, err := env.repo.ListForemen(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			r := calendar.Diagnose(ps, fs)

			if fix && len(r.Repair) > 0 {
				updates, err := calendar.ProjectUpdates(r.Repair, ps)
				if err != nil {
					return writeErr(cmd, err)
				}
				if _, err := env.repo.UpdateProjects(cmd.Context(), updates); err != nil {
					return writeErr(cmd, err)
				}
				if ps, err = env.repo.ListProjects(cmd.Context()); err != nil {
					return writeErr(cmd, err)
				}
				r = calendar.Diagnose(ps, fs)
			}

			if err := writeOut(cmd, app, doctorReport(r)); err != nil {
				return err
			}
			if r.HasErrors() {
				return errors.New("doctor: errors found")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Renumber cells with sort order gaps")
	return cmd
}
