package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/export"
)

func newExportCmd(app *App) *cobra.Command {
	var date, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a week as an Excel workbook",
		Example: strings.TrimSpace(`
  planner export --date 2026-10-19 --out week-43.xlsx
  planner export --out - > plan.xlsx
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
			if len(v.Days) == 0 {
				return writeErr(cmd, errors.New("export: empty week"))
			}

			var buf bytes.Buffer
			if err := export.WriteWeekXLSX(&buf, v); err != nil {
				return writeErr(cmd, err)
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			path := out
			if strings.TrimSpace(path) == "" {
				path = fmt.Sprintf("planner-%s.xlsx", v.Days[0].Date)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return writeErr(cmd, err)
			}
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"path":  path,
				"week":  v.Days[0].Date,
				"bytes": buf.Len(),
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Any day of the week to export (default today)")
	cmd.Flags().StringVar(&out, "out", "", "Output file, or - for stdout (default planner-<week start>.xlsx)")
	return cmd
}
