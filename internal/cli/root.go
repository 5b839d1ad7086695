package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/config"
	"scaffold-planner/internal/format"
	"scaffold-planner/internal/live"
	"scaffold-planner/internal/logging"
	"scaffold-planner/internal/tui"
)

type App struct {
	Backend    string
	DB         string
	ServerURL  string
	Notifier   string
	LogLevel   string
	PrettyJSON bool
	Format     string

	cfg config.Config
	log *zap.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "planner",
		Short:        "Weekly scaffolding crew planner (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive calendar
  planner

  # Show a week as a table
  planner week --date 2026-10-19 --format text

  # Shortcut for: planner week --date 2026-10-19
  planner 2026-10-19

  # Move a job to another foreman and day
  planner drop prj-abc123 --from fm-a@2026-10-19 --to fm-b@2026-10-20
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive calendar.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app.log != nil {
			_ = app.log.Sync()
		}
	}

	cmd.PersistentFlags().StringVar(&app.Backend, "backend", "", "Storage backend (sqlite|postgres|remote)")
	cmd.PersistentFlags().StringVar(&app.DB, "db", "", "SQLite database path")
	cmd.PersistentFlags().StringVar(&app.ServerURL, "server", "", "Planner server URL (implies --backend remote)")
	cmd.PersistentFlags().StringVar(&app.Notifier, "notifier", "", "Change notifier (none|sqlite|redis|postgres|mqtt)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("PLANNER_FORMAT", "json"), "Output format (json|text)")

	cmd.AddCommand(newProjectsCmd(app))
	cmd.AddCommand(newForemenCmd(app))
	cmd.AddCommand(newWeekCmd(app))
	cmd.AddCommand(newDropCmd(app))
	cmd.AddCommand(newNudgeCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// init resolves configuration: defaults, config file, PLANNER_* env, then flags.
func (app *App) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return writeErr(cmd, err)
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = app.Backend
	}
	if flags.Changed("db") {
		cfg.DB = app.DB
	}
	if flags.Changed("server") {
		cfg.ServerURL = app.ServerURL
		cfg.Backend = config.BackendRemote
	}
	if flags.Changed("notifier") {
		cfg.Notifier = app.Notifier
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = app.LogLevel
	}
	app.cfg = cfg

	if app.log == nil {
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return writeErr(cmd, err)
		}
		app.log = log
	}
	return nil
}

func (app *App) weekStart() (time.Weekday, error) {
	return calendar.ParseWeekday(app.cfg.WeekStart)
}

func (app *App) boardOptions() live.Options {
	return live.Options{
		GuardWindow: app.cfg.GuardWindow.Std(),
		Debounce:    app.cfg.Debounce.Std(),
		Logger:      app.log,
	}
}

func runTUI(cmd *cobra.Command, app *App) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ws, err := app.weekStart()
	if err != nil {
		return writeErr(cmd, err)
	}

	// The alternate screen owns the terminal; log to a file instead.
	statePath := ""
	if dir, err := config.Dir(); err == nil && os.MkdirAll(dir, 0o755) == nil {
		if log, err := logging.New(app.cfg.LogLevel, "json", filepath.Join(dir, "planner.log")); err == nil {
			app.log = log
		}
		statePath = filepath.Join(dir, "tui_state.json")
	}

	env, err := openEnv(ctx, app)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer env.Close()

	board := live.New(env.repo, app.boardOptions())
	if err := board.Load(ctx); err != nil {
		return writeErr(cmd, fmt.Errorf("load board: %w", err))
	}
	return tui.Run(ctx, board, env.notifier, tui.Options{
		WeekStart: ws,
		Logger:    app.log,
		StatePath: statePath,
	})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// writeOut prints v; JSON output is wrapped in a {"data": ...} envelope.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if app.Format == "text" {
		return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
