package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"scaffold-planner/internal/format"
	"scaffold-planner/internal/notify"
)

func newWatchCmd(app *App) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print one JSON line per change signal",
		Long:  "Watch follows the configured change notifier and prints a line each time a planner writes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			env, err := openEnv(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			n := 0
			err = notify.Pump(ctx, env.notifier, func() {
				n++
				_ = format.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"event": "changed",
					"seq":   n,
					"at":    time.Now().UTC().Format(time.RFC3339Nano),
				}, false)
				if count > 0 && n >= count {
					cancel()
				}
			})
			if err != nil && ctx.Err() == nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many signals (0 = until interrupted)")
	return cmd
}
