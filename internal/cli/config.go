package cli

import (
	"github.com/spf13/cobra"

	"scaffold-planner/internal/config"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change planner settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings (defaults, file, env and flags)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.cfg
			for _, secret := range []*string{&cfg.RedisPassword, &cfg.MQTTPassword} {
				if *secret != "" {
					*secret = "********"
				}
			}
			return writeOut(cmd, app, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Path()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"path": p})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one setting to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Start from the file alone so env and flags are not persisted.
			cfg, err := config.LoadFile()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := config.Save(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cfg)
		},
	})
	return cmd
}
