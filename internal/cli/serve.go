package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scaffold-planner/internal/config"
	"scaffold-planner/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner JSON API and change stream",
		Long: strings.TrimSpace(`
Serve exposes the configured store over HTTP so other planners can use
--server / --backend remote. Clients follow /api/changes (server-sent events)
to refetch when anyone writes.
`),
		Example: strings.TrimSpace(`
  planner serve --addr 127.0.0.1:8080
  planner --backend postgres --notifier postgres serve --addr :8080
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.cfg.Backend == config.BackendRemote {
				return writeErr(cmd, errors.New("serve: the remote backend cannot be served again; use sqlite or postgres"))
			}
			listenAddr := strings.TrimSpace(addr)
			if !cmd.Flags().Changed("addr") {
				listenAddr = app.cfg.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}
			ws, err := app.weekStart()
			if err != nil {
				return writeErr(cmd, err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			env, err := openEnv(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer env.Close()

			// The server publishes its own writes.
			srv, err := web.NewServer(web.ServerConfig{
				Addr:      listenAddr,
				WeekStart: ws,
				ReadOnly:  readOnly,
			}, env.base, env.notifier, app.log)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := srv.Start(ctx); err != nil {
				return writeErr(cmd, err)
			}
			defer srv.Stop()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			_ = writeOut(cmd, app, map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"backend":   app.cfg.Backend,
				"notifier":  app.cfg.Notifier,
				"readOnly":  readOnly,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Planner API running at %s\n", url)

			hs := &http.Server{
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- hs.Serve(ln) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
			}

			app.log.Info("shutting down", zap.String("addr", actualAddr))
			// Stream handlers only return once the hub closes.
			srv.Stop()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config)")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Reject writes with 403")
	return cmd
}
