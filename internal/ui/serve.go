package ui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/javiermolinar/dayplan/internal/web"
)

func (a *App) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		Long: `Start the HTTP server with the plan pages and the JSON API.

The server stops gracefully on SIGINT or SIGTERM.`,
		Example: `  dayplan serve
  dayplan serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureRepo(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.config.Server.Addr
			}

			gen, err := a.ensureGenerator()
			if err != nil {
				a.logger.Warnw("planning disabled", "err", err)
				gen = unavailableGenerator{err: err}
			}

			gin.SetMode(a.config.Server.Mode)
			srv, err := web.New(a.repo, gen, web.Windows{
				Default: a.config.DefaultWindow(),
				Full:    a.config.FullDayWindow(),
				Detail:  a.config.DetailWindow(),
			},
				web.WithLogger(a.logger),
				web.WithClock(a.now),
			)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", addr)
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}
