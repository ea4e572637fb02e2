package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flexireact/flexi"
	"github.com/flexireact/flexi/internal/config"
)

func devCmd() *cobra.Command {
	var (
		port    int
		host    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with hot reload.

Route files are rescanned and module caches invalidated on change,
and connected browsers reload automatically.

Examples:
  flexi dev
  flexi dev --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg, err := config.Load("", logger)
			if err != nil {
				return err
			}
			cfg.DevMode = true
			if port != 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := flexi.New(cfg)
			go func() {
				if err := app.StartDev(ctx); err != nil && ctx.Err() == nil {
					logger.Error("watcher stopped", "error", err)
				}
			}()

			return app.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from flexi.yaml)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from flexi.yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func serveCmd() *cobra.Command {
	var (
		port       int
		routeCache string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the production server",
		Long: `Start the production server.

With --routes the route table is loaded from a cache file written by
"flexi build" instead of walking the filesystem at startup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg, err := config.Load("", logger)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			app := flexi.New(cfg)
			if routeCache != "" {
				if err := app.LoadRoutes(routeCache); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from flexi.yaml)")
	cmd.Flags().StringVar(&routeCache, "routes", "", "Route cache file from flexi build")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}
