package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flexireact/flexi"
	"github.com/flexireact/flexi/internal/config"
	"github.com/flexireact/flexi/pkg/assets"
)

func buildCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build production artifacts",
		Long: `Build production artifacts: fingerprint built client assets,
write the asset manifest, and cache the route table so the production
server can skip the startup filesystem walk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			cfg, err := config.Load("", logger)
			if err != nil {
				return err
			}

			app := flexi.New(cfg)
			routeFile := filepath.Join(cfg.Static.BuildDir, "routes.json")
			if err := app.SaveRoutes(routeFile); err != nil {
				return err
			}
			success("route table written to %s", routeFile)

			manifest, err := assets.BuildManifest(cfg.Static.BuildDir)
			if err != nil {
				return err
			}
			if err := manifest.Write(cfg.Static.BuildDir); err != nil {
				return err
			}
			success("fingerprinted %d assets", len(manifest.Entries))

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func routesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the discovered route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(false)

			cfg, err := config.Load("", logger)
			if err != nil {
				return err
			}

			app := flexi.New(cfg)
			for _, line := range app.RouteList() {
				info("%s", line)
			}
			return nil
		},
	}

	return cmd
}
